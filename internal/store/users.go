// Package store holds the process's mutable state: the user directory, the
// job store, and the contest registry. Each is guarded by its own lock and
// passed explicitly to the handlers that need it (dependency injection),
// avoiding the implicit-singleton/lazy_static pattern the Rust original
// used for the same three collections.
package store

import (
	"sync"

	"github.com/zhaozkTHU/oj/internal/apierr"
	"github.com/zhaozkTHU/oj/internal/models"
)

// Users is the user directory: id -> name, unique by name, pre-seeded with
// the root user (id 0).
type Users struct {
	mu    sync.RWMutex
	users []models.User
}

func NewUsers() *Users {
	return &Users{users: []models.User{{ID: 0, Name: "root"}}}
}

// CreateOrUpdate renames an existing user (id != nil) or appends a
// new one. The collision check excludes the user being updated, so a
// self-rename to the same name is allowed.
func (u *Users) CreateOrUpdate(id *int, name string) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if id != nil {
		idx := u.indexOf(*id)
		if idx < 0 {
			return models.User{}, apierr.NotFound("user %d not found", *id)
		}
		for i, existing := range u.users {
			if i != idx && existing.Name == name {
				return models.User{}, apierr.InvalidArgument("user name %q already exists", name)
			}
		}
		u.users[idx].Name = name
		return u.users[idx], nil
	}

	for _, existing := range u.users {
		if existing.Name == name {
			return models.User{}, apierr.InvalidArgument("user name %q already exists", name)
		}
	}
	newID := u.users[len(u.users)-1].ID + 1
	user := models.User{ID: newID, Name: name}
	u.users = append(u.users, user)
	return user, nil
}

func (u *Users) indexOf(id int) int {
	for i, user := range u.users {
		if user.ID == id {
			return i
		}
	}
	return -1
}

func (u *Users) List() []models.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]models.User, len(u.users))
	copy(out, u.users)
	return out
}

func (u *Users) Get(id int) (models.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	idx := u.indexOf(id)
	if idx < 0 {
		return models.User{}, false
	}
	return u.users[idx], true
}

// HasUser reports whether id exists, satisfying store.UserChecker (as
// config.Config.HasProblem satisfies store.ProblemChecker).
func (u *Users) HasUser(id int) bool {
	_, ok := u.Get(id)
	return ok
}

func (u *Users) ByName(name string) (models.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, user := range u.users {
		if user.Name == name {
			return user, true
		}
	}
	return models.User{}, false
}
