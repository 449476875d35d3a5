package store

import (
	"sort"
	"sync"
	"time"

	"github.com/zhaozkTHU/oj/internal/apierr"
	"github.com/zhaozkTHU/oj/internal/models"
)

// ContestInput is the create-or-update request body for a contest. From/To
// are accepted as raw strings and parsed as RFC 3339 here, rejecting
// malformed timestamps as invalid-argument rather than storing them
// opaquely (grounded in the original's contests.rs create path).
type ContestInput struct {
	ID              *int
	Name            string
	From            string
	To              string
	ProblemIDs      []int
	UserIDs         []int
	SubmissionLimit int
}

// Contests is the id-indexed registry of real contests. Id 0, the implicit
// global contest, is never stored here; callers ask for it via Get(0).
type Contests struct {
	mu       sync.RWMutex
	contests []models.Contest
}

func NewContests() *Contests {
	return &Contests{}
}

// ProblemChecker and UserChecker abstract over the config registry and the
// user directory for the purposes of validating a contest's referenced
// ids, without giving this package a dependency on either.
type ProblemChecker interface{ HasProblem(id int) bool }
type UserChecker interface{ HasUser(id int) bool }

func (c *Contests) CreateOrUpdate(input ContestInput, problems ProblemChecker, users UserChecker) (models.Contest, error) {
	if input.ID != nil && *input.ID == 0 {
		return models.Contest{}, apierr.NotFound("contest id 0 is reserved")
	}

	from, err := time.Parse(time.RFC3339, input.From)
	if err != nil {
		return models.Contest{}, apierr.InvalidArgument("invalid 'from' timestamp: %v", err)
	}
	to, err := time.Parse(time.RFC3339, input.To)
	if err != nil {
		return models.Contest{}, apierr.InvalidArgument("invalid 'to' timestamp: %v", err)
	}

	for _, pid := range input.ProblemIDs {
		if !problems.HasProblem(pid) {
			return models.Contest{}, apierr.NotFound("problem %d does not exist", pid)
		}
	}
	for _, uid := range input.UserIDs {
		if !users.HasUser(uid) {
			return models.Contest{}, apierr.NotFound("user %d does not exist", uid)
		}
	}

	problemIDs := append([]int(nil), input.ProblemIDs...)
	userIDs := append([]int(nil), input.UserIDs...)
	sort.Ints(problemIDs)
	sort.Ints(userIDs)

	contest := models.Contest{
		Name:            input.Name,
		From:            from,
		To:              to,
		ProblemIDs:      problemIDs,
		UserIDs:         userIDs,
		SubmissionLimit: input.SubmissionLimit,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if input.ID != nil {
		idx := *input.ID - 1
		if idx < 0 || idx >= len(c.contests) {
			return models.Contest{}, apierr.NotFound("contest %d not found", *input.ID)
		}
		contest.ID = *input.ID
		c.contests[idx] = contest
		return contest, nil
	}

	contest.ID = len(c.contests) + 1
	c.contests = append(c.contests, contest)
	return contest, nil
}

// List returns every real contest (id 0 is never included).
func (c *Contests) List() []models.Contest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Contest, len(c.contests))
	copy(out, c.contests)
	return out
}

// Get returns contest 0 as the synthetic global contest, a real contest, or
// not-found.
func (c *Contests) Get(id int) (models.Contest, error) {
	if id == 0 {
		return models.Contest{ID: 0, Name: "Global"}, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := id - 1
	if idx < 0 || idx >= len(c.contests) {
		return models.Contest{}, apierr.NotFound("contest %d not found", id)
	}
	return c.contests[idx], nil
}
