// Package config loads the process-wide, immutable configuration document:
// server binding, the problem catalog, and the language toolchain list.
// The wire format is JSON, not the teacher's YAML, because the spec defines
// the configuration document as literally JSON (see DESIGN.md for why this
// one ambient concern stays on encoding/json rather than a third-party
// parser).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zhaozkTHU/oj/internal/models"
)

type Server struct {
	BindAddress string `json:"bind_address"`
	BindPort    int    `json:"bind_port"`
}

// Config is the immutable, process-wide configuration snapshot. It is
// loaded once at startup and shared by read-only reference thereafter; no
// mutation primitive is exposed.
type Config struct {
	Server    Server            `json:"server"`
	Problems  []models.Problem  `json:"problems"`
	Languages []models.Language `json:"languages"`
}

// Load reads and parses the configuration document at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ProblemByID performs the linear scan for a problem's externally assigned
// id, returning its catalog index alongside the problem itself.
func (c *Config) ProblemByID(id int) (idx int, problem models.Problem, ok bool) {
	for i, p := range c.Problems {
		if p.ID == id {
			return i, p, true
		}
	}
	return 0, models.Problem{}, false
}

// HasProblem reports whether id exists in the catalog.
func (c *Config) HasProblem(id int) bool {
	_, _, ok := c.ProblemByID(id)
	return ok
}

// LanguageByName returns the language descriptor with the given name.
func (c *Config) LanguageByName(name string) (models.Language, bool) {
	for _, l := range c.Languages {
		if l.Name == name {
			return l, true
		}
	}
	return models.Language{}, false
}
