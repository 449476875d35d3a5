// Package validation holds small request-parsing helpers in the plain
// fmt.Errorf style of the teacher's internal/validation/validator.go —
// this codebase otherwise leans on gin's binding tags (backed by
// go-playground/validator) for struct-level validation, reserving this
// package for the path/query parameters binding tags can't reach.
package validation

import (
	"fmt"
	"strconv"
)

// ParseID parses a non-negative path-parameter id, as used for job/contest ids.
func ParseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	if id < 0 {
		return 0, fmt.Errorf("id must be non-negative")
	}
	return id, nil
}
