package story

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrDanglingChoice marks a choice whose next_scenario key does not exist
// in the graph. Dangling references are an authoring defect and fail at
// graph load time rather than falling through to an empty scenario.
var ErrDanglingChoice = errors.New("choice references unknown scenario")

var validKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// ValidKey reports whether a scenario key is lowercase snake_case.
func ValidKey(key string) bool {
	return validKeyRegex.MatchString(key)
}

// Validate checks graph integrity: a non-empty scenario set, a resolvable
// start key, snake_case keys, and no dangling next_scenario references.
// All problems are collected and joined into a single error.
func (g *Graph) Validate() error {
	var errs []error

	if g.Name == "" {
		errs = append(errs, errors.New("graph has no name"))
	}
	if len(g.Scenarios) == 0 {
		errs = append(errs, errors.New("graph has no scenarios"))
	}
	if g.Start == "" {
		errs = append(errs, errors.New("graph has no start scenario"))
	} else if _, ok := g.Scenarios[g.Start]; !ok {
		errs = append(errs, fmt.Errorf("start scenario %q not found", g.Start))
	}

	for key, s := range g.Scenarios {
		if !ValidKey(key) {
			errs = append(errs, fmt.Errorf("scenario key %q is not lowercase snake_case", key))
		}
		if s.Text == "" {
			errs = append(errs, fmt.Errorf("scenario %q has no story text", key))
		}
		for i, c := range s.Choices {
			if c.Text == "" {
				errs = append(errs, fmt.Errorf("scenario %q choice %d has no text", key, i))
			}
			if c.Next == "" {
				continue
			}
			if _, ok := g.Scenarios[c.Next]; !ok {
				errs = append(errs, fmt.Errorf("scenario %q choice %q: %w: %q", key, c.Text, ErrDanglingChoice, c.Next))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid graph %q: %w", g.Name, errors.Join(errs...))
	}
	return nil
}
