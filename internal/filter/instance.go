package filter

import (
	"fmt"
	"path/filepath"

	"github.com/dyluth/drey/pkg/tree"
)

// Criteria defines filtering criteria for instances.
// All filters are ANDed together - an instance must match ALL criteria to pass.
type Criteria struct {
	ClassGlob string // Glob pattern for the instance class, empty = no filter
	NameGlob  string // Glob pattern for the instance name, empty = no filter
}

// Validate reports malformed glob patterns up front, so Matches never has to.
func (c *Criteria) Validate() error {
	if _, err := filepath.Match(c.ClassGlob, ""); err != nil {
		return fmt.Errorf("invalid --class pattern %q: %w", c.ClassGlob, err)
	}
	if _, err := filepath.Match(c.NameGlob, ""); err != nil {
		return fmt.Errorf("invalid --name pattern %q: %w", c.NameGlob, err)
	}
	return nil
}

// Matches returns true if the instance matches all filter criteria.
// Empty criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(inst *tree.Instance) bool {
	if c.ClassGlob != "" {
		matched, err := filepath.Match(c.ClassGlob, inst.Class())
		if err != nil || !matched {
			return false
		}
	}

	if c.NameGlob != "" {
		matched, err := filepath.Match(c.NameGlob, inst.Name())
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.ClassGlob != "" || c.NameGlob != ""
}

// Select returns the instances of t matching c, in depth-first order.
func (c *Criteria) Select(t *tree.Tree) []*tree.Instance {
	var matches []*tree.Instance
	t.Walk(func(inst *tree.Instance, _ int) bool {
		if c.Matches(inst) {
			matches = append(matches, inst)
		}
		return true
	})
	return matches
}
