package tree

import (
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an instance in tree space.
// The zero value refers to no instance.
type ID uuid.UUID

// NoID is the zero ID. Ref values targeting NoID point at nothing.
var NoID ID

// NewID mints a fresh random tree-space identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical UUID text form of an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoID, fmt.Errorf("invalid instance ID %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParseID is like ParseID but panics on malformed input. Intended for tests
// and static fixtures.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsNone reports whether the ID is the zero ID.
func (id ID) IsNone() bool {
	return id == NoID
}

// String returns the canonical UUID representation.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first 8 characters of the ID for display.
func (id ID) Short() string {
	return id.String()[:8]
}
