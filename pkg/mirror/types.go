package mirror

import (
	"fmt"

	"github.com/dyluth/drey/pkg/tree"
	"github.com/google/uuid"
)

// InstanceRecord is the mirrored state of one instance.
// IDs are kept in their canonical UUID text form so records read naturally in
// Redis and in JSON output.
type InstanceRecord struct {
	ID          string                       `json:"id"`            // Tree-space instance ID
	Parent      string                       `json:"parent"`        // Parent instance ID, empty for the root
	Name        string                       `json:"name"`          // Instance name
	Class       string                       `json:"class"`         // Instance class
	Properties  map[string]tree.EncodedValue `json:"properties"`    // Encoded property values
	Children    []string                     `json:"children"`      // Ordered child instance IDs
	Metadata    tree.Metadata                `json:"metadata"`      // Opaque payload of the surrounding system
	UpdatedAtMs int64                        `json:"updated_at_ms"` // Unix milliseconds of the last replicated write
}

// ChangeEvent describes one replicated change log. It carries tree-space IDs
// only; snapshot IDs never leave ApplyPatchSet.
type ChangeEvent struct {
	ID          string         `json:"id"`            // UUID of this change
	AppliedAtMs int64          `json:"applied_at_ms"` // Unix milliseconds when the change was replicated
	Removed     []string       `json:"removed"`       // Removed instance IDs
	Added       []string       `json:"added"`         // Added instance IDs, in creation order
	Updated     []UpdateRecord `json:"updated"`       // Updates that took effect
}

// UpdateRecord is the wire form of snapshot.AppliedPatchUpdate.
type UpdateRecord struct {
	ID         string                    `json:"id"`
	Name       *string                   `json:"name,omitempty"`
	Class      *string                   `json:"class,omitempty"`
	Metadata   *tree.Metadata            `json:"metadata,omitempty"`
	Properties map[string]PropertyRecord `json:"properties,omitempty"`
}

// PropertyOp is the wire form of snapshot.ChangeOp. Unchanged entries are
// never recorded.
type PropertyOp string

const (
	// PropertyOpSet assigns Value to the property
	PropertyOpSet PropertyOp = "set"

	// PropertyOpRemove deletes the property
	PropertyOpRemove PropertyOp = "remove"
)

// PropertyRecord is one recorded property change.
type PropertyRecord struct {
	Op    PropertyOp         `json:"op"`
	Value *tree.EncodedValue `json:"value,omitempty"`
}

// ChangeCount returns the number of instances touched by the event.
func (e *ChangeEvent) ChangeCount() int {
	return len(e.Removed) + len(e.Added) + len(e.Updated)
}

// Validate checks if the InstanceRecord has valid field values.
func (r *InstanceRecord) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid instance ID: not a valid UUID")
	}

	if r.Parent != "" && !isValidUUID(r.Parent) {
		return fmt.Errorf("invalid parent ID: not a valid UUID")
	}

	for i, childID := range r.Children {
		if !isValidUUID(childID) {
			return fmt.Errorf("invalid child at index %d: not a valid UUID", i)
		}
	}

	if _, err := tree.DecodeProperties(r.Properties); err != nil {
		return fmt.Errorf("invalid properties: %w", err)
	}

	return nil
}

// Validate checks if the ChangeEvent has valid field values.
func (e *ChangeEvent) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid change ID: not a valid UUID")
	}

	if e.AppliedAtMs <= 0 {
		return fmt.Errorf("invalid applied_at_ms: must be positive, got %d", e.AppliedAtMs)
	}

	for i, id := range e.Removed {
		if !isValidUUID(id) {
			return fmt.Errorf("invalid removed instance at index %d: not a valid UUID", i)
		}
	}

	for i, id := range e.Added {
		if !isValidUUID(id) {
			return fmt.Errorf("invalid added instance at index %d: not a valid UUID", i)
		}
	}

	for i := range e.Updated {
		if err := e.Updated[i].Validate(); err != nil {
			return fmt.Errorf("invalid update at index %d: %w", i, err)
		}
	}

	return nil
}

// Validate checks if the UpdateRecord has valid field values.
func (u *UpdateRecord) Validate() error {
	if !isValidUUID(u.ID) {
		return fmt.Errorf("invalid instance ID: not a valid UUID")
	}

	for key, p := range u.Properties {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
	}

	return nil
}

// Validate checks that the operation is known and that a value is present
// exactly when the operation is a set.
func (p PropertyRecord) Validate() error {
	switch p.Op {
	case PropertyOpSet:
		if p.Value == nil {
			return fmt.Errorf("set without a value")
		}
		if _, err := tree.DecodeValue(*p.Value); err != nil {
			return err
		}
	case PropertyOpRemove:
		if p.Value != nil {
			return fmt.Errorf("remove must not carry a value")
		}
	default:
		return fmt.Errorf("unknown property op: %q", p.Op)
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
