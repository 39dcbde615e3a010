package snapshot

import (
	"fmt"

	"github.com/dyluth/drey/pkg/tree"
)

// PatchSet is a computed change-set that moves the tree toward a desired state.
type PatchSet struct {
	Removed []tree.ID
	Added   []PatchAdd
	Updated []PatchUpdate
}

// IsEmpty reports whether the patch requests no changes.
func (p PatchSet) IsEmpty() bool {
	return len(p.Removed) == 0 && len(p.Added) == 0 && len(p.Updated) == 0
}

// PatchAdd adds Instance, including its children, under ParentID.
type PatchAdd struct {
	ParentID tree.ID
	Instance InstanceSnapshot
}

// PatchUpdate changes an existing instance in place. Nil fields and absent
// property keys leave the corresponding state untouched.
type PatchUpdate struct {
	ID                tree.ID
	ChangedName       *string
	ChangedClass      *string
	ChangedMetadata   *tree.Metadata
	ChangedProperties map[string]PropertyChange
}

// ChangeOp is the kind of a PropertyChange.
type ChangeOp uint8

const (
	// ChangeUnchanged leaves the property as it is. It is the zero value.
	ChangeUnchanged ChangeOp = iota
	// ChangeSet assigns a value, adding the property if needed.
	ChangeSet
	// ChangeRemove deletes the property.
	ChangeRemove
)

func (op ChangeOp) String() string {
	switch op {
	case ChangeUnchanged:
		return "unchanged"
	case ChangeSet:
		return "set"
	case ChangeRemove:
		return "remove"
	default:
		return fmt.Sprintf("ChangeOp(%d)", uint8(op))
	}
}

// PropertyChange describes what happens to one property. Setting a Ref that
// points at nothing is a ChangeSet, never a ChangeRemove.
type PropertyChange struct {
	op    ChangeOp
	value tree.Value
}

// Set returns a change assigning v.
func Set(v tree.Value) PropertyChange {
	if v == nil {
		panic("snapshot: Set requires a value; use Remove to delete a property")
	}
	return PropertyChange{op: ChangeSet, value: v}
}

// Remove returns a change deleting the property.
func Remove() PropertyChange {
	return PropertyChange{op: ChangeRemove}
}

// Unchanged returns a change that leaves the property alone.
func Unchanged() PropertyChange {
	return PropertyChange{}
}

func (c PropertyChange) Op() ChangeOp { return c.op }

// Value returns the assigned value for ChangeSet and nil otherwise.
func (c PropertyChange) Value() tree.Value { return c.value }

func (c PropertyChange) String() string {
	if c.op == ChangeSet {
		return "set " + c.value.String()
	}
	return c.op.String()
}

// AppliedPatchSet records the changes that actually took effect. It mirrors the
// shape of PatchSet so another observer can replay it without diffing.
type AppliedPatchSet struct {
	Removed []tree.ID
	Added   []tree.ID
	Updated []AppliedPatchUpdate
}

// IsEmpty reports whether nothing was applied.
func (a AppliedPatchSet) IsEmpty() bool {
	return len(a.Removed) == 0 && len(a.Added) == 0 && len(a.Updated) == 0
}

// AppliedPatchUpdate is the subset of a PatchUpdate that was applied.
type AppliedPatchUpdate struct {
	ID                tree.ID
	ChangedName       *string
	ChangedClass      *string
	ChangedMetadata   *tree.Metadata
	ChangedProperties map[string]PropertyChange
}

// NewAppliedPatchUpdate returns an empty applied update for id.
func NewAppliedPatchUpdate(id tree.ID) AppliedPatchUpdate {
	return AppliedPatchUpdate{
		ID:                id,
		ChangedProperties: make(map[string]PropertyChange),
	}
}

// IsEmpty reports whether the update changed nothing.
func (u AppliedPatchUpdate) IsEmpty() bool {
	return u.ChangedName == nil && u.ChangedClass == nil &&
		u.ChangedMetadata == nil && len(u.ChangedProperties) == 0
}
