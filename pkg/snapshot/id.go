package snapshot

import (
	"fmt"

	"github.com/google/uuid"
)

// SnapshotID identifies an instance described by a patch before it exists in
// the tree. It is a distinct type from tree.ID; snapshot IDs are mapped to
// tree IDs only by the translation table built during application.
type SnapshotID uuid.UUID

// NewSnapshotID mints a fresh snapshot-space identifier.
func NewSnapshotID() SnapshotID {
	return SnapshotID(uuid.New())
}

// ParseSnapshotID parses the canonical UUID text form of a SnapshotID.
func ParseSnapshotID(s string) (SnapshotID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SnapshotID{}, fmt.Errorf("invalid snapshot ID %q: %w", s, err)
	}
	return SnapshotID(u), nil
}

func (id SnapshotID) String() string {
	return uuid.UUID(id).String()
}
