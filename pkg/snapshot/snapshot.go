package snapshot

import "github.com/dyluth/drey/pkg/tree"

// InstanceSnapshot describes a subtree to be added to the tree. Properties may
// contain Refs to other snapshots of the same patch (by SnapshotID) or to
// instances already in the tree (by tree.ID).
type InstanceSnapshot struct {
	// SnapshotID is set when other parts of the patch refer to this snapshot.
	SnapshotID *SnapshotID
	Name       string
	Class      string
	Properties tree.Properties
	Children   []InstanceSnapshot
	Metadata   tree.Metadata
}

// NewSnapshot starts a snapshot of the given class, named after the class.
func NewSnapshot(class string) InstanceSnapshot {
	return InstanceSnapshot{
		Name:       class,
		Class:      class,
		Properties: tree.Properties{},
	}
}

func (s InstanceSnapshot) WithName(name string) InstanceSnapshot {
	s.Name = name
	return s
}

func (s InstanceSnapshot) WithSnapshotID(id SnapshotID) InstanceSnapshot {
	s.SnapshotID = &id
	return s
}

func (s InstanceSnapshot) WithMetadata(m tree.Metadata) InstanceSnapshot {
	s.Metadata = m
	return s
}

// WithProperty returns s with key set to v. The property map is copied so
// snapshots built from a common base do not share it.
func (s InstanceSnapshot) WithProperty(key string, v tree.Value) InstanceSnapshot {
	props := s.Properties.Clone()
	props[key] = v
	s.Properties = props
	return s
}

func (s InstanceSnapshot) WithChild(child InstanceSnapshot) InstanceSnapshot {
	children := make([]InstanceSnapshot, 0, len(s.Children)+1)
	children = append(children, s.Children...)
	s.Children = append(children, child)
	return s
}

// RefToSnapshot builds a Ref property value naming a snapshot of the current
// patch. The value is only meaningful inside that patch.
func RefToSnapshot(id SnapshotID) tree.Ref {
	return tree.RefTo(tree.ID(id))
}
