package document

import (
	"fmt"

	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/dyluth/drey/pkg/tree"
)

// PatchFile is the YAML form of a snapshot.PatchSet.
type PatchFile struct {
	Removed []string     `yaml:"removed,omitempty"`
	Added   []AddNode    `yaml:"added,omitempty"`
	Updated []UpdateNode `yaml:"updated,omitempty"`
}

// AddNode adds Instance under Parent.
type AddNode struct {
	Parent   string       `yaml:"parent"`
	Instance SnapshotNode `yaml:"instance"`
}

// SnapshotNode is the YAML form of a snapshot.InstanceSnapshot.
type SnapshotNode struct {
	SnapshotID string                       `yaml:"snapshot_id,omitempty"`
	Name       string                       `yaml:"name,omitempty"`
	Class      string                       `yaml:"class"`
	Properties map[string]tree.EncodedValue `yaml:"properties,omitempty"`
	Metadata   tree.Metadata                `yaml:"metadata,omitempty"`
	Children   []SnapshotNode               `yaml:"children,omitempty"`
}

// UpdateNode is the YAML form of a snapshot.PatchUpdate.
type UpdateNode struct {
	ID         string                `yaml:"id"`
	Name       *string               `yaml:"name,omitempty"`
	Class      *string               `yaml:"class,omitempty"`
	Metadata   *tree.Metadata        `yaml:"metadata,omitempty"`
	Properties map[string]ChangeNode `yaml:"properties,omitempty"`
}

// ChangeNode describes one property change: {set: {type, value}},
// {remove: true}, or {} to leave the property unchanged.
type ChangeNode struct {
	Set    *tree.EncodedValue `yaml:"set,omitempty"`
	Remove bool               `yaml:"remove,omitempty"`
}

// LoadPatch reads a patch file.
func LoadPatch(path string) (snapshot.PatchSet, error) {
	data, err := readFile(path, "patch")
	if err != nil {
		return snapshot.PatchSet{}, err
	}
	patch, err := DecodePatch(data)
	if err != nil {
		return snapshot.PatchSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return patch, nil
}

// DecodePatch builds a patch set from YAML.
func DecodePatch(data []byte) (snapshot.PatchSet, error) {
	var file PatchFile
	if err := decodeStrict(data, &file); err != nil {
		return snapshot.PatchSet{}, err
	}

	var patch snapshot.PatchSet

	for i, raw := range file.Removed {
		id, err := tree.ParseID(raw)
		if err != nil {
			return snapshot.PatchSet{}, &PathError{Path: fmt.Sprintf("removed[%d]", i), Err: err}
		}
		patch.Removed = append(patch.Removed, id)
	}

	for i := range file.Added {
		path := fmt.Sprintf("added[%d]", i)
		parent, err := tree.ParseID(file.Added[i].Parent)
		if err != nil {
			return snapshot.PatchSet{}, &PathError{Path: path + ".parent", Err: err}
		}
		snap, err := decodeSnapshot(&file.Added[i].Instance, path+".instance")
		if err != nil {
			return snapshot.PatchSet{}, err
		}
		patch.Added = append(patch.Added, snapshot.PatchAdd{ParentID: parent, Instance: snap})
	}

	for i := range file.Updated {
		update, err := decodeUpdate(&file.Updated[i], fmt.Sprintf("updated[%d]", i))
		if err != nil {
			return snapshot.PatchSet{}, err
		}
		patch.Updated = append(patch.Updated, update)
	}

	return patch, nil
}

func decodeSnapshot(node *SnapshotNode, path string) (snapshot.InstanceSnapshot, error) {
	if node.Class == "" {
		return snapshot.InstanceSnapshot{}, pathErrorf(path, "class is required")
	}

	snap := snapshot.NewSnapshot(node.Class).WithMetadata(node.Metadata)
	if node.Name != "" {
		snap = snap.WithName(node.Name)
	}

	if node.SnapshotID != "" {
		id, err := snapshot.ParseSnapshotID(node.SnapshotID)
		if err != nil {
			return snapshot.InstanceSnapshot{}, &PathError{Path: path + ".snapshot_id", Err: err}
		}
		snap = snap.WithSnapshotID(id)
	}

	props, err := tree.DecodeProperties(node.Properties)
	if err != nil {
		return snapshot.InstanceSnapshot{}, &PathError{Path: path + ".properties", Err: err}
	}
	snap.Properties = props

	for i := range node.Children {
		child, err := decodeSnapshot(&node.Children[i], fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return snapshot.InstanceSnapshot{}, err
		}
		snap.Children = append(snap.Children, child)
	}

	return snap, nil
}

func decodeUpdate(node *UpdateNode, path string) (snapshot.PatchUpdate, error) {
	id, err := tree.ParseID(node.ID)
	if err != nil {
		return snapshot.PatchUpdate{}, &PathError{Path: path + ".id", Err: err}
	}

	update := snapshot.PatchUpdate{
		ID:                id,
		ChangedName:       node.Name,
		ChangedClass:      node.Class,
		ChangedMetadata:   node.Metadata,
		ChangedProperties: make(map[string]snapshot.PropertyChange, len(node.Properties)),
	}

	for key, change := range node.Properties {
		propPath := fmt.Sprintf("%s.properties.%s", path, key)
		switch {
		case change.Set != nil && change.Remove:
			return snapshot.PatchUpdate{}, pathErrorf(propPath, "set and remove are mutually exclusive")
		case change.Set != nil:
			v, err := tree.DecodeValue(*change.Set)
			if err != nil {
				return snapshot.PatchUpdate{}, &PathError{Path: propPath, Err: err}
			}
			update.ChangedProperties[key] = snapshot.Set(v)
		case change.Remove:
			update.ChangedProperties[key] = snapshot.Remove()
		default:
			update.ChangedProperties[key] = snapshot.Unchanged()
		}
	}

	return update, nil
}
