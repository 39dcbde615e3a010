package tree

import "slices"

// Metadata is the payload the surrounding system attaches to an instance. The
// tree stores it but never interprets it.
type Metadata struct {
	SourcePath             string   `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	RelevantPaths          []string `json:"relevant_paths,omitempty" yaml:"relevant_paths,omitempty"`
	IgnoreUnknownInstances bool     `json:"ignore_unknown_instances,omitempty" yaml:"ignore_unknown_instances,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	m.RelevantPaths = slices.Clone(m.RelevantPaths)
	return m
}

// InstanceProperties is the initial state of an instance handed to Insert.
type InstanceProperties struct {
	Name       string
	Class      string
	Properties Properties
	Metadata   Metadata
}

// Instance is a node of the tree. Instances are owned by their Tree; pointers
// returned by Tree.Get stay valid until the instance is removed.
type Instance struct {
	id         ID
	parent     ID
	name       string
	class      string
	properties Properties
	children   []ID
	metadata   Metadata
}

func (i *Instance) ID() ID             { return i.id }
func (i *Instance) Parent() ID         { return i.parent }
func (i *Instance) Name() string       { return i.name }
func (i *Instance) Class() string      { return i.class }
func (i *Instance) Metadata() Metadata { return i.metadata }

// Children returns the child IDs in sibling order. The returned slice is a
// copy.
func (i *Instance) Children() []ID {
	return slices.Clone(i.children)
}

// Properties returns a copy of the property map.
func (i *Instance) Properties() Properties {
	return i.properties.Clone()
}

// Property returns the value stored under key.
func (i *Instance) Property(key string) (Value, bool) {
	v, ok := i.properties[key]
	return v, ok
}

func (i *Instance) SetName(name string)   { i.name = name }
func (i *Instance) SetClass(class string) { i.class = class }

// SetProperty inserts or replaces the value stored under key.
func (i *Instance) SetProperty(key string, v Value) {
	i.properties[key] = v
}

// RemoveProperty deletes key. Removing an absent key is a no-op.
func (i *Instance) RemoveProperty(key string) {
	delete(i.properties, key)
}
