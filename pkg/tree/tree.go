package tree

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDuplicateID is returned by InsertWithID when the ID is already used.
	ErrDuplicateID = errors.New("instance ID already exists")

	// ErrParentNotFound is returned by InsertWithID when the parent is absent.
	ErrParentNotFound = errors.New("parent instance not found")
)

// Tree stores instances indexed by ID together with their parent/child
// relations.
type Tree struct {
	instances map[ID]*Instance
	root      ID
}

// New creates a tree containing only a root built from props.
func New(root InstanceProperties) *Tree {
	return NewWithRootID(NewID(), root)
}

// NewWithRootID creates a tree whose root has the given ID. Loaders use it to
// preserve identifiers across process restarts.
func NewWithRootID(id ID, root InstanceProperties) *Tree {
	if id.IsNone() {
		id = NewID()
	}
	t := &Tree{instances: make(map[ID]*Instance), root: id}
	t.instances[id] = newInstance(id, NoID, root)
	return t
}

func newInstance(id, parent ID, props InstanceProperties) *Instance {
	properties := props.Properties.Clone()
	return &Instance{
		id:         id,
		parent:     parent,
		name:       props.Name,
		class:      props.Class,
		properties: properties,
		metadata:   props.Metadata.Clone(),
	}
}

// RootID returns the ID of the root instance.
func (t *Tree) RootID() ID {
	return t.root
}

// Len returns the number of instances, including the root.
func (t *Tree) Len() int {
	return len(t.instances)
}

// Get returns the live instance for id. Mutations through the returned pointer
// are visible to the tree.
func (t *Tree) Get(id ID) (*Instance, bool) {
	inst, ok := t.instances[id]
	return inst, ok
}

// Insert adds a new instance as the last child of parent and returns its
// freshly minted ID. The parent must exist.
func (t *Tree) Insert(parent ID, props InstanceProperties) ID {
	id := NewID()
	if err := t.InsertWithID(parent, id, props); err != nil {
		panic(fmt.Sprintf("tree: insert under %s: %v", parent, err))
	}
	return id
}

// InsertWithID adds a new instance with a caller-chosen ID as the last child of
// parent.
func (t *Tree) InsertWithID(parent, id ID, props InstanceProperties) error {
	if id.IsNone() {
		return fmt.Errorf("instance ID must not be empty")
	}
	if _, exists := t.instances[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	p, ok := t.instances[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parent)
	}

	t.instances[id] = newInstance(id, parent, props)
	p.children = append(p.children, id)
	return nil
}

// Remove deletes id and all of its descendants. Returns false if nothing was
// removed: id does not exist, or id is the root, which cannot be removed.
func (t *Tree) Remove(id ID) bool {
	inst, ok := t.instances[id]
	if !ok || id == t.root {
		return false
	}

	if p, ok := t.instances[inst.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c ID) bool { return c == id })
	}

	stack := []ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node, ok := t.instances[cur]; ok {
			stack = append(stack, node.children...)
			delete(t.instances, cur)
		}
	}
	return true
}

// UpdateMetadata replaces the metadata of id. Returns false if id does not
// exist.
func (t *Tree) UpdateMetadata(id ID, m Metadata) bool {
	inst, ok := t.instances[id]
	if !ok {
		return false
	}
	inst.metadata = m.Clone()
	return true
}

// Descendants returns every instance below id in depth-first, sibling order.
// id itself is not included.
func (t *Tree) Descendants(id ID) []ID {
	var out []ID
	t.walkFrom(id, 0, func(inst *Instance, depth int) bool {
		if inst.id != id {
			out = append(out, inst.id)
		}
		return true
	})
	return out
}

// Walk visits every instance depth-first starting at the root, children in
// sibling order. Returning false from fn skips the instance's subtree.
func (t *Tree) Walk(fn func(inst *Instance, depth int) bool) {
	t.walkFrom(t.root, 0, fn)
}

func (t *Tree) walkFrom(id ID, depth int, fn func(*Instance, int) bool) {
	inst, ok := t.instances[id]
	if !ok {
		return
	}
	if !fn(inst, depth) {
		return
	}
	for _, c := range inst.children {
		t.walkFrom(c, depth+1, fn)
	}
}
