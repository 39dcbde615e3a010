package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *Tree {
	return New(InstanceProperties{Name: "Root", Class: "Folder"})
}

func TestNew(t *testing.T) {
	tr := newTestTree()

	root, ok := tr.Get(tr.RootID())
	require.True(t, ok)
	assert.Equal(t, "Root", root.Name())
	assert.Equal(t, "Folder", root.Class())
	assert.True(t, root.Parent().IsNone())
	assert.NotNil(t, root.Properties())
	assert.Empty(t, root.Children())
	assert.Equal(t, 1, tr.Len())
}

func TestInsert(t *testing.T) {
	t.Run("appends children in order", func(t *testing.T) {
		tr := newTestTree()
		a := tr.Insert(tr.RootID(), InstanceProperties{Name: "A", Class: "Part"})
		b := tr.Insert(tr.RootID(), InstanceProperties{Name: "B", Class: "Part"})

		root, _ := tr.Get(tr.RootID())
		assert.Equal(t, []ID{a, b}, root.Children())

		inst, ok := tr.Get(b)
		require.True(t, ok)
		assert.Equal(t, tr.RootID(), inst.Parent())
	})

	t.Run("copies the initial property map", func(t *testing.T) {
		tr := newTestTree()
		props := Properties{"Size": Int32(3)}
		id := tr.Insert(tr.RootID(), InstanceProperties{Name: "A", Class: "Part", Properties: props})

		props["Size"] = Int32(4)
		inst, _ := tr.Get(id)
		v, _ := inst.Property("Size")
		assert.Equal(t, Int32(3), v)
	})

	t.Run("panics on missing parent", func(t *testing.T) {
		tr := newTestTree()
		assert.Panics(t, func() {
			tr.Insert(NewID(), InstanceProperties{Name: "Orphan"})
		})
	})
}

func TestInsertWithID(t *testing.T) {
	tr := newTestTree()
	id := NewID()

	require.NoError(t, tr.InsertWithID(tr.RootID(), id, InstanceProperties{Name: "A"}))

	err := tr.InsertWithID(tr.RootID(), id, InstanceProperties{Name: "A"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = tr.InsertWithID(NewID(), NewID(), InstanceProperties{Name: "B"})
	assert.ErrorIs(t, err, ErrParentNotFound)

	err = tr.InsertWithID(tr.RootID(), NoID, InstanceProperties{Name: "C"})
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Run("removes subtree and detaches from parent", func(t *testing.T) {
		tr := newTestTree()
		a := tr.Insert(tr.RootID(), InstanceProperties{Name: "A"})
		b := tr.Insert(tr.RootID(), InstanceProperties{Name: "B"})
		child := tr.Insert(a, InstanceProperties{Name: "Child"})
		grandchild := tr.Insert(child, InstanceProperties{Name: "Grandchild"})

		assert.True(t, tr.Remove(a))

		for _, id := range []ID{a, child, grandchild} {
			_, ok := tr.Get(id)
			assert.False(t, ok)
		}
		root, _ := tr.Get(tr.RootID())
		assert.Equal(t, []ID{b}, root.Children())
		assert.Equal(t, 2, tr.Len())
	})

	t.Run("returns false for missing instance", func(t *testing.T) {
		tr := newTestTree()
		assert.False(t, tr.Remove(NewID()))
	})

	t.Run("refuses to remove the root", func(t *testing.T) {
		tr := newTestTree()
		assert.False(t, tr.Remove(tr.RootID()))
		_, ok := tr.Get(tr.RootID())
		assert.True(t, ok)
	})
}

func TestUpdateMetadata(t *testing.T) {
	tr := newTestTree()
	m := Metadata{SourcePath: "src/init.lua", RelevantPaths: []string{"src"}}

	assert.True(t, tr.UpdateMetadata(tr.RootID(), m))
	m.RelevantPaths[0] = "changed"

	root, _ := tr.Get(tr.RootID())
	assert.Equal(t, "src/init.lua", root.Metadata().SourcePath)
	assert.Equal(t, []string{"src"}, root.Metadata().RelevantPaths)

	assert.False(t, tr.UpdateMetadata(NewID(), m))
}

func TestWalkAndDescendants(t *testing.T) {
	tr := newTestTree()
	a := tr.Insert(tr.RootID(), InstanceProperties{Name: "A"})
	a1 := tr.Insert(a, InstanceProperties{Name: "A1"})
	b := tr.Insert(tr.RootID(), InstanceProperties{Name: "B"})

	var names []string
	var depths []int
	tr.Walk(func(inst *Instance, depth int) bool {
		names = append(names, inst.Name())
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"Root", "A", "A1", "B"}, names)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)

	assert.Equal(t, []ID{a, a1, b}, tr.Descendants(tr.RootID()))
	assert.Equal(t, []ID{a1}, tr.Descendants(a))
	assert.Empty(t, tr.Descendants(b))

	var pruned []string
	tr.Walk(func(inst *Instance, depth int) bool {
		pruned = append(pruned, inst.Name())
		return inst.ID() != a
	})
	assert.Equal(t, []string{"Root", "A", "B"}, pruned)
}

func TestInstanceMutators(t *testing.T) {
	tr := newTestTree()
	root, _ := tr.Get(tr.RootID())

	root.SetName("Renamed")
	root.SetClass("Model")
	root.SetProperty("Foo", String("bar"))
	root.RemoveProperty("Missing")

	again, _ := tr.Get(tr.RootID())
	assert.Equal(t, "Renamed", again.Name())
	assert.Equal(t, "Model", again.Class())
	assert.Equal(t, Properties{"Foo": String("bar")}, again.Properties())

	again.RemoveProperty("Foo")
	assert.Empty(t, again.Properties())
}
