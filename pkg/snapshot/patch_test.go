package snapshot

import (
	"testing"

	"github.com/dyluth/drey/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyChange(t *testing.T) {
	t.Run("zero value is unchanged", func(t *testing.T) {
		var c PropertyChange
		assert.Equal(t, ChangeUnchanged, c.Op())
		assert.Nil(t, c.Value())
		assert.Equal(t, Unchanged(), c)
	})

	t.Run("set carries its value", func(t *testing.T) {
		c := Set(tree.Int32(8))
		assert.Equal(t, ChangeSet, c.Op())
		assert.Equal(t, tree.Int32(8), c.Value())
		assert.Equal(t, "set 8", c.String())
	})

	t.Run("setting a nil ref is a set", func(t *testing.T) {
		c := Set(tree.NilRef())
		assert.Equal(t, ChangeSet, c.Op())
		assert.Equal(t, "set ref(nil)", c.String())
	})

	t.Run("remove", func(t *testing.T) {
		c := Remove()
		assert.Equal(t, ChangeRemove, c.Op())
		assert.Nil(t, c.Value())
		assert.Equal(t, "remove", c.String())
	})

	t.Run("set without a value panics", func(t *testing.T) {
		assert.Panics(t, func() { Set(nil) })
	})
}

func TestChangeOpString(t *testing.T) {
	assert.Equal(t, "unchanged", ChangeUnchanged.String())
	assert.Equal(t, "set", ChangeSet.String())
	assert.Equal(t, "remove", ChangeRemove.String())
	assert.Equal(t, "ChangeOp(7)", ChangeOp(7).String())
}

func TestPatchSetIsEmpty(t *testing.T) {
	assert.True(t, PatchSet{}.IsEmpty())
	assert.False(t, PatchSet{Removed: []tree.ID{tree.NewID()}}.IsEmpty())
	assert.False(t, PatchSet{Added: []PatchAdd{{ParentID: tree.NewID(), Instance: NewSnapshot("Part")}}}.IsEmpty())
	assert.False(t, PatchSet{Updated: []PatchUpdate{{ID: tree.NewID()}}}.IsEmpty())
}

func TestAppliedPatchUpdateIsEmpty(t *testing.T) {
	u := NewAppliedPatchUpdate(tree.NewID())
	assert.True(t, u.IsEmpty())
	assert.NotNil(t, u.ChangedProperties)

	u.ChangedProperties["Size"] = Remove()
	assert.False(t, u.IsEmpty())

	name := "Renamed"
	assert.False(t, AppliedPatchUpdate{ChangedName: &name}.IsEmpty())
	assert.False(t, AppliedPatchUpdate{ChangedMetadata: &tree.Metadata{}}.IsEmpty())
}

func TestSnapshotBuilders(t *testing.T) {
	base := NewSnapshot("Part")
	assert.Equal(t, "Part", base.Name)
	assert.Nil(t, base.SnapshotID)

	a := base.WithProperty("Size", tree.Int32(1))
	b := base.WithProperty("Size", tree.Int32(2))
	assert.Empty(t, base.Properties, "builders must not share the property map")
	assert.Equal(t, tree.Int32(1), a.Properties["Size"])
	assert.Equal(t, tree.Int32(2), b.Properties["Size"])

	id := NewSnapshotID()
	withID := base.WithSnapshotID(id).WithName("Brick").WithChild(NewSnapshot("Decal"))
	require.NotNil(t, withID.SnapshotID)
	assert.Equal(t, id, *withID.SnapshotID)
	assert.Equal(t, "Brick", withID.Name)
	require.Len(t, withID.Children, 1)
	assert.Empty(t, base.Children)
}

func TestSnapshotIDs(t *testing.T) {
	id := NewSnapshotID()

	parsed, err := ParseSnapshotID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseSnapshotID("nope")
	assert.ErrorContains(t, err, "invalid snapshot ID")

	ref := RefToSnapshot(id)
	assert.Equal(t, id.String(), ref.Target.String())
}
