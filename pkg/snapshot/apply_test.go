package snapshot

import (
	"testing"

	"github.com/dyluth/drey/pkg/tree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newDiagnostics returns a sink backed by an in-memory zap core so tests can
// count reported misapplications.
func newDiagnostics() (Diagnostics, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core).Sugar(), logs
}

func newFolderTree(props tree.Properties) *tree.Tree {
	return tree.New(tree.InstanceProperties{
		Name:       "Folder",
		Class:      "Folder",
		Properties: props,
	})
}

func strPtr(s string) *string { return &s }

func childNamed(t *testing.T, tr *tree.Tree, parent tree.ID, name string) *tree.Instance {
	t.Helper()
	p, ok := tr.Get(parent)
	require.True(t, ok)
	for _, id := range p.Children() {
		inst, ok := tr.Get(id)
		require.True(t, ok)
		if inst.Name() == name {
			return inst
		}
	}
	t.Fatalf("no child named %q", name)
	return nil
}

func TestApplyPatchSet_AddFromEmpty(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	diag, logs := newDiagnostics()

	snap := InstanceSnapshot{
		Name:  "Foo",
		Class: "Bar",
		Properties: tree.Properties{
			"Baz": tree.Int32(5),
		},
	}

	applied := ApplyPatchSet(tr, PatchSet{
		Added: []PatchAdd{{ParentID: rootID, Instance: snap}},
	}, diag)

	root, _ := tr.Get(rootID)
	require.Len(t, root.Children(), 1)
	child, ok := tr.Get(root.Children()[0])
	require.True(t, ok)

	assert.Equal(t, "Foo", child.Name())
	assert.Equal(t, "Bar", child.Class())
	if diff := cmp.Diff(tree.Properties{"Baz": tree.Int32(5)}, child.Properties()); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, child.Children())

	assert.Equal(t, []tree.ID{child.ID()}, applied.Added)
	assert.Empty(t, applied.Removed)
	assert.Empty(t, applied.Updated)
	assert.Equal(t, 0, logs.Len())
}

func TestApplyPatchSet_UpdateExisting(t *testing.T) {
	tr := tree.New(tree.InstanceProperties{
		Name:  "OldName",
		Class: "OldClassName",
		Properties: tree.Properties{
			"Foo":       tree.Int32(7),
			"Bar":       tree.Int32(3),
			"Unchanged": tree.Int32(-5),
		},
	})
	rootID := tr.RootID()

	update := PatchUpdate{
		ID:           rootID,
		ChangedName:  strPtr("Foo"),
		ChangedClass: strPtr("NewClassName"),
		ChangedProperties: map[string]PropertyChange{
			// The value of Foo has changed
			"Foo": Set(tree.Int32(8)),
			// Bar has been deleted
			"Bar": Remove(),
			// Baz has been added
			"Baz": Set(tree.Int32(10)),
		},
	}

	applied := ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{update}}, nil)

	root, _ := tr.Get(rootID)
	assert.Equal(t, "Foo", root.Name())
	assert.Equal(t, "NewClassName", root.Class())
	assert.Equal(t, tree.Properties{
		"Foo":       tree.Int32(8),
		"Baz":       tree.Int32(10),
		"Unchanged": tree.Int32(-5),
	}, root.Properties())

	require.Len(t, applied.Updated, 1)
	got := applied.Updated[0]
	assert.Equal(t, rootID, got.ID)
	assert.Equal(t, "Foo", *got.ChangedName)
	assert.Equal(t, "NewClassName", *got.ChangedClass)
	assert.Nil(t, got.ChangedMetadata)
	assert.Equal(t, map[string]PropertyChange{
		"Foo": Set(tree.Int32(8)),
		"Bar": Remove(),
		"Baz": Set(tree.Int32(10)),
	}, got.ChangedProperties)
}

func TestApplyPatchSet_RemoveMissing(t *testing.T) {
	tr := newFolderTree(nil)
	diag, logs := newDiagnostics()
	missing := tree.NewID()

	applied := ApplyPatchSet(tr, PatchSet{Removed: []tree.ID{missing}}, diag)

	assert.Empty(t, applied.Removed)
	assert.True(t, applied.IsEmpty())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, missing.String())
	assert.Contains(t, entry.Message, "did not exist")
}

func TestApplyPatchSet_RemoveRoot(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	tr.Insert(rootID, tree.InstanceProperties{Name: "Child", Class: "Part"})
	diag, logs := newDiagnostics()

	applied := ApplyPatchSet(tr, PatchSet{Removed: []tree.ID{rootID}}, diag)

	assert.Empty(t, applied.Removed)
	assert.Equal(t, 2, tr.Len())
	require.Equal(t, 1, logs.Len())
	msg := logs.All()[0].Message
	assert.Contains(t, msg, rootID.String())
	assert.Contains(t, msg, "tree root")
	assert.NotContains(t, msg, "did not exist")
}

func TestApplyPatchSet_RemoveTwice(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	doomed := tr.Insert(rootID, tree.InstanceProperties{Name: "Doomed", Class: "Folder"})
	grandchild := tr.Insert(doomed, tree.InstanceProperties{Name: "Inner", Class: "Part"})
	survivor := tr.Insert(rootID, tree.InstanceProperties{Name: "Survivor", Class: "Part"})
	diag, logs := newDiagnostics()

	first := ApplyPatchSet(tr, PatchSet{Removed: []tree.ID{doomed}}, diag)
	assert.Equal(t, []tree.ID{doomed}, first.Removed)
	assert.Equal(t, 0, logs.Len())

	_, ok := tr.Get(grandchild)
	assert.False(t, ok, "descendants are removed with their ancestor")

	var second AppliedPatchSet
	assert.NotPanics(t, func() {
		second = ApplyPatchSet(tr, PatchSet{Removed: []tree.ID{doomed}}, diag)
	})
	assert.Empty(t, second.Removed)
	assert.Equal(t, 1, logs.Len())

	root, _ := tr.Get(rootID)
	assert.Equal(t, []tree.ID{survivor}, root.Children())
	assert.Equal(t, 2, tr.Len())
}

func TestApplyPatchSet_RemoveParentAndDescendant(t *testing.T) {
	tr := newFolderTree(nil)
	parent := tr.Insert(tr.RootID(), tree.InstanceProperties{Name: "Parent"})
	child := tr.Insert(parent, tree.InstanceProperties{Name: "Child"})
	diag, logs := newDiagnostics()

	applied := ApplyPatchSet(tr, PatchSet{Removed: []tree.ID{parent, child}}, diag)

	// The child went with its parent, so the second removal is stale.
	assert.Equal(t, []tree.ID{parent}, applied.Removed)
	assert.Equal(t, 1, logs.FilterMessageSnippet(child.String()).Len())
	assert.Equal(t, 1, tr.Len())
}

func TestApplyPatchSet_ForwardReferenceBetweenSiblings(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	diag, logs := newDiagnostics()

	s1 := NewSnapshotID()
	s2 := NewSnapshotID()

	// A is created first but points at B, which does not exist yet.
	a := NewSnapshot("ObjectValue").
		WithName("A").
		WithSnapshotID(s1).
		WithProperty("Value", RefToSnapshot(s2))
	b := NewSnapshot("Part").
		WithName("B").
		WithSnapshotID(s2).
		WithProperty("Pointer", RefToSnapshot(s1))

	applied := ApplyPatchSet(tr, PatchSet{
		Added: []PatchAdd{
			{ParentID: rootID, Instance: a},
			{ParentID: rootID, Instance: b},
		},
	}, diag)

	instA := childNamed(t, tr, rootID, "A")
	instB := childNamed(t, tr, rootID, "B")

	v, ok := instA.Property("Value")
	require.True(t, ok)
	assert.Equal(t, tree.RefTo(instB.ID()), v)
	assert.NotEqual(t, tree.ID(s2), v.(tree.Ref).Target, "snapshot IDs must not leak into the tree")

	v, ok = instB.Property("Pointer")
	require.True(t, ok)
	assert.Equal(t, tree.RefTo(instA.ID()), v)

	assert.Equal(t, []tree.ID{instA.ID(), instB.ID()}, applied.Added)
	assert.Equal(t, 0, logs.Len())
}

func TestApplyPatchSet_NestedChildren(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()

	leafID := NewSnapshotID()
	model := NewSnapshot("Model").
		WithName("Car").
		WithProperty("PrimaryPart", RefToSnapshot(leafID)).
		WithChild(NewSnapshot("Part").WithName("Body")).
		WithChild(NewSnapshot("Folder").WithName("Wheels").
			WithChild(NewSnapshot("Part").WithName("Front").WithSnapshotID(leafID)).
			WithChild(NewSnapshot("Part").WithName("Back")))

	applied := ApplyPatchSet(tr, PatchSet{
		Added: []PatchAdd{{ParentID: rootID, Instance: model}},
	}, nil)

	car := childNamed(t, tr, rootID, "Car")
	wheels := childNamed(t, tr, car.ID(), "Wheels")
	front := childNamed(t, tr, wheels.ID(), "Front")

	var names []string
	for _, id := range car.Children() {
		inst, _ := tr.Get(id)
		names = append(names, inst.Name())
	}
	assert.Equal(t, []string{"Body", "Wheels"}, names)

	v, _ := car.Property("PrimaryPart")
	assert.Equal(t, tree.RefTo(front.ID()), v)

	// Depth-first in declared order: Car, Body, Wheels, Front, Back.
	require.Len(t, applied.Added, 5)
	assert.Equal(t, car.ID(), applied.Added[0])
	assert.Equal(t, front.ID(), applied.Added[3])
	assert.Equal(t, 6, tr.Len())
}

func TestApplyPatchSet_AddedInstancesStartWithoutProperties(t *testing.T) {
	// A store wrapper that records the property map seen at insert time.
	tr := newFolderTree(nil)
	rec := &recordingStore{Tree: tr}

	snap := NewSnapshot("Part").WithProperty("Size", tree.Float64(2.5))
	ApplyPatchSet(rec, PatchSet{Added: []PatchAdd{{ParentID: tr.RootID(), Instance: snap}}}, nil)

	require.Len(t, rec.inserted, 1)
	assert.Empty(t, rec.inserted[0].Properties)

	child := childNamed(t, tr, tr.RootID(), "Part")
	v, _ := child.Property("Size")
	assert.Equal(t, tree.Float64(2.5), v)
}

func TestApplyPatchSet_AddCarriesMetadata(t *testing.T) {
	tr := newFolderTree(nil)
	meta := tree.Metadata{SourcePath: "src/Car.model.json", IgnoreUnknownInstances: true}

	applied := ApplyPatchSet(tr, PatchSet{Added: []PatchAdd{{
		ParentID: tr.RootID(),
		Instance: NewSnapshot("Model").WithMetadata(meta),
	}}}, nil)

	inst, ok := tr.Get(applied.Added[0])
	require.True(t, ok)
	assert.Equal(t, meta, inst.Metadata())
}

func TestApplyPatchSet_UpdateTranslatesNewReference(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	existing := tr.Insert(rootID, tree.InstanceProperties{Name: "Pointer", Class: "ObjectValue"})
	diag, logs := newDiagnostics()

	target := NewSnapshotID()
	applied := ApplyPatchSet(tr, PatchSet{
		Added: []PatchAdd{{ParentID: rootID, Instance: NewSnapshot("Part").WithName("Target").WithSnapshotID(target)}},
		Updated: []PatchUpdate{{
			ID:                existing,
			ChangedProperties: map[string]PropertyChange{"Value": Set(RefToSnapshot(target))},
		}},
	}, diag)

	created := childNamed(t, tr, rootID, "Target")
	inst, _ := tr.Get(existing)
	v, _ := inst.Property("Value")
	assert.Equal(t, tree.RefTo(created.ID()), v)

	require.Len(t, applied.Updated, 1)
	assert.Equal(t, Set(tree.RefTo(created.ID())), applied.Updated[0].ChangedProperties["Value"],
		"the applied log carries tree-space IDs only")
	assert.Equal(t, 0, logs.Len())
}

func TestApplyPatchSet_UpdateReferenceOutsidePatch(t *testing.T) {
	t.Run("pre-existing target is written through", func(t *testing.T) {
		tr := newFolderTree(nil)
		rootID := tr.RootID()
		pointer := tr.Insert(rootID, tree.InstanceProperties{Name: "Pointer"})
		target := tr.Insert(rootID, tree.InstanceProperties{Name: "Target"})
		diag, logs := newDiagnostics()

		ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
			ID:                pointer,
			ChangedProperties: map[string]PropertyChange{"Value": Set(tree.RefTo(target))},
		}}}, diag)

		inst, _ := tr.Get(pointer)
		v, _ := inst.Property("Value")
		assert.Equal(t, tree.RefTo(target), v)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("unknown target is kept and reported as dangling", func(t *testing.T) {
		// Permissive behaviour: a Ref matching neither the tree nor the patch is
		// written through unchanged, with one diagnostic.
		tr := newFolderTree(nil)
		pointer := tr.Insert(tr.RootID(), tree.InstanceProperties{Name: "Pointer"})
		dangling := tree.NewID()
		diag, logs := newDiagnostics()

		applied := ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
			ID:                pointer,
			ChangedProperties: map[string]PropertyChange{"Value": Set(tree.RefTo(dangling))},
		}}}, diag)

		inst, _ := tr.Get(pointer)
		v, _ := inst.Property("Value")
		assert.Equal(t, tree.RefTo(dangling), v)
		assert.Equal(t, Set(tree.RefTo(dangling)), applied.Updated[0].ChangedProperties["Value"])
		assert.Equal(t, 1, logs.FilterMessageSnippet("matches no instance").Len())
	})

	t.Run("nil reference is not translated", func(t *testing.T) {
		tr := newFolderTree(nil)
		pointer := tr.Insert(tr.RootID(), tree.InstanceProperties{
			Name:       "Pointer",
			Properties: tree.Properties{"Value": tree.RefTo(tr.RootID())},
		})
		diag, logs := newDiagnostics()

		ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
			ID:                pointer,
			ChangedProperties: map[string]PropertyChange{"Value": Set(tree.NilRef())},
		}}}, diag)

		inst, _ := tr.Get(pointer)
		v, ok := inst.Property("Value")
		require.True(t, ok, "setting a nil Ref is not a removal")
		assert.Equal(t, tree.NilRef(), v)
		assert.Equal(t, 0, logs.Len())
	})
}

func TestApplyPatchSet_DanglingReferenceInAddedSnapshot(t *testing.T) {
	tr := newFolderTree(nil)
	diag, logs := newDiagnostics()
	unknown := NewSnapshotID()

	applied := ApplyPatchSet(tr, PatchSet{Added: []PatchAdd{{
		ParentID: tr.RootID(),
		Instance: NewSnapshot("ObjectValue").WithProperty("Value", RefToSnapshot(unknown)),
	}}}, diag)

	inst, _ := tr.Get(applied.Added[0])
	v, _ := inst.Property("Value")
	assert.Equal(t, RefToSnapshot(unknown), v)
	assert.Equal(t, 1, logs.Len())
}

func TestApplyPatchSet_UpdateMissing(t *testing.T) {
	tr := newFolderTree(nil)
	diag, logs := newDiagnostics()
	missing := tree.NewID()
	meta := tree.Metadata{SourcePath: "gone"}

	applied := ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
		ID:                missing,
		ChangedName:       strPtr("Ghost"),
		ChangedMetadata:   &meta,
		ChangedProperties: map[string]PropertyChange{"Foo": Set(tree.Bool(true))},
	}}}, diag)

	assert.Empty(t, applied.Updated)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, missing.String())
}

func TestApplyPatchSet_UpdateAfterRemovalInSameCall(t *testing.T) {
	tr := newFolderTree(nil)
	doomed := tr.Insert(tr.RootID(), tree.InstanceProperties{Name: "Doomed"})
	diag, logs := newDiagnostics()

	applied := ApplyPatchSet(tr, PatchSet{
		Removed: []tree.ID{doomed},
		Updated: []PatchUpdate{{ID: doomed, ChangedName: strPtr("Revived")}},
	}, diag)

	assert.Equal(t, []tree.ID{doomed}, applied.Removed)
	assert.Empty(t, applied.Updated)
	assert.Equal(t, 1, logs.Len())
	_, ok := tr.Get(doomed)
	assert.False(t, ok)
}

func TestApplyPatchSet_UpdateMetadata(t *testing.T) {
	tr := newFolderTree(nil)
	meta := tree.Metadata{SourcePath: "src/init.lua", RelevantPaths: []string{"src"}}

	applied := ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
		ID:              tr.RootID(),
		ChangedMetadata: &meta,
	}}}, nil)

	root, _ := tr.Get(tr.RootID())
	assert.Equal(t, meta, root.Metadata())
	require.Len(t, applied.Updated, 1)
	require.NotNil(t, applied.Updated[0].ChangedMetadata)
	assert.Equal(t, meta, *applied.Updated[0].ChangedMetadata)
	assert.Nil(t, applied.Updated[0].ChangedName)
}

func TestApplyPatchSet_UnchangedEntriesAreNotRecorded(t *testing.T) {
	tr := newFolderTree(tree.Properties{"Keep": tree.String("me")})

	applied := ApplyPatchSet(tr, PatchSet{Updated: []PatchUpdate{{
		ID: tr.RootID(),
		ChangedProperties: map[string]PropertyChange{
			"Keep":    Unchanged(),
			"Missing": Remove(),
		},
	}}}, nil)

	root, _ := tr.Get(tr.RootID())
	assert.Equal(t, tree.Properties{"Keep": tree.String("me")}, root.Properties())

	require.Len(t, applied.Updated, 1)
	assert.Equal(t, map[string]PropertyChange{"Missing": Remove()}, applied.Updated[0].ChangedProperties)
}

func TestApplyPatchSet_EmptyPatch(t *testing.T) {
	tr := newFolderTree(nil)
	diag, logs := newDiagnostics()

	applied := ApplyPatchSet(tr, PatchSet{}, diag)

	assert.True(t, applied.IsEmpty())
	assert.NotNil(t, applied.Removed)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 0, logs.Len())
}

func TestApplyPatchSet_ChangeLogOmitsSkippedTargets(t *testing.T) {
	tr := newFolderTree(nil)
	rootID := tr.RootID()
	present := tr.Insert(rootID, tree.InstanceProperties{Name: "Present"})
	gone1, gone2 := tree.NewID(), tree.NewID()
	diag, logs := newDiagnostics()

	applied := ApplyPatchSet(tr, PatchSet{
		Removed: []tree.ID{gone1, present},
		Updated: []PatchUpdate{
			{ID: gone2, ChangedName: strPtr("x")},
			{ID: rootID, ChangedName: strPtr("Renamed")},
		},
	}, diag)

	assert.Equal(t, []tree.ID{present}, applied.Removed)
	require.Len(t, applied.Updated, 1)
	assert.Equal(t, rootID, applied.Updated[0].ID)
	assert.Equal(t, 2, logs.Len())
}

func TestApplyPatchSet_LostInstancePanics(t *testing.T) {
	tr := newFolderTree(nil)
	store := &forgetfulStore{Tree: tr}

	assert.Panics(t, func() {
		ApplyPatchSet(store, PatchSet{Added: []PatchAdd{{
			ParentID: tr.RootID(),
			Instance: NewSnapshot("Part"),
		}}}, nil)
	})
}

func TestDiagnosticsFunc(t *testing.T) {
	var got []string
	diag := DiagnosticsFunc(func(format string, args ...any) {
		got = append(got, format)
	})

	ApplyPatchSet(newFolderTree(nil), PatchSet{Removed: []tree.ID{tree.NewID()}}, diag)
	assert.Len(t, got, 1)
}

// recordingStore captures the initial state of every inserted instance.
type recordingStore struct {
	*tree.Tree
	inserted []tree.InstanceProperties
}

func (s *recordingStore) Insert(parent tree.ID, props tree.InstanceProperties) tree.ID {
	s.inserted = append(s.inserted, props)
	return s.Tree.Insert(parent, props)
}

// forgetfulStore loses every instance it inserts, which breaks the contract
// finalization relies on.
type forgetfulStore struct {
	*tree.Tree
	minted map[tree.ID]bool
}

func (s *forgetfulStore) Insert(parent tree.ID, props tree.InstanceProperties) tree.ID {
	if s.minted == nil {
		s.minted = make(map[tree.ID]bool)
	}
	id := s.Tree.Insert(parent, props)
	s.minted[id] = true
	return id
}

func (s *forgetfulStore) Get(id tree.ID) (*tree.Instance, bool) {
	if s.minted[id] {
		return nil, false
	}
	return s.Tree.Get(id)
}
