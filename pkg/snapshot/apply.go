package snapshot

import (
	"fmt"

	"github.com/dyluth/drey/pkg/tree"
)

// Store is the part of the tree that patch application needs. *tree.Tree
// implements it.
type Store interface {
	// Insert creates a child of parent and returns its new ID.
	Insert(parent tree.ID, props tree.InstanceProperties) tree.ID
	// Remove deletes id and its descendants, reporting whether id existed.
	Remove(id tree.ID) bool
	// Get returns a handle through which the instance can be mutated.
	Get(id tree.ID) (*tree.Instance, bool)
	// UpdateMetadata replaces the metadata of id.
	UpdateMetadata(id tree.ID, m tree.Metadata) bool
}

// ApplyPatchSet applies every change of patchSet to store and returns the
// subset that took effect. It never fails: removals and updates naming
// instances that no longer exist are reported to diag and skipped. A nil diag
// discards reports.
//
// The store must not be mutated by anyone else until ApplyPatchSet returns.
func ApplyPatchSet(store Store, patchSet PatchSet, diag Diagnostics) AppliedPatchSet {
	if diag == nil {
		diag = NopDiagnostics{}
	}
	ctx := newApplyContext(store, diag)

	for _, id := range patchSet.Removed {
		ctx.removeInstance(id)
	}

	for _, add := range patchSet.Added {
		ctx.addChild(add.ParentID, add.Instance)
	}

	// Updates run after additions so references to instances created by this
	// patch can be translated.
	for _, update := range patchSet.Updated {
		ctx.updateInstance(update)
	}

	return ctx.finalize()
}

// applyContext is the state of a single ApplyPatchSet call.
type applyContext struct {
	store Store
	diag  Diagnostics

	// snapshotToInstance maps snapshot IDs of instances created by this call to
	// their tree IDs. A Ref whose target is missing here either already points
	// into tree space or names a snapshot outside this patch; the two cases
	// cannot be told apart, so the target is kept as is.
	snapshotToInstance map[SnapshotID]tree.ID

	// deferred holds the properties of added instances in creation order.
	// Assigning them waits until every instance of the patch exists, since any
	// of them may be the target of a Ref.
	deferred []deferredProperties

	applied AppliedPatchSet
}

type deferredProperties struct {
	id         tree.ID
	properties tree.Properties
}

func newApplyContext(store Store, diag Diagnostics) *applyContext {
	return &applyContext{
		store:              store,
		diag:               diag,
		snapshotToInstance: make(map[SnapshotID]tree.ID),
		applied: AppliedPatchSet{
			Removed: []tree.ID{},
			Added:   []tree.ID{},
			Updated: []AppliedPatchUpdate{},
		},
	}
}

func (c *applyContext) removeInstance(id tree.ID) {
	if !c.store.Remove(id) {
		if _, ok := c.store.Get(id); ok {
			c.diag.Warnf("Patch misapplication: tried to remove instance %s but it is the tree root and cannot be removed", id)
			return
		}
		c.diag.Warnf("Patch misapplication: tried to remove instance %s but it did not exist", id)
		return
	}
	c.applied.Removed = append(c.applied.Removed, id)
}

func (c *applyContext) addChild(parent tree.ID, snap InstanceSnapshot) {
	id := c.store.Insert(parent, tree.InstanceProperties{
		Name:     snap.Name,
		Class:    snap.Class,
		Metadata: snap.Metadata,
		// Properties are assigned in finalize.
		Properties: tree.Properties{},
	})

	c.applied.Added = append(c.applied.Added, id)
	c.deferred = append(c.deferred, deferredProperties{id: id, properties: snap.Properties})

	if snap.SnapshotID != nil {
		c.snapshotToInstance[*snap.SnapshotID] = id
	}

	for _, child := range snap.Children {
		c.addChild(id, child)
	}
}

func (c *applyContext) updateInstance(update PatchUpdate) {
	inst, ok := c.store.Get(update.ID)
	if !ok {
		c.diag.Warnf("Patch misapplication: instance %s, referred to by update patch, did not exist", update.ID)
		return
	}

	applied := NewAppliedPatchUpdate(update.ID)

	if update.ChangedMetadata != nil {
		m := update.ChangedMetadata.Clone()
		c.store.UpdateMetadata(update.ID, m)
		applied.ChangedMetadata = &m
	}

	if update.ChangedName != nil {
		name := *update.ChangedName
		inst.SetName(name)
		applied.ChangedName = &name
	}

	if update.ChangedClass != nil {
		class := *update.ChangedClass
		inst.SetClass(class)
		applied.ChangedClass = &class
	}

	for key, change := range update.ChangedProperties {
		switch change.Op() {
		case ChangeSet:
			v := c.resolve(change.Value())
			inst.SetProperty(key, v)
			applied.ChangedProperties[key] = Set(v)
		case ChangeRemove:
			inst.RemoveProperty(key)
			applied.ChangedProperties[key] = change
		case ChangeUnchanged:
		default:
			panic(fmt.Sprintf("snapshot: unknown property change %s for %q", change.Op(), key))
		}
	}

	c.applied.Updated = append(c.applied.Updated, applied)
}

// finalize assigns the deferred properties of every added instance and
// returns the applied patch set. The context must not be used afterwards.
func (c *applyContext) finalize() AppliedPatchSet {
	for _, d := range c.deferred {
		inst, ok := c.store.Get(d.id)
		if !ok {
			// Instances are inserted before their properties are deferred, so
			// this means the store lost an instance mid-call.
			panic(fmt.Sprintf("snapshot: invalid instance ID %s in deferred property map", d.id))
		}

		for key, v := range d.properties {
			inst.SetProperty(key, c.resolve(v))
		}
	}

	applied := c.applied
	c.deferred = nil
	c.snapshotToInstance = nil
	return applied
}

// resolve translates a Ref from snapshot space into tree space if its target
// was created by this patch. Every other value is returned unchanged.
func (c *applyContext) resolve(v tree.Value) tree.Value {
	switch v := v.(type) {
	case tree.Ref:
		if v.Target.IsNone() {
			return v
		}
		if id, ok := c.snapshotToInstance[SnapshotID(v.Target)]; ok {
			return tree.RefTo(id)
		}
		if _, ok := c.store.Get(v.Target); !ok {
			c.diag.Warnf("Patch misapplication: reference to %s matches no instance in the tree or the patch, keeping it as is", v.Target)
		}
		return v
	case tree.String, tree.Bool, tree.Int32, tree.Int64, tree.Float32, tree.Float64:
		return v
	default:
		panic(fmt.Sprintf("snapshot: unhandled property value type %T", v))
	}
}
