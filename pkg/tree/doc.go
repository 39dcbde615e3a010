// Package tree provides the canonical in-memory instance tree that drey keeps in
// sync with an external authoritative source.
//
// # Overview
//
// A Tree is a rooted hierarchy of Instances. Every instance carries a name, a
// class (a type tag), a property map, an ordered list of children and an opaque
// Metadata payload owned by the surrounding system. Identifiers (ID) are minted
// by the tree on insertion and are stable for the lifetime of the instance.
//
// # Property Values
//
// Property values form a closed set of kinds (String, Bool, Int32, Int64,
// Float32, Float64 and Ref). Ref is the only kind holding an identifier and is
// therefore the only kind that needs translating when patches are applied.
//
//	t := tree.New(tree.InstanceProperties{Name: "Workspace", Class: "Folder"})
//	id := t.Insert(t.RootID(), tree.InstanceProperties{
//		Name:  "Part",
//		Class: "Part",
//		Properties: tree.Properties{
//			"Anchored": tree.Bool(true),
//		},
//	})
//
// # Concurrency
//
// A Tree is not safe for concurrent use. Callers serialize mutations, usually by
// allowing a single patch application in flight at a time.
package tree
