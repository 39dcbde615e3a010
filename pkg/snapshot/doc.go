// Package snapshot defines patches against the instance tree and the algorithm
// that applies them.
//
// # Identifier Spaces
//
// Instances that already live in the tree are addressed by tree.ID. Instances
// described by a patch but not yet created are addressed by SnapshotID, which
// is only meaningful during the ApplyPatchSet call that introduces it. A Ref
// property inside a patch may hold an identifier from either space; it is
// translated to tree space when the snapshot it names has been created, and
// written through unchanged otherwise.
//
// # Application Order
//
// ApplyPatchSet runs four phases in strict order:
//
//  1. Removals, so stale identifiers are gone before new structure is built.
//  2. Additions, which create every new subtree with empty property maps and
//     record snapshot-to-tree translations.
//  3. Updates, which can now translate references to anything added above.
//  4. Finalization, which assigns the deferred properties of added instances
//     using the completed translation table.
//
// Patches may be partially stale. Removing or updating an instance that no
// longer exists is reported through the Diagnostics sink and omitted from the
// returned AppliedPatchSet; the rest of the patch still applies.
package snapshot
