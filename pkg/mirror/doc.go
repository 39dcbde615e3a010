// Package mirror replicates applied patch sets from an in-memory instance tree
// into Redis, where other processes can read instances, browse the change
// history and subscribe to live change events.
//
// # Overview
//
// The mirror is a secondary observer of a tree. It never computes changes
// itself: the caller applies a patch with snapshot.ApplyPatchSet and hands the
// resulting change log to Client.Replicate, which copies exactly the accepted
// subset of changes. Patch entries that were skipped as stale never reach the
// mirror.
//
// # Core Concepts
//
// Instance records hold the current state of one mirrored instance: name,
// class, encoded properties, ordered children and parent, and metadata.
//
// Change events describe one replicated change log. They are stored by ID,
// indexed in a time-ordered history, and published to subscribers.
//
// # Multi-Mirror Support
//
// All Redis keys and Pub/Sub channels are namespaced by mirror name, so several
// trees can be mirrored into a single Redis server without interference.
//
// # Usage Example
//
//	client, err := mirror.NewClient(&redis.Options{Addr: "localhost:6379"}, "workspace")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	applied := snapshot.ApplyPatchSet(t, patch, diag)
//	event, err := client.Replicate(ctx, t, applied)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Redis Schema
//
// All Redis keys follow the pattern: drey:{mirror_name}:{entity}:{id}
//
// Instances: drey:{mirror_name}:instance:{instance_id} (hash)
// Changes: drey:{mirror_name}:change:{change_id} (JSON string)
// History: drey:{mirror_name}:history (ZSET, score = applied_at_ms)
//
// Pub/Sub channel: drey:{mirror_name}:change_events
package mirror
