package mirror

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by mirror name so several
// mirrors can coexist on a single Redis server.
//
// Key pattern: drey:{mirror_name}:{entity}:{id}
// Channel pattern: drey:{mirror_name}:change_events

// InstanceKey returns the Redis key for a mirrored instance.
// Pattern: drey:{mirror_name}:instance:{instance_id}
func InstanceKey(mirrorName, instanceID string) string {
	return fmt.Sprintf("drey:%s:instance:%s", mirrorName, instanceID)
}

// InstanceKeyPattern returns a SCAN pattern matching every instance key whose
// ID starts with prefix. An empty prefix matches all instances.
func InstanceKeyPattern(mirrorName, prefix string) string {
	return InstanceKey(mirrorName, prefix) + "*"
}

// ChangeKey returns the Redis key for a stored change event.
// Pattern: drey:{mirror_name}:change:{change_id}
func ChangeKey(mirrorName, changeID string) string {
	return fmt.Sprintf("drey:%s:change:%s", mirrorName, changeID)
}

// HistoryKey returns the Redis key for the change history ZSET.
// Pattern: drey:{mirror_name}:history
func HistoryKey(mirrorName string) string {
	return fmt.Sprintf("drey:%s:history", mirrorName)
}

// ChangeEventsChannel returns the Pub/Sub channel name for change events.
// Pattern: drey:{mirror_name}:change_events
func ChangeEventsChannel(mirrorName string) string {
	return fmt.Sprintf("drey:%s:change_events", mirrorName)
}
