package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/dyluth/drey/pkg/tree"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Source is the tree a change log was applied to. *tree.Tree implements it.
type Source interface {
	Get(id tree.ID) (*tree.Instance, bool)
}

// Client provides mirror-scoped Redis operations.
// All keys and channels are automatically namespaced with the mirror name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb        *redis.Client
	mirrorName string
	now        func() time.Time
}

// NewClient creates a new mirror client.
// The client automatically namespaces all keys and channels with the mirror name.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - mirrorName: mirror identifier (must not be empty)
//
// Returns an error if mirrorName is empty.
func NewClient(redisOpts *redis.Options, mirrorName string) (*Client, error) {
	if mirrorName == "" {
		return nil, fmt.Errorf("mirror name cannot be empty")
	}

	return &Client{
		rdb:        redis.NewClient(redisOpts),
		mirrorName: mirrorName,
		now:        time.Now,
	}, nil
}

// Name returns the mirror name used to namespace keys.
func (c *Client) Name() string {
	return c.mirrorName
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Sync replaces the mirrored instances with the full contents of t.
// Instance records that no longer exist in t are deleted. History is kept.
func (c *Client) Sync(ctx context.Context, t *tree.Tree) error {
	nowMs := c.now().UnixMilli()

	keep := make(map[string]struct{}, t.Len())
	hashes := make(map[string]map[string]interface{}, t.Len())
	var walkErr error
	t.Walk(func(inst *tree.Instance, _ int) bool {
		hash, err := InstanceToHash(RecordFromInstance(inst, nowMs))
		if err != nil {
			walkErr = fmt.Errorf("failed to serialize instance %s: %w", inst.ID(), err)
			return false
		}
		key := InstanceKey(c.mirrorName, inst.ID().String())
		keep[key] = struct{}{}
		hashes[key] = hash
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	existing, err := c.scanKeys(ctx, InstanceKeyPattern(c.mirrorName, ""))
	if err != nil {
		return fmt.Errorf("failed to list mirrored instances: %w", err)
	}
	var stale []string
	for _, key := range existing {
		if _, ok := keep[key]; !ok {
			stale = append(stale, key)
		}
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		for key, hash := range hashes {
			// Full replacement, so fields never linger from an older record
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, hash)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write instances to Redis: %w", err)
	}

	return nil
}

// Replicate copies the changes recorded in applied into the mirror, reading
// the current state of every touched instance from source. It records the
// change in the history and publishes it to
// drey:{mirror}:change_events after a successful write.
//
// Removed instances are deleted together with every mirrored descendant.
// Parents of added and removed instances are rewritten so their children
// lists stay current. An empty change log is not replicated and returns
// (nil, nil).
func (c *Client) Replicate(ctx context.Context, source Source, applied snapshot.AppliedPatchSet) (*ChangeEvent, error) {
	if applied.IsEmpty() {
		return nil, nil
	}

	nowMs := c.now().UnixMilli()
	event := ChangeEventFromApplied(applied, nowMs)

	var dirty []tree.ID
	seen := make(map[tree.ID]struct{})
	markDirty := func(id tree.ID) {
		if id.IsNone() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		dirty = append(dirty, id)
	}

	// Collect mirrored subtrees before anything is deleted.
	var doomed []string
	for _, id := range applied.Removed {
		keys, parent, err := c.storedSubtree(ctx, id.String())
		if err != nil {
			return nil, err
		}
		doomed = append(doomed, keys...)
		if parentID, err := tree.ParseID(parent); err == nil {
			markDirty(parentID)
		}
	}

	for _, id := range applied.Added {
		markDirty(id)
		if inst, ok := source.Get(id); ok {
			markDirty(inst.Parent())
		}
	}

	for _, u := range applied.Updated {
		markDirty(u.ID)
	}

	type write struct {
		key  string
		hash map[string]interface{}
	}
	writes := make([]write, 0, len(dirty))
	for _, id := range dirty {
		inst, ok := source.Get(id)
		if !ok {
			// Gone from the source, for instance an ancestor that was removed
			continue
		}
		hash, err := InstanceToHash(RecordFromInstance(inst, nowMs))
		if err != nil {
			return nil, fmt.Errorf("failed to serialize instance %s: %w", id, err)
		}
		writes = append(writes, write{key: InstanceKey(c.mirrorName, id.String()), hash: hash})
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal change event: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(doomed) > 0 {
			pipe.Del(ctx, doomed...)
		}
		for _, w := range writes {
			pipe.Del(ctx, w.key)
			pipe.HSet(ctx, w.key, w.hash)
		}
		pipe.Set(ctx, ChangeKey(c.mirrorName, event.ID), eventJSON, 0)
		pipe.ZAdd(ctx, HistoryKey(c.mirrorName), redis.Z{
			Score:  HistoryScore(nowMs),
			Member: event.ID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write change to Redis: %w", err)
	}

	channel := ChangeEventsChannel(c.mirrorName)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return nil, fmt.Errorf("failed to publish change event: %w", err)
	}

	return event, nil
}

// storedSubtree returns the keys of the mirrored instance id and all its
// mirrored descendants, plus the stored parent of id. Instances that were
// never mirrored contribute nothing.
func (c *Client) storedSubtree(ctx context.Context, id string) (keys []string, parent string, err error) {
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		key := InstanceKey(c.mirrorName, current)
		values, err := c.rdb.HMGet(ctx, key, "parent", "children").Result()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read instance %s from Redis: %w", current, err)
		}
		if values[0] == nil && values[1] == nil {
			continue
		}

		keys = append(keys, key)
		if current == id {
			parent, _ = values[0].(string)
		}

		childrenJSON, _ := values[1].(string)
		if childrenJSON == "" {
			continue
		}
		var children []string
		if err := json.Unmarshal([]byte(childrenJSON), &children); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal children of %s: %w", current, err)
		}
		queue = append(queue, children...)
	}
	return keys, parent, nil
}

// GetInstance retrieves a mirrored instance by ID.
// Returns (nil, redis.Nil) if the instance isn't mirrored.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetInstance(ctx context.Context, instanceID string) (*InstanceRecord, error) {
	key := InstanceKey(c.mirrorName, instanceID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read instance from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToInstance(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize instance: %w", err)
	}

	return record, nil
}

// InstanceExists checks if an instance is mirrored without fetching it.
func (c *Client) InstanceExists(ctx context.Context, instanceID string) (bool, error) {
	key := InstanceKey(c.mirrorName, instanceID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check instance existence: %w", err)
	}
	return exists > 0, nil
}

// ScanInstances returns the IDs of mirrored instances starting with prefix,
// sorted. An empty prefix lists every instance.
func (c *Client) ScanInstances(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.scanKeys(ctx, InstanceKeyPattern(c.mirrorName, prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan instances: %w", err)
	}

	keyPrefix := InstanceKey(c.mirrorName, "")
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, keyPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// GetChange retrieves a replicated change event by ID.
// Returns (nil, redis.Nil) if the change doesn't exist.
func (c *Client) GetChange(ctx context.Context, changeID string) (*ChangeEvent, error) {
	data, err := c.rdb.Get(ctx, ChangeKey(c.mirrorName, changeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read change from Redis: %w", err)
	}

	event, err := unmarshalChangeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize change: %w", err)
	}
	return event, nil
}

// History returns the change events applied within [sinceMs, untilMs],
// oldest first. A zero bound leaves that side of the range open.
func (c *Client) History(ctx context.Context, sinceMs, untilMs int64) ([]*ChangeEvent, error) {
	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if sinceMs > 0 {
		rangeBy.Min = fmt.Sprintf("%d", sinceMs)
	}
	if untilMs > 0 {
		rangeBy.Max = fmt.Sprintf("%d", untilMs)
	}

	changeIDs, err := c.rdb.ZRangeByScore(ctx, HistoryKey(c.mirrorName), rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read change history: %w", err)
	}

	events := make([]*ChangeEvent, 0, len(changeIDs))
	for _, changeID := range changeIDs {
		event, err := c.GetChange(ctx, changeID)
		if err != nil {
			if IsNotFound(err) {
				return nil, fmt.Errorf("history references missing change %s", changeID)
			}
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Subscription represents an active Pub/Sub subscription to change events.
// Caller must call Close() when done to clean up resources.
// Subscriptions deliver full change events via the Events() channel.
type Subscription struct {
	events <-chan *ChangeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *ChangeEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChanges subscribes to change events for this mirror.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub (at-most-once delivery).
func (c *Client) SubscribeChanges(ctx context.Context) (*Subscription, error) {
	channel := ChangeEventsChannel(c.mirrorName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change events: %w", err)
	}

	eventsChan := make(chan *ChangeEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				event, err := unmarshalChangeEvent([]byte(msg.Payload))
				if err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetInstance or GetChange returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
