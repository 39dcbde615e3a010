package mirror

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/dyluth/drey/pkg/tree"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Structured fields such
// as properties and children are JSON-encoded into single hash fields. The
// scalar fields stay individually readable with HGET.

// InstanceToHash converts an InstanceRecord to a Redis hash format.
// Properties, children and metadata are JSON-encoded.
func InstanceToHash(r *InstanceRecord) (map[string]interface{}, error) {
	propertiesJSON, err := json.Marshal(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %w", err)
	}

	children := r.Children
	if children == nil {
		children = []string{}
	}
	childrenJSON, err := json.Marshal(children)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal children: %w", err)
	}

	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	hash := map[string]interface{}{
		"id":            r.ID,
		"parent":        r.Parent,
		"name":          r.Name,
		"class":         r.Class,
		"properties":    string(propertiesJSON),
		"children":      string(childrenJSON),
		"metadata":      string(metadataJSON),
		"updated_at_ms": r.UpdatedAtMs,
	}

	return hash, nil
}

// HashToInstance converts a Redis hash to an InstanceRecord.
// JSON fields are decoded back to Go types.
func HashToInstance(hash map[string]string) (*InstanceRecord, error) {
	var properties map[string]tree.EncodedValue
	if propertiesJSON := hash["properties"]; propertiesJSON != "" {
		if err := unmarshalNumbers([]byte(propertiesJSON), &properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
		}
	}
	if properties == nil {
		properties = map[string]tree.EncodedValue{}
	}

	var children []string
	if childrenJSON := hash["children"]; childrenJSON != "" {
		if err := json.Unmarshal([]byte(childrenJSON), &children); err != nil {
			return nil, fmt.Errorf("failed to unmarshal children: %w", err)
		}
	}

	// Ensure we have an empty slice instead of nil for consistency
	if children == nil {
		children = []string{}
	}

	var metadata tree.Metadata
	if metadataJSON := hash["metadata"]; metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &InstanceRecord{
		ID:          hash["id"],
		Parent:      hash["parent"],
		Name:        hash["name"],
		Class:       hash["class"],
		Properties:  properties,
		Children:    children,
		Metadata:    metadata,
		UpdatedAtMs: updatedAtMs,
	}, nil
}

// RecordFromInstance captures the current state of inst.
func RecordFromInstance(inst *tree.Instance, nowMs int64) *InstanceRecord {
	children := make([]string, 0, len(inst.Children()))
	for _, id := range inst.Children() {
		children = append(children, id.String())
	}

	parent := ""
	if !inst.Parent().IsNone() {
		parent = inst.Parent().String()
	}

	return &InstanceRecord{
		ID:          inst.ID().String(),
		Parent:      parent,
		Name:        inst.Name(),
		Class:       inst.Class(),
		Properties:  tree.EncodeProperties(inst.Properties()),
		Children:    children,
		Metadata:    inst.Metadata().Clone(),
		UpdatedAtMs: nowMs,
	}
}

// DecodedProperties returns the record's properties as tree values.
func (r *InstanceRecord) DecodedProperties() (tree.Properties, error) {
	return tree.DecodeProperties(r.Properties)
}

// ChangeEventFromApplied builds the change event for an applied patch set and
// assigns it a fresh ID.
func ChangeEventFromApplied(applied snapshot.AppliedPatchSet, nowMs int64) *ChangeEvent {
	event := &ChangeEvent{
		ID:          uuid.New().String(),
		AppliedAtMs: nowMs,
		Removed:     idStrings(applied.Removed),
		Added:       idStrings(applied.Added),
		Updated:     make([]UpdateRecord, 0, len(applied.Updated)),
	}

	for _, u := range applied.Updated {
		record := UpdateRecord{
			ID:    u.ID.String(),
			Name:  u.ChangedName,
			Class: u.ChangedClass,
		}
		if u.ChangedMetadata != nil {
			m := u.ChangedMetadata.Clone()
			record.Metadata = &m
		}
		if len(u.ChangedProperties) > 0 {
			record.Properties = make(map[string]PropertyRecord, len(u.ChangedProperties))
			for key, change := range u.ChangedProperties {
				switch change.Op() {
				case snapshot.ChangeSet:
					enc := tree.EncodeValue(change.Value())
					record.Properties[key] = PropertyRecord{Op: PropertyOpSet, Value: &enc}
				case snapshot.ChangeRemove:
					record.Properties[key] = PropertyRecord{Op: PropertyOpRemove}
				}
			}
		}
		event.Updated = append(event.Updated, record)
	}

	return event
}

// Applied converts the event back into an applied patch set.
func (e *ChangeEvent) Applied() (snapshot.AppliedPatchSet, error) {
	removed, err := parseIDs(e.Removed)
	if err != nil {
		return snapshot.AppliedPatchSet{}, fmt.Errorf("removed: %w", err)
	}
	added, err := parseIDs(e.Added)
	if err != nil {
		return snapshot.AppliedPatchSet{}, fmt.Errorf("added: %w", err)
	}

	applied := snapshot.AppliedPatchSet{
		Removed: removed,
		Added:   added,
		Updated: make([]snapshot.AppliedPatchUpdate, 0, len(e.Updated)),
	}

	for _, record := range e.Updated {
		id, err := tree.ParseID(record.ID)
		if err != nil {
			return snapshot.AppliedPatchSet{}, fmt.Errorf("updated: %w", err)
		}
		u := snapshot.NewAppliedPatchUpdate(id)
		u.ChangedName = record.Name
		u.ChangedClass = record.Class
		u.ChangedMetadata = record.Metadata
		for key, p := range record.Properties {
			switch p.Op {
			case PropertyOpSet:
				if p.Value == nil {
					return snapshot.AppliedPatchSet{}, fmt.Errorf("updated %s: property %q: set without a value", record.ID, key)
				}
				v, err := tree.DecodeValue(*p.Value)
				if err != nil {
					return snapshot.AppliedPatchSet{}, fmt.Errorf("updated %s: property %q: %w", record.ID, key, err)
				}
				u.ChangedProperties[key] = snapshot.Set(v)
			case PropertyOpRemove:
				u.ChangedProperties[key] = snapshot.Remove()
			default:
				return snapshot.AppliedPatchSet{}, fmt.Errorf("updated %s: property %q: unknown property op: %q", record.ID, key, p.Op)
			}
		}
		applied.Updated = append(applied.Updated, u)
	}

	return applied, nil
}

// unmarshalChangeEvent decodes a stored or published change event.
func unmarshalChangeEvent(data []byte) (*ChangeEvent, error) {
	var event ChangeEvent
	if err := unmarshalNumbers(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// unmarshalNumbers decodes JSON keeping numbers as json.Number, so Int64
// property values survive the round trip exactly.
func unmarshalNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func idStrings(ids []tree.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseIDs(ids []string) ([]tree.ID, error) {
	out := make([]tree.ID, 0, len(ids))
	for _, s := range ids {
		id, err := tree.ParseID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
