package core

// =============================================================================
// SHOTGUN EVENTS
// One Shotgun event-log entry describes a single field change on a single
// entity. Multi-valued fields report added/removed deltas instead of
// before/after snapshots: snapshot diffing is unreliable under concurrent
// edits from multiple users.
// =============================================================================

// ShotgunEvent is the payload the bridge receives for one Shotgun change.
type ShotgunEvent struct {
	// EventType is the event-log type, e.g. "Shotgun_Task_Change".
	EventType string `json:"event_type"`

	// EntityType and EntityID identify the changed entity.
	EntityType string `json:"entity_type"`
	EntityID   int    `json:"entity_id"`

	// Project is the owning project, when the event carries one.
	Project *EntityRef `json:"project,omitempty"`

	// User is the account that made the change.
	User *EntityRef `json:"user,omitempty"`

	// Meta describes the field change itself.
	Meta ChangeMeta `json:"meta"`
}

// ChangeMeta is a single field's change, either as an old/new snapshot or,
// for multi-valued fields, as added/removed sets.
type ChangeMeta struct {
	FieldName string `json:"attribute_name"`
	NewValue  any    `json:"new_value,omitempty"`
	OldValue  any    `json:"old_value,omitempty"`
	Added     []any  `json:"added,omitempty"`
	Removed   []any  `json:"removed,omitempty"`
}

// IsListChange reports whether the change carries added/removed deltas
// rather than a value snapshot.
func (m *ChangeMeta) IsListChange() bool {
	return m.Added != nil || m.Removed != nil
}

// AddedRefs returns the added delta as entity references, dropping any
// entry that is not reference-shaped.
func (m *ChangeMeta) AddedRefs() []*EntityRef {
	return refsFromList(m.Added)
}

// RemovedRefs returns the removed delta as entity references.
func (m *ChangeMeta) RemovedRefs() []*EntityRef {
	return refsFromList(m.Removed)
}

func refsFromList(values []any) []*EntityRef {
	refs := make([]*EntityRef, 0, len(values))
	for _, v := range values {
		if ref := RefFrom(v); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Filter is a single find condition, e.g. {"email", "is", addr}.
type Filter struct {
	Field    string
	Relation string
	Value    any
}
