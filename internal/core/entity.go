package core

import "fmt"

// =============================================================================
// ENTITY MODEL
// Shotgun entities travel through the pipelines either as bare references
// (type + id) or as consolidated entities carrying the fields that were
// requested when they were retrieved.
// =============================================================================

// EntityRef identifies a Shotgun entity. Name carries the entity's display
// name when known ("name", "code" or "content" on the wire, depending on
// the entity type; consolidation normalizes this to Name).
type EntityRef struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

func (r *EntityRef) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Name != "" {
		return fmt.Sprintf("%s(%d) %q", r.Type, r.ID, r.Name)
	}
	return fmt.Sprintf("%s(%d)", r.Type, r.ID)
}

// IsHumanUser reports whether the reference points at a person, as opposed
// to a script user or a group.
func (r *EntityRef) IsHumanUser() bool {
	return r != nil && r.Type == "HumanUser"
}

// Payload returns the wire form of the reference for update calls.
func (r *EntityRef) Payload() map[string]any {
	return map[string]any{"type": r.Type, "id": r.ID}
}

// Entity is a consolidated Shotgun entity: a reference plus the fields that
// were requested when it was retrieved.
type Entity struct {
	EntityRef
	Fields map[string]any
}

// Text returns a string field value, or "" if unset or not a string.
func (e *Entity) Text(field string) string {
	s, _ := e.Fields[field].(string)
	return s
}

// Ref returns a single-entity field value as a reference, or nil.
func (e *Entity) Ref(field string) *EntityRef {
	return RefFrom(e.Fields[field])
}

// Refs returns a multi-entity field value as a list of references. The
// returned slice is a copy; mutating it does not touch the entity.
func (e *Entity) Refs(field string) []*EntityRef {
	raw, ok := e.Fields[field].([]any)
	if !ok {
		return nil
	}
	refs := make([]*EntityRef, 0, len(raw))
	for _, v := range raw {
		if ref := RefFrom(v); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// RefFrom coerces a decoded JSON value into an entity reference. Shotgun
// represents links as {"type": ..., "id": ..., "name": ...} dictionaries.
// Returns nil if the value does not have that shape.
func RefFrom(v any) *EntityRef {
	switch t := v.(type) {
	case nil:
		return nil
	case *EntityRef:
		return t
	case EntityRef:
		return &t
	case map[string]any:
		typ, _ := t["type"].(string)
		if typ == "" {
			return nil
		}
		ref := &EntityRef{Type: typ}
		switch id := t["id"].(type) {
		case float64:
			ref.ID = int(id)
		case int:
			ref.ID = id
		}
		ref.Name, _ = t["name"].(string)
		return ref
	}
	return nil
}
