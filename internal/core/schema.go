package core

// =============================================================================
// FIELD SCHEMA
// Snapshot of a Shotgun field definition, fetched on demand from the schema
// service. Callers may cache a snapshot for the duration of one sync
// operation but must not assume it stays valid beyond it.
// =============================================================================

// Shotgun field data types understood by the sync pipelines.
const (
	TypeText        = "text"
	TypeList        = "list"
	TypeStatusList  = "status_list"
	TypeEntity      = "entity"
	TypeMultiEntity = "multi_entity"
	TypeDate        = "date"
	TypeDuration    = "duration"
	TypeNumber      = "number"
	TypeCheckbox    = "checkbox"
)

// FieldSchema describes a single Shotgun entity field.
type FieldSchema struct {
	// EntityType is the Shotgun entity type owning the field, e.g. "Task".
	EntityType string

	// FieldName is the field code, e.g. "sg_status_list".
	FieldName string

	// DataType is one of the Type* constants.
	DataType string

	// Editable reports whether the field accepts updates.
	Editable bool

	// ValidValues is the closed value set for list and status_list fields.
	ValidValues []string

	// ValidTypes lists the entity types an entity or multi_entity field
	// accepts as links.
	ValidTypes []string
}

// AcceptsType reports whether an entity-valued field accepts links to the
// given entity type.
func (s *FieldSchema) AcceptsType(entityType string) bool {
	for _, t := range s.ValidTypes {
		if t == entityType {
			return true
		}
	}
	return false
}
