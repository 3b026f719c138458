package shotgun

// =============================================================================
// API3 WIRE TYPES
// Shotgun's api3 endpoint is a JSON-RPC style surface: every call is a
// POST with a method name and a params list whose first entry carries the
// script credentials.
// =============================================================================

type rpcRequest struct {
	MethodName string `json:"method_name"`
	Params     []any  `json:"params"`
}

type rpcError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"error_type,omitempty"`
}

// valueWrap mirrors Shotgun's {"value": ..., "editable": ...} property
// envelopes.
type valueWrap[T any] struct {
	Value T `json:"value"`
}

// fieldSchemaWire is one field entry of a schema_field_read response.
type fieldSchemaWire struct {
	DataType   valueWrap[string] `json:"data_type"`
	Editable   valueWrap[bool]   `json:"editable"`
	Properties struct {
		ValidValues valueWrap[[]string] `json:"valid_values"`
		ValidTypes  valueWrap[[]string] `json:"valid_types"`
	} `json:"properties"`
}

type readResponse struct {
	Results struct {
		Entities []map[string]any `json:"entities"`
		PagingInfo struct {
			EntityCount int `json:"entity_count"`
		} `json:"paging_info"`
	} `json:"results"`
	Exception bool      `json:"exception,omitempty"`
	Error     *rpcError `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
}

type schemaReadResponse struct {
	Results   map[string]*fieldSchemaWire `json:"results"`
	Exception bool                        `json:"exception,omitempty"`
	Message   string                      `json:"message,omitempty"`
}

type genericResponse struct {
	Results   any    `json:"results,omitempty"`
	Exception bool   `json:"exception,omitempty"`
	Message   string `json:"message,omitempty"`
}

// nameFieldFor returns the field holding an entity type's display name.
// Most types use "code"; a few well-known ones differ.
func nameFieldFor(entityType string) string {
	switch entityType {
	case "HumanUser", "ApiUser", "Group", "Project", "Department":
		return "name"
	case "Task":
		return "content"
	case "Note":
		return "subject"
	case "Ticket":
		return "title"
	default:
		return "code"
	}
}
