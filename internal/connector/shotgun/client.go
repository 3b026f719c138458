package shotgun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nucleus/bridge-core/internal/connector/http"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// SHOTGUN CLIENT
// =============================================================================

// Shotgun is the api3 client for one Shotgun site.
type Shotgun struct {
	Client *http.Client

	config *Config
	logger *slog.Logger

	// schemaCache holds per-entity-type field schema snapshots. Snapshots
	// stay valid for the duration of one sync operation; schema mutations
	// must clear them explicitly.
	schemaMu    sync.Mutex
	schemaCache map[string]map[string]*core.FieldSchema
}

// New creates a Shotgun client from the given configuration.
func New(config *Config, logger *slog.Logger) (*Shotgun, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shotgun config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpConfig := http.DefaultClientConfig()
	httpConfig.BaseURL = config.BaseURL
	httpConfig.Auth = http.NoAuth{}
	if config.RateLimit > 0 {
		httpConfig.RateLimit = config.RateLimit
	}
	httpConfig.Transport = config.Transport

	return &Shotgun{
		Client:      http.NewClient(httpConfig),
		config:      config,
		logger:      logger.With("connector", "shotgun"),
		schemaCache: make(map[string]map[string]*core.FieldSchema),
	}, nil
}

// call issues one api3 request. Credentials ride in the params list.
func (s *Shotgun) call(ctx context.Context, method string, params any, out any) error {
	auth := map[string]any{
		"script_name": s.config.ScriptName,
		"script_key":  s.config.ScriptKey,
	}
	resp, err := s.Client.Post(ctx, "/api3/json", &rpcRequest{
		MethodName: method,
		Params:     []any{auth, params},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	return nil
}

// =============================================================================
// SCHEMA
// =============================================================================

// FieldSchema returns the schema snapshot for one field, fetching and
// caching the owning entity type's full schema on first use.
func (s *Shotgun) FieldSchema(ctx context.Context, entityType, fieldName string) (*core.FieldSchema, error) {
	s.schemaMu.Lock()
	cached, ok := s.schemaCache[entityType]
	s.schemaMu.Unlock()
	if !ok {
		fetched, err := s.fetchSchema(ctx, entityType)
		if err != nil {
			return nil, err
		}
		s.schemaMu.Lock()
		s.schemaCache[entityType] = fetched
		s.schemaMu.Unlock()
		cached = fetched
	}
	return cached[fieldName], nil
}

func (s *Shotgun) fetchSchema(ctx context.Context, entityType string) (map[string]*core.FieldSchema, error) {
	var resp schemaReadResponse
	err := s.call(ctx, "schema_field_read", map[string]any{
		"type": entityType,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Exception {
		return nil, fmt.Errorf("schema_field_read %s: %s", entityType, resp.Message)
	}

	schemas := make(map[string]*core.FieldSchema, len(resp.Results))
	for name, wire := range resp.Results {
		schemas[name] = &core.FieldSchema{
			EntityType:  entityType,
			FieldName:   name,
			DataType:    wire.DataType.Value,
			Editable:    wire.Editable.Value,
			ValidValues: wire.Properties.ValidValues.Value,
			ValidTypes:  wire.Properties.ValidTypes.Value,
		}
	}
	return schemas, nil
}

// ClearCachedSchema drops the cached schema snapshot for an entity type.
// Must be called after any schema mutation.
func (s *Shotgun) ClearCachedSchema(entityType string) {
	s.schemaMu.Lock()
	delete(s.schemaCache, entityType)
	s.schemaMu.Unlock()
}

// UpdateSchemaEnumeration replaces the closed value set of a list field.
func (s *Shotgun) UpdateSchemaEnumeration(ctx context.Context, entityType, fieldName string, values []string) error {
	var resp genericResponse
	err := s.call(ctx, "schema_field_update", map[string]any{
		"type":       entityType,
		"field_name": fieldName,
		"properties": map[string]any{"valid_values": values},
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Exception {
		return fmt.Errorf("schema_field_update %s.%s: %s", entityType, fieldName, resp.Message)
	}
	return nil
}

// =============================================================================
// ENTITIES
// =============================================================================

// Consolidate retrieves the referenced entity with the requested fields
// plus its display name, normalized under Name regardless of which field
// the entity type stores it in. Returns nil without error when the entity
// no longer exists.
func (s *Shotgun) Consolidate(ctx context.Context, ref *core.EntityRef, fields []string) (*core.Entity, error) {
	if ref == nil {
		return nil, nil
	}
	nameField := nameFieldFor(ref.Type)
	want := append([]string{nameField}, fields...)
	if ref.Type == "HumanUser" {
		want = append(want, "email")
	}

	filters := []core.Filter{{Field: "id", Relation: "is", Value: ref.ID}}
	return s.FindOne(ctx, ref.Type, filters, want)
}

// FindOne returns the first entity matching the filters, or nil without
// error when there is no match.
func (s *Shotgun) FindOne(ctx context.Context, entityType string, filters []core.Filter, fields []string) (*core.Entity, error) {
	conditions := make([]any, 0, len(filters))
	for _, f := range filters {
		conditions = append(conditions, map[string]any{
			"path":     f.Field,
			"relation": f.Relation,
			"values":   []any{f.Value},
		})
	}

	var resp readResponse
	err := s.call(ctx, "read", map[string]any{
		"type": entityType,
		"filters": map[string]any{
			"logical_operator": "and",
			"conditions":       conditions,
		},
		"return_fields": fields,
		"paging": map[string]any{
			"current_page":      1,
			"entities_per_page": 1,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Exception {
		return nil, fmt.Errorf("read %s: %s", entityType, resp.Message)
	}
	if len(resp.Results.Entities) == 0 {
		return nil, nil
	}
	return entityFromWire(entityType, resp.Results.Entities[0]), nil
}

// Update applies a batch of field updates to one entity.
func (s *Shotgun) Update(ctx context.Context, entityType string, id int, data map[string]any) error {
	fields := make([]any, 0, len(data))
	for name, value := range data {
		fields = append(fields, map[string]any{
			"field_name": name,
			"value":      value,
		})
	}

	var resp genericResponse
	err := s.call(ctx, "update", map[string]any{
		"type":   entityType,
		"id":     id,
		"fields": fields,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Exception {
		return fmt.Errorf("update %s %d: %s", entityType, id, resp.Message)
	}
	return nil
}

// MatchEntityByName finds an entity with the given display name among the
// candidate types, scoped to the project. First match wins, in the order
// the candidate types are listed. Returns nil without error when nothing
// matches.
func (s *Shotgun) MatchEntityByName(ctx context.Context, name string, entityTypes []string, project *core.EntityRef) (*core.EntityRef, error) {
	for _, entityType := range entityTypes {
		nameField := nameFieldFor(entityType)
		filters := []core.Filter{{Field: nameField, Relation: "is", Value: name}}
		if project != nil {
			filters = append(filters, core.Filter{
				Field: "project", Relation: "is", Value: project.Payload(),
			})
		}
		entity, err := s.FindOne(ctx, entityType, filters, []string{nameField})
		if err != nil {
			return nil, err
		}
		if entity != nil {
			return &entity.EntityRef, nil
		}
	}
	return nil, nil
}

// EntityPageURL returns the Shotgun detail page URL for an entity.
func (s *Shotgun) EntityPageURL(ref *core.EntityRef) string {
	base := strings.TrimSuffix(s.config.BaseURL, "/")
	return fmt.Sprintf("%s/detail/%s/%d", base, ref.Type, ref.ID)
}

// entityFromWire converts a read response entity into the typed form,
// normalizing the display name.
func entityFromWire(entityType string, wire map[string]any) *core.Entity {
	entity := &core.Entity{Fields: make(map[string]any, len(wire))}
	entity.Type = entityType
	for k, v := range wire {
		switch k {
		case "id":
			if id, ok := v.(float64); ok {
				entity.ID = int(id)
			}
		case "type":
			// Already set from the request.
		default:
			entity.Fields[k] = v
		}
	}
	if name, ok := entity.Fields[nameFieldFor(entityType)].(string); ok {
		entity.Name = name
	}
	// Keep a uniform "name" key so list-valued fields can be matched by
	// display name no matter which field the linked type stores it in.
	if entity.Name != "" {
		entity.Fields["name"] = entity.Name
	}
	return entity
}
