package shotgun

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/nucleus/bridge-core/internal/core"
)

type roundTripFunc func(*stdhttp.Request) (*stdhttp.Response, error)

func (f roundTripFunc) RoundTrip(r *stdhttp.Request) (*stdhttp.Response, error) {
	return f(r)
}

func jsonResponse(body string) *stdhttp.Response {
	return &stdhttp.Response{
		StatusCode: 200,
		Header:     stdhttp.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// decodeCall extracts the api3 method name and its params entry.
func decodeCall(t *testing.T, r *stdhttp.Request) (string, map[string]any) {
	t.Helper()
	if r.URL.Path != "/api3/json" {
		t.Fatalf("path = %q", r.URL.Path)
	}
	body, _ := io.ReadAll(r.Body)
	var req struct {
		MethodName string           `json:"method_name"`
		Params     []map[string]any `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(req.Params) != 2 {
		t.Fatalf("params = %#v, want credentials plus arguments", req.Params)
	}
	if req.Params[0]["script_name"] != "bridge" || req.Params[0]["script_key"] != "secret" {
		t.Fatalf("credentials missing from params: %#v", req.Params[0])
	}
	return req.MethodName, req.Params[1]
}

func testClient(t *testing.T, transport roundTripFunc) *Shotgun {
	t.Helper()
	s, err := New(&Config{
		BaseURL:    "https://sg.example.com",
		ScriptName: "bridge",
		ScriptKey:  "secret",
		Transport:  transport,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return s
}

const taskSchemaBody = `{"results": {
	"content": {
		"data_type": {"value": "text"},
		"editable": {"value": true},
		"properties": {}
	},
	"sg_status_list": {
		"data_type": {"value": "status_list"},
		"editable": {"value": true},
		"properties": {"valid_values": {"value": ["wtg", "ip", "fin"]}}
	},
	"task_assignees": {
		"data_type": {"value": "multi_entity"},
		"editable": {"value": true},
		"properties": {"valid_types": {"value": ["HumanUser", "Group"]}}
	}
}}`

func TestFieldSchemaFetchesAndCaches(t *testing.T) {
	var schemaReads int
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		method, args := decodeCall(t, r)
		if method != "schema_field_read" {
			t.Fatalf("method = %q", method)
		}
		if args["type"] != "Task" {
			t.Fatalf("args = %#v", args)
		}
		schemaReads++
		return jsonResponse(taskSchemaBody), nil
	})

	schema, err := s.FieldSchema(context.Background(), "Task", "sg_status_list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.DataType != core.TypeStatusList || !schema.Editable {
		t.Fatalf("schema = %#v", schema)
	}
	if len(schema.ValidValues) != 3 || schema.ValidValues[1] != "ip" {
		t.Fatalf("valid values = %v", schema.ValidValues)
	}

	other, err := s.FieldSchema(context.Background(), "Task", "task_assignees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !other.AcceptsType("HumanUser") || other.AcceptsType("Asset") {
		t.Fatalf("valid types = %v", other.ValidTypes)
	}
	if unknown, _ := s.FieldSchema(context.Background(), "Task", "nonexistent"); unknown != nil {
		t.Fatalf("unknown field must read as nil")
	}
	if schemaReads != 1 {
		t.Fatalf("schema fetched %d times, want 1", schemaReads)
	}

	s.ClearCachedSchema("Task")
	if _, err := s.FieldSchema(context.Background(), "Task", "content"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schemaReads != 2 {
		t.Fatalf("cache clear must force a refetch, got %d reads", schemaReads)
	}
}

func TestFindOne(t *testing.T) {
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		method, args := decodeCall(t, r)
		if method != "read" {
			t.Fatalf("method = %q", method)
		}
		paging, _ := args["paging"].(map[string]any)
		if paging["entities_per_page"] != float64(1) {
			t.Fatalf("paging = %#v", paging)
		}
		return jsonResponse(`{"results": {"entities": [
			{"id": 7, "type": "HumanUser", "name": "Alice", "email": "alice@example.com"}
		]}}`), nil
	})

	entity, err := s.FindOne(context.Background(), "HumanUser",
		[]core.Filter{{Field: "email", Relation: "is", Value: "alice@example.com"}},
		[]string{"name", "email"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity == nil || entity.ID != 7 || entity.Name != "Alice" {
		t.Fatalf("entity = %#v", entity)
	}
	if entity.Text("email") != "alice@example.com" {
		t.Fatalf("email = %q", entity.Text("email"))
	}
}

func TestFindOneReturnsNilWhenEmpty(t *testing.T) {
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		return jsonResponse(`{"results": {"entities": []}}`), nil
	})

	entity, err := s.FindOne(context.Background(), "Task",
		[]core.Filter{{Field: "id", Relation: "is", Value: 999}}, nil)
	if err != nil || entity != nil {
		t.Fatalf("got (%#v, %v), want nil without error", entity, err)
	}
}

func TestConsolidateNormalizesDisplayName(t *testing.T) {
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		_, args := decodeCall(t, r)
		fields, _ := args["return_fields"].([]any)
		var hasContent bool
		for _, f := range fields {
			if f == "content" {
				hasContent = true
			}
		}
		if !hasContent {
			t.Fatalf("Task consolidation must request content, got %v", fields)
		}
		return jsonResponse(`{"results": {"entities": [
			{"id": 123, "type": "Task", "content": "Model the hero"}
		]}}`), nil
	})

	entity, err := s.Consolidate(context.Background(),
		&core.EntityRef{Type: "Task", ID: 123}, []string{"sg_status_list"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Name != "Model the hero" {
		t.Fatalf("name = %q, want normalized from content", entity.Name)
	}
	if entity.Fields["name"] != "Model the hero" {
		t.Fatalf("uniform name key missing: %#v", entity.Fields)
	}
}

func TestUpdateSendsFieldList(t *testing.T) {
	var sent map[string]any
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		method, args := decodeCall(t, r)
		if method != "update" {
			t.Fatalf("method = %q", method)
		}
		sent = args
		return jsonResponse(`{"results": {}}`), nil
	})

	err := s.Update(context.Background(), "Task", 123, map[string]any{"content": "Renamed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent["type"] != "Task" || sent["id"] != float64(123) {
		t.Fatalf("args = %#v", sent)
	}
	fields, _ := sent["fields"].([]any)
	if len(fields) != 1 {
		t.Fatalf("fields = %#v", fields)
	}
	entry, _ := fields[0].(map[string]any)
	if entry["field_name"] != "content" || entry["value"] != "Renamed" {
		t.Fatalf("field entry = %#v", entry)
	}
}

func TestRPCExceptionSurfacesMessage(t *testing.T) {
	s := testClient(t, func(r *stdhttp.Request) (*stdhttp.Response, error) {
		return jsonResponse(`{"exception": true, "message": "script not permitted"}`), nil
	})

	_, err := s.FindOne(context.Background(), "Task", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "script not permitted") {
		t.Fatalf("err = %v, want server message surfaced", err)
	}
}

func TestEntityPageURL(t *testing.T) {
	s := testClient(t, nil)
	url := s.EntityPageURL(&core.EntityRef{Type: "Task", ID: 123})
	if url != "https://sg.example.com/detail/Task/123" {
		t.Fatalf("url = %q", url)
	}
}

func TestNameFieldFor(t *testing.T) {
	cases := map[string]string{
		"HumanUser": "name",
		"Project":   "name",
		"Task":      "content",
		"Note":      "subject",
		"Ticket":    "title",
		"Asset":     "code",
	}
	for entityType, want := range cases {
		if got := nameFieldFor(entityType); got != want {
			t.Fatalf("nameFieldFor(%s) = %q, want %q", entityType, got, want)
		}
	}
}
