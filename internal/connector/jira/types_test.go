package jira

import (
	"encoding/json"
	"testing"
)

func TestIssueFieldsUnmarshalSeparatesCustomFields(t *testing.T) {
	raw := `{
		"id": "20001",
		"key": "TEST-1",
		"fields": {
			"summary": "A task",
			"issuetype": {"id": "10001", "name": "Task"},
			"labels": ["alpha", "beta"],
			"assignee": {"accountId": "acc-1", "emailAddress": "a@example.com"},
			"customfield_11501": "123",
			"customfield_11502": "Task"
		}
	}`

	var issue Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if issue.Fields.Summary != "A task" {
		t.Fatalf("summary = %q", issue.Fields.Summary)
	}
	if issue.Fields.IssueType == nil || issue.Fields.IssueType.Name != "Task" {
		t.Fatalf("issuetype = %#v", issue.Fields.IssueType)
	}
	if got := issue.Fields.Custom["customfield_11501"]; got != "123" {
		t.Fatalf("custom field = %#v", got)
	}
	if _, ok := issue.Fields.Custom["summary"]; ok {
		t.Fatalf("typed fields must not leak into Custom")
	}

	if got := issue.Fields.StringValue("customfield_11502"); got != "Task" {
		t.Fatalf("StringValue = %q", got)
	}
	labels, ok := issue.Fields.Value("labels").([]any)
	if !ok || len(labels) != 2 || labels[0] != "alpha" {
		t.Fatalf("labels value = %#v", issue.Fields.Value("labels"))
	}
	if issue.Fields.Value("status") != nil {
		t.Fatalf("unset typed field must read as nil")
	}
}

func TestAllowedValueForms(t *testing.T) {
	var obj AllowedValue
	if err := json.Unmarshal([]byte(`{"id":"2","name":"High"}`), &obj); err != nil {
		t.Fatalf("unmarshal object form: %v", err)
	}
	if !obj.Matches("high") {
		t.Fatalf("object form must match its name, ignoring case")
	}
	raw, ok := obj.RawValue().(map[string]any)
	if !ok || raw["id"] != "2" {
		t.Fatalf("RawValue = %#v, want original wire form", obj.RawValue())
	}

	var str AllowedValue
	if err := json.Unmarshal([]byte(`"Blocked"`), &str); err != nil {
		t.Fatalf("unmarshal string form: %v", err)
	}
	if !str.Matches("blocked") || str.RawValue() != "Blocked" {
		t.Fatalf("string form: Matches=%v RawValue=%#v", str.Matches("blocked"), str.RawValue())
	}
	if str.Matches("other") {
		t.Fatalf("non-matching value accepted")
	}
}

func TestFieldMetaIsArray(t *testing.T) {
	array := FieldMeta{Schema: FieldType{Type: "array", Items: "string"}}
	scalar := FieldMeta{Schema: FieldType{Type: "string"}}
	if !array.IsArray() || scalar.IsArray() {
		t.Fatalf("IsArray: array=%v scalar=%v", array.IsArray(), scalar.IsArray())
	}
}
