package jira

import (
	"log/slog"
	"strings"
	"testing"
)

func sanitizerClient() *Jira {
	return &Jira{
		config: &Config{BaseURL: "https://jira.example.com"},
		logger: slog.Default(),
	}
}

func TestSanitizeRejectsUnsettingRequiredField(t *testing.T) {
	j := sanitizerClient()
	_, err := j.SanitizeUpdateValue(nil, &FieldMeta{ID: "summary", Required: true})
	if !IsSanitizeWarning(err) {
		t.Fatalf("err = %v, want sanitize warning", err)
	}

	v, err := j.SanitizeUpdateValue(nil, &FieldMeta{ID: "description"})
	if err != nil || v != nil {
		t.Fatalf("unsetting an optional field: got (%v, %v)", v, err)
	}
}

func TestSanitizeArrayFields(t *testing.T) {
	j := sanitizerClient()
	meta := &FieldMeta{ID: "labels", Schema: FieldType{Type: "array"}}

	if _, err := j.SanitizeUpdateValue("not-a-list", meta); !IsSanitizeWarning(err) {
		t.Fatalf("scalar into array field: err = %v", err)
	}

	v, err := j.SanitizeUpdateValue([]any{"a"}, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list, ok := v.([]any); !ok || len(list) != 1 {
		t.Fatalf("value = %#v", v)
	}

	required := &FieldMeta{ID: "components", Required: true, Schema: FieldType{Type: "array"}}
	if _, err := j.SanitizeUpdateValue([]any{}, required); !IsSanitizeWarning(err) {
		t.Fatalf("emptying required array: err = %v", err)
	}
}

func TestSanitizeStringValues(t *testing.T) {
	j := sanitizerClient()

	v, err := j.SanitizeUpdateValue("One\nTwo\r", &FieldMeta{ID: "summary"})
	if err != nil || v != "OneTwo" {
		t.Fatalf("summary newlines: got (%#v, %v)", v, err)
	}

	long := strings.Repeat("x", maxTextLength+10)
	v, err = j.SanitizeUpdateValue(long, &FieldMeta{ID: "description"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := v.(string); len(s) != maxTextLength {
		t.Fatalf("truncated length = %d", len(s))
	}

	if _, err := j.SanitizeUpdateValue("", &FieldMeta{ID: "summary", Required: true}); !IsSanitizeWarning(err) {
		t.Fatalf("emptying required string: err = %v", err)
	}
}
