package bridge

import (
	"strings"

	"github.com/nucleus/bridge-core/internal/connector/jira"
)

// =============================================================================
// VALUE HELPERS
// Shared plumbing for the translators: emptiness, raw wire forms and
// equality across the typed and untyped shapes Jira values come in.
// =============================================================================

// newlineStripper collapses summaries to a single line; Jira rejects
// multiline summary values.
var newlineStripper = strings.NewReplacer("\n", "", "\r", "")

// isEmptyValue reports whether a decoded value counts as empty: nil, "",
// zero numbers and empty lists.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// rawForm reduces a translated or current value to its wire form.
func rawForm(v any) any {
	if rv, ok := v.(jira.RawValuer); ok {
		return rv.RawValue()
	}
	switch t := v.(type) {
	case *jira.Status:
		return map[string]any{"id": t.ID, "name": t.Name}
	case *jira.Priority:
		return map[string]any{"id": t.ID, "name": t.Name}
	case *jira.TimeTracking:
		m := map[string]any{}
		if t.OriginalEstimate != "" {
			m["originalEstimate"] = t.OriginalEstimate
		}
		if t.RemainingEstimate != "" {
			m["remainingEstimate"] = t.RemainingEstimate
		}
		return m
	}
	return v
}

// displayName extracts a human-readable form from a value, for equality
// fallbacks and log lines. Returns "" when there is none.
func displayName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case *jira.User:
		return t.DisplayName
	case *jira.Status:
		return t.Name
	case *jira.Priority:
		return t.Name
	case *jira.AllowedValue:
		if t.Value != "" {
			return t.Value
		}
		return t.Name
	case map[string]any:
		if s, ok := t["value"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["name"].(string); ok {
			return s
		}
	}
	return ""
}

// identityOf returns a stable identity key for a value when it has one:
// the account id for users, the id for identified resources. Returns ""
// when the value has no identity and must be compared structurally.
func identityOf(v any) string {
	switch t := v.(type) {
	case *jira.User:
		return t.AccountID
	case map[string]any:
		if s, ok := t["accountId"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["id"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// sameJiraValue reports whether a current field value and a translated
// value denote the same thing. Identified resources compare by identity,
// enumerated and plain values by display form, everything else by their
// string shape.
func sameJiraValue(a, b any) bool {
	ra, rb := rawForm(a), rawForm(b)
	if ia, ib := identityOf(ra), identityOf(rb); ia != "" && ib != "" {
		return ia == ib
	}
	if sa, ok := ra.(string); ok {
		if sb, ok := rb.(string); ok {
			return sa == sb
		}
	}
	da, db := displayName(ra), displayName(rb)
	return da != "" && da == db
}

// containsJiraValue reports whether list holds a value equal to v.
func containsJiraValue(list []any, v any) bool {
	for _, item := range list {
		if sameJiraValue(item, v) {
			return true
		}
	}
	return false
}

// removeJiraValue returns list without the first element equal to v, and
// whether an element was removed.
func removeJiraValue(list []any, v any) ([]any, bool) {
	for i, item := range list {
		if sameJiraValue(item, v) {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

// asList coerces a current field value into a mutable []any copy.
func asList(v any) []any {
	raw, ok := v.([]any)
	if !ok {
		if v == nil {
			return []any{}
		}
		return []any{v}
	}
	out := make([]any, len(raw))
	copy(out, raw)
	return out
}
