package jira

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// UPDATE VALUE SANITIZER
// Last defense before a translated value enters an update payload. A
// SanitizeWarning is recoverable: the caller cancels the single field
// update instead of failing the event.
// =============================================================================

// maxTextLength is the Jira hard limit for text field values.
const maxTextLength = 32767

// SanitizeWarning reports a value the server would reject; the caller is
// expected to skip the field update rather than propagate an error.
type SanitizeWarning struct {
	Field  string
	Reason string
}

func (e *SanitizeWarning) Error() string {
	return fmt.Sprintf("unsafe update value for field %s: %s", e.Field, e.Reason)
}

// IsSanitizeWarning reports whether err is, or wraps, a SanitizeWarning.
func IsSanitizeWarning(err error) bool {
	var sw *SanitizeWarning
	return errors.As(err, &sw)
}

// SanitizeUpdateValue validates value against the field's edit metadata
// and returns the form safe to send.
func (j *Jira) SanitizeUpdateValue(value any, meta *FieldMeta) (any, error) {
	if value == nil {
		if meta.Required {
			return nil, &SanitizeWarning{
				Field:  meta.ID,
				Reason: "unsetting a required field",
			}
		}
		return nil, nil
	}

	if meta.IsArray() {
		values, ok := value.([]any)
		if !ok {
			return nil, &SanitizeWarning{
				Field:  meta.ID,
				Reason: fmt.Sprintf("expected a list, got %T", value),
			}
		}
		if len(values) == 0 && meta.Required {
			return nil, &SanitizeWarning{
				Field:  meta.ID,
				Reason: "emptying a required field",
			}
		}
		return values, nil
	}

	if s, ok := value.(string); ok {
		if meta.ID == "summary" {
			// The wire protocol forbids newlines in summaries.
			s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
		}
		if len(s) > maxTextLength {
			j.logger.Warn("truncating text value over server limit",
				"field", meta.ID,
				"length", len(s),
			)
			s = s[:maxTextLength]
		}
		if s == "" && meta.Required {
			return nil, &SanitizeWarning{
				Field:  meta.ID,
				Reason: "emptying a required field",
			}
		}
		return s, nil
	}

	return value, nil
}
