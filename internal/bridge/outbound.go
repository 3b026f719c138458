package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// OUTBOUND PIPELINE (Shotgun to Jira)
// =============================================================================

// IssueFieldSyncValue translates one Shotgun field change into the Jira
// field id and value to write on the issue. A "" field id with a nil error
// means the change does not apply to Jira and must be skipped. A
// *core.InvalidValueError means this one value could not be translated;
// any other error is a configuration or transport failure.
func (h *EntityIssueHandler) IssueFieldSyncValue(
	ctx context.Context,
	project *jira.Project,
	issue *jira.Issue,
	sgEntityType string,
	sgField string,
	meta *core.ChangeMeta,
) (string, any, error) {
	schema, err := h.shotgun.FieldSchema(ctx, sgEntityType, sgField)
	if err != nil {
		return "", nil, err
	}
	if schema == nil {
		return "", nil, fmt.Errorf("unknown shotgun field %s.%s", sgEntityType, sgField)
	}

	fieldID, ok := h.fields.JiraField(sgField)
	if !ok {
		h.logger.Debug("field has no jira mapping", "field", sgField)
		return "", nil, nil
	}

	editMeta, err := h.jira.EditMetadata(ctx, issue.Key)
	if err != nil {
		return "", nil, err
	}
	if editMeta == nil {
		return "", nil, fmt.Errorf("no edit metadata for issue %s", issue.Key)
	}
	fieldMeta := editMeta[fieldID]
	if fieldMeta == nil {
		h.logger.Debug("field not editable on issue",
			"issue", issue.Key, "jira_field", fieldID)
		return "", nil, nil
	}

	var value any
	if meta.IsListChange() {
		value, err = h.jiraValueForListChanges(ctx, project, issue, fieldMeta, meta.Added, meta.Removed)
		if err != nil {
			return "", nil, err
		}
	} else {
		value, err = h.jiraValueForShotgunValue(ctx, project, issue, fieldMeta, meta.NewValue)
		if err != nil {
			return "", nil, err
		}
		if value == nil && !isEmptyValue(meta.NewValue) {
			return "", nil, &core.InvalidValueError{
				Field:  sgField,
				Value:  meta.NewValue,
				Reason: "no matching jira value",
			}
		}
	}

	value = wireValue(value)
	if fieldMeta.IsArray() {
		if _, ok := value.([]any); !ok {
			if value == nil {
				value = []any{}
			} else {
				value = []any{value}
			}
		}
	}

	value, err = h.jira.SanitizeUpdateValue(value, fieldMeta)
	if err != nil {
		if jira.IsSanitizeWarning(err) {
			h.logger.Warn("update cancelled by sanitization",
				"issue", issue.Key, "jira_field", fieldID, "reason", err)
			return "", nil, nil
		}
		return "", nil, err
	}
	return fieldID, value, nil
}

// jiraValueForListChanges folds a list-change delta into the issue's
// current field value. Multi-value fields get element-wise removal and
// append; single-value fields clear on a matching removal and adopt the
// first resolvable addition when empty.
func (h *EntityIssueHandler) jiraValueForListChanges(
	ctx context.Context,
	project *jira.Project,
	issue *jira.Issue,
	fieldMeta *jira.FieldMeta,
	added []any,
	removed []any,
) (any, error) {
	if fieldMeta.IsArray() {
		current := asList(issue.Fields.Value(fieldMeta.ID))
		for _, r := range removed {
			v, err := h.jiraValueForShotgunValue(ctx, project, issue, fieldMeta, r)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			var dropped bool
			current, dropped = removeJiraValue(current, v)
			if !dropped {
				h.logger.Debug("removed value not present on issue",
					"issue", issue.Key, "jira_field", fieldMeta.ID, "value", displayName(v))
			}
		}
		for _, a := range added {
			v, err := h.jiraValueForShotgunValue(ctx, project, issue, fieldMeta, a)
			if err != nil {
				return nil, err
			}
			if v == nil || containsJiraValue(current, v) {
				continue
			}
			current = append(current, v)
		}
		return current, nil
	}

	current := issue.Fields.Value(fieldMeta.ID)
	if isEmptyValue(current) {
		current = nil
	}
	if current != nil {
		for _, r := range removed {
			v, err := h.jiraValueForShotgunValue(ctx, project, issue, fieldMeta, r)
			if err != nil {
				return nil, err
			}
			if v != nil && sameJiraValue(current, v) {
				current = nil
				break
			}
		}
	}
	if current == nil {
		for _, a := range added {
			v, err := h.jiraValueForShotgunValue(ctx, project, issue, fieldMeta, a)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if len(added) > 1 {
				h.logger.Warn("multiple values for single-value field, keeping first",
					"issue", issue.Key, "jira_field", fieldMeta.ID, "value", displayName(v))
			}
			current = v
			break
		}
	}
	return current, nil
}

// jiraValueForShotgunValue translates one Shotgun value into its Jira
// form for the given field. Returns nil when the value has no Jira
// counterpart; the caller decides whether that is an error.
func (h *EntityIssueHandler) jiraValueForShotgunValue(
	ctx context.Context,
	project *jira.Project,
	issue *jira.Issue,
	fieldMeta *jira.FieldMeta,
	sgValue any,
) (any, error) {
	if sgValue == nil {
		return nil, nil
	}
	if isEmptyValue(sgValue) {
		// An empty string clears string fields; everything else unsets.
		if fieldMeta.Schema.Type == "string" {
			return "", nil
		}
		return nil, nil
	}

	// Link dictionaries resolve to the live entity first so translation
	// works from its display name and fields.
	var entity *core.Entity
	if ref := core.RefFrom(sgValue); ref != nil {
		var err error
		entity, err = h.shotgun.Consolidate(ctx, ref, nil)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			h.logger.Warn("linked entity no longer exists", "ref", ref)
			return nil, nil
		}
	}

	display := stringOf(sgValue)
	if entity != nil {
		display = entity.Name
	}

	// Closed value sets must be written with the server's exact entry.
	if len(fieldMeta.AllowedValues) > 0 {
		lowered := strings.ToLower(display)
		for _, allowed := range fieldMeta.AllowedValues {
			if allowed.Matches(lowered) {
				return allowed, nil
			}
		}
		h.logger.Warn("value not in allowed values",
			"jira_field", fieldMeta.ID, "value", display)
		return nil, nil
	}

	switch fieldMeta.ID {
	case "assignee":
		email := display
		if entity != nil {
			email = entity.Text("email")
		}
		if email == "" {
			h.logger.Warn("assignee has no email address", "value", display)
			return nil, nil
		}
		user, err := h.jira.ResolveAssignee(ctx, email, project, issue)
		if err != nil {
			return nil, err
		}
		if user == nil {
			h.logger.Warn("no assignable jira user for email", "email", email)
			return nil, nil
		}
		return user, nil

	case "labels":
		return display, nil

	case "summary":
		return newlineStripper.Replace(display), nil

	case "timetracking":
		minutes, err := minutesOf(sgValue)
		if err != nil {
			return nil, &core.InvalidValueError{
				Field:  fieldMeta.ID,
				Value:  sgValue,
				Reason: "not a duration in minutes",
			}
		}
		return map[string]any{"originalEstimate": fmt.Sprintf("%d m", minutes)}, nil
	}

	if entity != nil {
		return entity.Name, nil
	}
	return sgValue, nil
}

// wireValue reduces a translated value, element-wise for lists, to the
// form the Jira update payload carries.
func wireValue(v any) any {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = rawForm(item)
		}
		return out
	}
	return rawForm(v)
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func minutesOf(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	}
	return 0, fmt.Errorf("unsupported duration type %T", v)
}
