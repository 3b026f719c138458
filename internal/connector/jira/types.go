package jira

import "encoding/json"

// =============================================================================
// JIRA API RESPONSE TYPES
// =============================================================================

// Project represents a Jira project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Self string `json:"self,omitempty"`
}

// RawValue returns the wire form of the project for issue payloads.
func (p *Project) RawValue() any {
	return map[string]any{"id": p.ID, "key": p.Key}
}

// User represents a Jira user.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active,omitempty"`
	Self         string `json:"self,omitempty"`
}

// RawValue returns the wire form of the user for issue payloads.
func (u *User) RawValue() any {
	return map[string]any{"accountId": u.AccountID}
}

// IssueType represents an issue type.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask,omitempty"`
}

// RawValue returns the wire form of the issue type for issue payloads.
func (t *IssueType) RawValue() any {
	return map[string]any{"id": t.ID, "name": t.Name}
}

// Status represents an issue status.
type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Priority represents an issue priority.
type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimeTracking represents an issue time tracking value.
type TimeTracking struct {
	OriginalEstimate  string `json:"originalEstimate,omitempty"`
	RemainingEstimate string `json:"remainingEstimate,omitempty"`
}

// Issue represents a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self,omitempty"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains issue field values. Known fields are typed; custom
// fields (customfield_*) land in Custom.
type IssueFields struct {
	Summary      string        `json:"summary,omitempty"`
	Description  string        `json:"description,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	Priority     *Priority     `json:"priority,omitempty"`
	IssueType    *IssueType    `json:"issuetype,omitempty"`
	Project      *Project      `json:"project,omitempty"`
	Reporter     *User         `json:"reporter,omitempty"`
	Assignee     *User         `json:"assignee,omitempty"`
	Labels       []string      `json:"labels,omitempty"`
	DueDate      string        `json:"duedate,omitempty"`
	TimeTracking *TimeTracking `json:"timetracking,omitempty"`

	// Custom holds every field not captured above, keyed by field id.
	Custom map[string]any `json:"-"`
}

// knownFieldIDs are the JSON keys captured by the typed IssueFields members.
var knownFieldIDs = []string{
	"summary", "description", "status", "priority", "issuetype",
	"project", "reporter", "assignee", "labels", "duedate", "timetracking",
}

// UnmarshalJSON decodes the typed fields and collects the rest into Custom.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type alias IssueFields
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*f = IssueFields(known)

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownFieldIDs {
		delete(all, k)
	}
	f.Custom = all
	return nil
}

// Value returns the current value of the given field id, typed for known
// fields, raw for custom ones. Returns nil for unset fields.
func (f *IssueFields) Value(fieldID string) any {
	switch fieldID {
	case "summary":
		return f.Summary
	case "description":
		return f.Description
	case "status":
		if f.Status == nil {
			return nil
		}
		return f.Status
	case "priority":
		if f.Priority == nil {
			return nil
		}
		return f.Priority
	case "issuetype":
		if f.IssueType == nil {
			return nil
		}
		return f.IssueType
	case "project":
		if f.Project == nil {
			return nil
		}
		return f.Project
	case "reporter":
		if f.Reporter == nil {
			return nil
		}
		return f.Reporter
	case "assignee":
		if f.Assignee == nil {
			return nil
		}
		return f.Assignee
	case "labels":
		values := make([]any, len(f.Labels))
		for i, l := range f.Labels {
			values[i] = l
		}
		return values
	case "duedate":
		return f.DueDate
	case "timetracking":
		if f.TimeTracking == nil {
			return nil
		}
		return f.TimeTracking
	default:
		return f.Custom[fieldID]
	}
}

// StringValue returns the field value as a string, or "" if it is unset or
// not string-shaped. Used for the Shotgun cross-reference custom fields.
func (f *IssueFields) StringValue(fieldID string) string {
	s, _ := f.Value(fieldID).(string)
	return s
}

// RawValuer is implemented by API resources that must be reduced to their
// wire form before being embedded in an update payload.
type RawValuer interface {
	RawValue() any
}

// =============================================================================
// WEBHOOK EVENTS
// =============================================================================

// Notification kinds accepted by the bridge.
const (
	EventIssueCreated = "jira:issue_created"
	EventIssueUpdated = "jira:issue_updated"
)

// WebhookEvent is the payload Jira delivers for an issue change.
type WebhookEvent struct {
	WebhookEvent string     `json:"webhookEvent"`
	Issue        *Issue     `json:"issue,omitempty"`
	User         *User      `json:"user,omitempty"`
	Changelog    *Changelog `json:"changelog,omitempty"`
}

// Changelog lists the field changes carried by one webhook event.
type Changelog struct {
	ID    string        `json:"id,omitempty"`
	Items []*ChangeItem `json:"items,omitempty"`
}

// ChangeItem is a single field change. From/To carry actual values and
// FromString/ToString their display forms, but Jira is not consistent:
// integer changes, for instance, only show up in the string values.
type ChangeItem struct {
	Field      string `json:"field"`
	FieldID    string `json:"fieldId,omitempty"`
	FieldType  string `json:"fieldtype,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	FromString string `json:"fromString,omitempty"`
	ToString   string `json:"toString,omitempty"`
}

// =============================================================================
// FIELD METADATA
// =============================================================================

// Metadata is a set of per-field create or edit metadata, keyed by field id.
type Metadata map[string]*FieldMeta

// FieldMeta describes one field's creation/edit constraints.
type FieldMeta struct {
	ID            string          `json:"fieldId,omitempty"`
	Name          string          `json:"name"`
	Required      bool            `json:"required"`
	HasDefault    bool            `json:"hasDefaultValue"`
	Schema        FieldType       `json:"schema"`
	AllowedValues []*AllowedValue `json:"allowedValues,omitempty"`
}

// IsArray reports whether the field holds multiple values.
func (m *FieldMeta) IsArray() bool {
	return m.Schema.Type == "array"
}

// FieldType is the server-side type tag for a field.
type FieldType struct {
	Type   string `json:"type"`
	Items  string `json:"items,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// AllowedValue is one entry of a field's closed value set. Jira stores the
// display form under a "value" key or a "name" key depending on the
// resource kind; plain string entries also occur.
type AllowedValue struct {
	Name  string
	Value string

	// raw is the original wire form, returned verbatim on a match.
	raw any
}

// UnmarshalJSON accepts both object and plain string entries.
func (v *AllowedValue) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		v.Value = asString
		v.raw = asString
		return nil
	}
	var asMap map[string]any
	if err := json.Unmarshal(data, &asMap); err != nil {
		return err
	}
	v.Name, _ = asMap["name"].(string)
	v.Value, _ = asMap["value"].(string)
	v.raw = asMap
	return nil
}

// Matches reports whether the entry's display form equals s, ignoring case.
func (v *AllowedValue) Matches(lowered string) bool {
	if v.Value != "" && equalsLower(v.Value, lowered) {
		return true
	}
	return v.Name != "" && equalsLower(v.Name, lowered)
}

// RawValue returns the entry in its original wire form.
func (v *AllowedValue) RawValue() any {
	return v.raw
}

// =============================================================================
// SEARCH / TRANSITIONS
// =============================================================================

// Transition is one workflow transition currently available on an issue.
type Transition struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	To   *Status `json:"to,omitempty"`
}

type transitionsResponse struct {
	Transitions []*Transition `json:"transitions"`
}

type createMetaResponse struct {
	Projects []struct {
		IssueTypes []struct {
			Fields Metadata `json:"fields"`
		} `json:"issuetypes"`
	} `json:"projects"`
}

type editMetaResponse struct {
	Fields Metadata `json:"fields"`
}
