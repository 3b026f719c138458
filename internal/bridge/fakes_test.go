package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// FAKE COLLABORATORS
// In-memory stand-ins for the two systems. They record every write so
// tests can assert on exactly what would have hit the wire.
// =============================================================================

func entityKey(entityType string, id int) string {
	return fmt.Sprintf("%s:%d", entityType, id)
}

type sgUpdate struct {
	entityType string
	id         int
	data       map[string]any
}

type enumUpdate struct {
	entityType string
	fieldName  string
	values     []string
}

type fakeShotgun struct {
	schemas  map[string]map[string]*core.FieldSchema
	entities map[string]*core.Entity
	byEmail  map[string]*core.Entity
	byName   map[string]*core.EntityRef

	updates     []sgUpdate
	enumUpdates []enumUpdate
	cleared     []string
	matchCalls  []string
}

func newFakeShotgun() *fakeShotgun {
	return &fakeShotgun{
		schemas:  map[string]map[string]*core.FieldSchema{},
		entities: map[string]*core.Entity{},
		byEmail:  map[string]*core.Entity{},
		byName:   map[string]*core.EntityRef{},
	}
}

func (f *fakeShotgun) addSchema(s *core.FieldSchema) {
	if f.schemas[s.EntityType] == nil {
		f.schemas[s.EntityType] = map[string]*core.FieldSchema{}
	}
	f.schemas[s.EntityType][s.FieldName] = s
}

func (f *fakeShotgun) addEntity(e *core.Entity) {
	f.entities[entityKey(e.Type, e.ID)] = e
	if e.Type == "HumanUser" {
		if email, ok := e.Fields["email"].(string); ok {
			f.byEmail[email] = e
		}
	}
}

func (f *fakeShotgun) FieldSchema(_ context.Context, entityType, fieldName string) (*core.FieldSchema, error) {
	return f.schemas[entityType][fieldName], nil
}

func (f *fakeShotgun) ClearCachedSchema(entityType string) {
	f.cleared = append(f.cleared, entityType)
}

func (f *fakeShotgun) UpdateSchemaEnumeration(_ context.Context, entityType, fieldName string, values []string) error {
	f.enumUpdates = append(f.enumUpdates, enumUpdate{entityType, fieldName, values})
	if s := f.schemas[entityType][fieldName]; s != nil {
		s.ValidValues = values
	}
	return nil
}

func (f *fakeShotgun) Consolidate(_ context.Context, ref *core.EntityRef, _ []string) (*core.Entity, error) {
	if ref == nil {
		return nil, nil
	}
	return f.entities[entityKey(ref.Type, ref.ID)], nil
}

func (f *fakeShotgun) FindOne(_ context.Context, entityType string, filters []core.Filter, _ []string) (*core.Entity, error) {
	if entityType == "HumanUser" {
		for _, flt := range filters {
			if flt.Field == "email" {
				email, _ := flt.Value.(string)
				return f.byEmail[email], nil
			}
		}
	}
	return nil, nil
}

func (f *fakeShotgun) Update(_ context.Context, entityType string, id int, data map[string]any) error {
	f.updates = append(f.updates, sgUpdate{entityType, id, data})
	return nil
}

func (f *fakeShotgun) MatchEntityByName(_ context.Context, name string, _ []string, _ *core.EntityRef) (*core.EntityRef, error) {
	f.matchCalls = append(f.matchCalls, name)
	return f.byName[name], nil
}

func (f *fakeShotgun) EntityPageURL(ref *core.EntityRef) string {
	return fmt.Sprintf("https://sg.example.com/detail/%s/%d", ref.Type, ref.ID)
}

type jiraUpdate struct {
	key    string
	fields map[string]any
}

type statusChange struct {
	key     string
	status  string
	comment string
}

type fakeJira struct {
	issues     map[string]*jira.Issue
	issueTypes map[string]*jira.IssueType
	fieldIDs   map[string]string
	createMeta jira.Metadata
	editMeta   jira.Metadata

	me         *jira.User
	users      map[string]*jira.User
	byEmail    map[string]*jira.User
	assignable map[string]*jira.User

	nextIssue *jira.Issue

	created         []map[string]any
	updates         []jiraUpdate
	statusChanges   []statusChange
	statusReachable bool
	watchersAdded   []string
	watchersRemoved []string
}

func newFakeJira() *fakeJira {
	return &fakeJira{
		issues:          map[string]*jira.Issue{},
		issueTypes:      map[string]*jira.IssueType{"task": {ID: "10001", Name: "Task"}},
		fieldIDs:        map[string]string{},
		users:           map[string]*jira.User{},
		byEmail:         map[string]*jira.User{},
		assignable:      map[string]*jira.User{},
		me:              &jira.User{AccountID: "bridge-bot", DisplayName: "Bridge Bot", Active: true},
		statusReachable: true,
	}
}

func (f *fakeJira) addIssue(issue *jira.Issue) {
	f.issues[issue.Key] = issue
}

func (f *fakeJira) addUser(u *jira.User) {
	f.users[u.AccountID] = u
	if u.EmailAddress != "" {
		f.byEmail[strings.ToLower(u.EmailAddress)] = u
		f.assignable[strings.ToLower(u.EmailAddress)] = u
	}
}

func (f *fakeJira) Issue(_ context.Context, key string) (*jira.Issue, error) {
	issue, ok := f.issues[key]
	if !ok {
		return nil, fmt.Errorf("issue %s not found", key)
	}
	return issue, nil
}

func (f *fakeJira) CreateIssue(_ context.Context, fields map[string]any) (*jira.Issue, error) {
	f.created = append(f.created, fields)
	if f.nextIssue != nil {
		return f.nextIssue, nil
	}
	return &jira.Issue{ID: "20001", Key: "TEST-1"}, nil
}

func (f *fakeJira) UpdateIssue(_ context.Context, key string, fields map[string]any) error {
	f.updates = append(f.updates, jiraUpdate{key, fields})
	return nil
}

func (f *fakeJira) CreationMetadata(_ context.Context, _ *jira.Project, _ string) (jira.Metadata, error) {
	return f.createMeta, nil
}

func (f *fakeJira) EditMetadata(_ context.Context, _ string) (jira.Metadata, error) {
	return f.editMeta, nil
}

func (f *fakeJira) IssueTypeByName(_ context.Context, name string) (*jira.IssueType, error) {
	it, ok := f.issueTypes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown issue type %q", name)
	}
	return it, nil
}

func (f *fakeJira) FieldID(_ context.Context, name string) (string, error) {
	id, ok := f.fieldIDs[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return id, nil
}

func (f *fakeJira) CurrentUser(_ context.Context) (*jira.User, error) {
	return f.me, nil
}

func (f *fakeJira) User(_ context.Context, accountID string) (*jira.User, error) {
	u, ok := f.users[accountID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", accountID)
	}
	return u, nil
}

func (f *fakeJira) FindUserByEmail(_ context.Context, email string, _ *jira.Project) (*jira.User, error) {
	return f.byEmail[strings.ToLower(email)], nil
}

func (f *fakeJira) ResolveAssignee(_ context.Context, email string, _ *jira.Project, _ *jira.Issue) (*jira.User, error) {
	return f.assignable[strings.ToLower(email)], nil
}

func (f *fakeJira) SetIssueStatus(_ context.Context, issue *jira.Issue, statusName, comment string) (bool, error) {
	if !f.statusReachable {
		return false, nil
	}
	f.statusChanges = append(f.statusChanges, statusChange{issue.Key, statusName, comment})
	return true, nil
}

func (f *fakeJira) AddWatcher(_ context.Context, issueKey string, user *jira.User) error {
	f.watchersAdded = append(f.watchersAdded, issueKey+":"+user.AccountID)
	return nil
}

func (f *fakeJira) RemoveWatcher(_ context.Context, issueKey string, user *jira.User) error {
	f.watchersRemoved = append(f.watchersRemoved, issueKey+":"+user.AccountID)
	return nil
}

// SanitizeUpdateValue mirrors the connector's checks without its logging.
func (f *fakeJira) SanitizeUpdateValue(value any, meta *jira.FieldMeta) (any, error) {
	if value == nil {
		if meta.Required {
			return nil, &jira.SanitizeWarning{Field: meta.ID, Reason: "unsetting a required field"}
		}
		return nil, nil
	}
	if meta.IsArray() {
		values, ok := value.([]any)
		if !ok {
			return nil, &jira.SanitizeWarning{Field: meta.ID, Reason: "expected a list"}
		}
		if len(values) == 0 && meta.Required {
			return nil, &jira.SanitizeWarning{Field: meta.ID, Reason: "emptying a required field"}
		}
		return values, nil
	}
	if s, ok := value.(string); ok && s == "" && meta.Required {
		return nil, &jira.SanitizeWarning{Field: meta.ID, Reason: "emptying a required field"}
	}
	return value, nil
}

func (f *fakeJira) CrossRefFields() jira.CrossRefFields {
	return jira.CrossRefFields{
		IDField:   "customfield_11501",
		TypeField: "customfield_11502",
		URLField:  "customfield_11503",
	}
}

func (f *fakeJira) IssueBrowseURL(key string) string {
	return "https://jira.example.com/browse/" + key
}

// =============================================================================
// TEST FIXTURE HELPERS
// =============================================================================

// allowedValue builds an AllowedValue from its JSON wire form, the only
// way they occur in production.
func allowedValue(raw string) *jira.AllowedValue {
	var v jira.AllowedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		panic(err)
	}
	return &v
}

func newTaskHandler(sg *fakeShotgun, j *fakeJira, opts ...Option) *EntityIssueHandler {
	return NewTaskIssueHandler(sg, j, opts...)
}

// linkedTaskIssue builds an issue already linked to Task 123.
func linkedTaskIssue(key string) *jira.Issue {
	return &jira.Issue{
		ID:  "20001",
		Key: key,
		Fields: jira.IssueFields{
			Summary:   "A task",
			IssueType: &jira.IssueType{ID: "10001", Name: "Task"},
			Project:   &jira.Project{ID: "10000", Key: "TEST"},
			Custom: map[string]any{
				"customfield_11501": "123",
				"customfield_11502": "Task",
			},
		},
	}
}

// linkedTask builds the Task entity the issue above points at.
func linkedTask(fields map[string]any) *core.Entity {
	merged := map[string]any{"sg_jira_key": "TEST-1"}
	for k, v := range fields {
		merged[k] = v
	}
	return &core.Entity{
		EntityRef: core.EntityRef{Type: "Task", ID: 123, Name: "A task"},
		Fields:    merged,
	}
}
