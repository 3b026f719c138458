package jira

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/nucleus/bridge-core/internal/connector/http"
)

// =============================================================================
// JIRA CLIENT
// =============================================================================

// Jira is the REST client for one Jira instance.
type Jira struct {
	Client *http.Client

	config *Config
	logger *slog.Logger

	// fieldIDs maps lowercased field display names to field ids, fetched
	// lazily from the field catalog.
	fieldMu  sync.Mutex
	fieldIDs map[string]string
}

// New creates a Jira client from the given configuration.
func New(config *Config, logger *slog.Logger) (*Jira, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid jira config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpConfig := http.DefaultClientConfig()
	httpConfig.BaseURL = config.BaseURL
	httpConfig.Auth = http.AtlassianAuth{
		Email:    config.Email,
		APIToken: config.APIToken,
	}
	if config.RateLimit > 0 {
		httpConfig.RateLimit = config.RateLimit
	}
	httpConfig.Transport = config.Transport

	return &Jira{
		Client: http.NewClient(httpConfig),
		config: config,
		logger: logger.With("connector", "jira"),
	}, nil
}

// CrossRefFields returns the custom field ids binding issues to Shotgun.
func (j *Jira) CrossRefFields() CrossRefFields {
	return CrossRefFields{
		IDField:   j.config.ShotgunIDField,
		TypeField: j.config.ShotgunTypeField,
		URLField:  j.config.ShotgunURLField,
	}
}

// IssueBrowseURL returns the human-facing page URL for an issue key.
func (j *Jira) IssueBrowseURL(key string) string {
	return strings.TrimSuffix(j.config.BaseURL, "/") + "/browse/" + key
}

// =============================================================================
// ISSUES
// =============================================================================

// Issue retrieves a single issue by key or id.
func (j *Jira) Issue(ctx context.Context, key string) (*Issue, error) {
	resp, err := j.Client.Get(ctx, "/rest/api/2/issue/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch issue %s: %w", key, err)
	}
	var issue Issue
	if err := resp.JSON(&issue); err != nil {
		return nil, fmt.Errorf("parse issue %s: %w", key, err)
	}
	return &issue, nil
}

// CreateIssue submits an issue creation with the given field payload.
func (j *Jira) CreateIssue(ctx context.Context, fields map[string]any) (*Issue, error) {
	resp, err := j.Client.Post(ctx, "/rest/api/2/issue", map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	var created Issue
	if err := resp.JSON(&created); err != nil {
		return nil, fmt.Errorf("parse created issue: %w", err)
	}
	return &created, nil
}

// UpdateIssue applies a batch of field updates to an issue.
func (j *Jira) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	_, err := j.Client.Put(ctx, "/rest/api/2/issue/"+key, map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// METADATA
// =============================================================================

// CreationMetadata fetches the per-field creation metadata for the given
// project and issue type. Returns nil if the server reports none: some
// simplified project types do not expose createmeta.
func (j *Jira) CreationMetadata(ctx context.Context, project *Project, issueTypeID string) (Metadata, error) {
	query := url.Values{}
	query.Set("projectIds", project.ID)
	query.Set("issuetypeIds", issueTypeID)
	query.Set("expand", "projects.issuetypes.fields")

	resp, err := j.Client.Get(ctx, "/rest/api/2/issue/createmeta", query)
	if err != nil {
		return nil, fmt.Errorf("fetch createmeta: %w", err)
	}
	var meta createMetaResponse
	if err := resp.JSON(&meta); err != nil {
		return nil, fmt.Errorf("parse createmeta: %w", err)
	}
	if len(meta.Projects) == 0 || len(meta.Projects[0].IssueTypes) == 0 {
		return nil, nil
	}
	return withFieldIDs(meta.Projects[0].IssueTypes[0].Fields), nil
}

// EditMetadata fetches the fields currently editable on the given issue.
// Returns nil if the server reports none.
func (j *Jira) EditMetadata(ctx context.Context, issueKey string) (Metadata, error) {
	resp, err := j.Client.Get(ctx, "/rest/api/2/issue/"+issueKey+"/editmeta", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch editmeta for %s: %w", issueKey, err)
	}
	var meta editMetaResponse
	if err := resp.JSON(&meta); err != nil {
		return nil, fmt.Errorf("parse editmeta for %s: %w", issueKey, err)
	}
	return withFieldIDs(meta.Fields), nil
}

// withFieldIDs backfills each entry's ID from its map key.
func withFieldIDs(meta Metadata) Metadata {
	for id, field := range meta {
		if field.ID == "" {
			field.ID = id
		}
	}
	return meta
}

// IssueTypeByName resolves an issue type descriptor by its display name.
func (j *Jira) IssueTypeByName(ctx context.Context, name string) (*IssueType, error) {
	resp, err := j.Client.Get(ctx, "/rest/api/2/issuetype", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch issue types: %w", err)
	}
	var issueTypes []*IssueType
	if err := resp.JSON(&issueTypes); err != nil {
		return nil, fmt.Errorf("parse issue types: %w", err)
	}
	for _, it := range issueTypes {
		if equalsLower(it.Name, strings.ToLower(name)) {
			return it, nil
		}
	}
	return nil, fmt.Errorf("unknown issue type %q", name)
}

// FieldID resolves a field display name to its field id using the field
// catalog. Older servers omit fieldId from changelog items, leaving only
// the display name.
func (j *Jira) FieldID(ctx context.Context, name string) (string, error) {
	j.fieldMu.Lock()
	defer j.fieldMu.Unlock()

	if j.fieldIDs == nil {
		resp, err := j.Client.Get(ctx, "/rest/api/2/field", nil)
		if err != nil {
			return "", fmt.Errorf("fetch field catalog: %w", err)
		}
		var fields []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := resp.JSON(&fields); err != nil {
			return "", fmt.Errorf("parse field catalog: %w", err)
		}
		j.fieldIDs = make(map[string]string, len(fields))
		for _, f := range fields {
			j.fieldIDs[strings.ToLower(f.Name)] = f.ID
		}
	}

	id, ok := j.fieldIDs[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return id, nil
}

// =============================================================================
// USERS
// =============================================================================

// CurrentUser returns the identity the bridge authenticates as.
func (j *Jira) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := j.Client.Get(ctx, "/rest/api/2/myself", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("parse current user: %w", err)
	}
	return &user, nil
}

// User retrieves a user by account id, as found in changelog from/to values.
func (j *Jira) User(ctx context.Context, accountID string) (*User, error) {
	query := url.Values{}
	query.Set("accountId", accountID)
	resp, err := j.Client.Get(ctx, "/rest/api/2/user", query)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", accountID, err)
	}
	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("parse user %s: %w", accountID, err)
	}
	return &user, nil
}

// FindUserByEmail searches for an active user matching the given email
// address. Returns nil without error when there is no match.
func (j *Jira) FindUserByEmail(ctx context.Context, email string, project *Project) (*User, error) {
	if email == "" {
		return nil, nil
	}
	query := url.Values{}
	query.Set("query", email)
	query.Set("maxResults", "50")

	resp, err := j.Client.Get(ctx, "/rest/api/2/user/search", query)
	if err != nil {
		return nil, fmt.Errorf("search user %s: %w", email, err)
	}
	var users []*User
	if err := resp.JSON(&users); err != nil {
		return nil, fmt.Errorf("parse user search: %w", err)
	}
	lowered := strings.ToLower(email)
	for _, u := range users {
		if u.Active && equalsLower(u.EmailAddress, lowered) {
			return u, nil
		}
	}
	return nil, nil
}

// ResolveAssignee finds the user to assign an issue to for the given email
// address. Returns nil without error when no assignable user matches.
func (j *Jira) ResolveAssignee(ctx context.Context, email string, project *Project, issue *Issue) (*User, error) {
	query := url.Values{}
	query.Set("query", email)
	if issue != nil {
		query.Set("issueKey", issue.Key)
	} else if project != nil {
		query.Set("project", project.Key)
	}

	resp, err := j.Client.Get(ctx, "/rest/api/2/user/assignable/search", query)
	if err != nil {
		return nil, fmt.Errorf("search assignable user %s: %w", email, err)
	}
	var users []*User
	if err := resp.JSON(&users); err != nil {
		return nil, fmt.Errorf("parse assignable search: %w", err)
	}
	lowered := strings.ToLower(email)
	for _, u := range users {
		if u.Active && equalsLower(u.EmailAddress, lowered) {
			return u, nil
		}
	}
	return nil, nil
}

// =============================================================================
// STATUS & WATCHERS
// =============================================================================

// SetIssueStatus transitions the issue to the workflow status with the
// given name, attaching the comment to the transition when supported.
// Returns false when no available transition reaches that status.
func (j *Jira) SetIssueStatus(ctx context.Context, issue *Issue, statusName, comment string) (bool, error) {
	path := fmt.Sprintf("/rest/api/2/issue/%s/transitions", issue.Key)
	resp, err := j.Client.Get(ctx, path, nil)
	if err != nil {
		return false, fmt.Errorf("fetch transitions for %s: %w", issue.Key, err)
	}
	var transitions transitionsResponse
	if err := resp.JSON(&transitions); err != nil {
		return false, fmt.Errorf("parse transitions for %s: %w", issue.Key, err)
	}

	lowered := strings.ToLower(statusName)
	var match *Transition
	for _, t := range transitions.Transitions {
		if t.To != nil && equalsLower(t.To.Name, lowered) {
			match = t
			break
		}
	}
	if match == nil {
		j.logger.Warn("no transition to status",
			"issue", issue.Key,
			"status", statusName,
		)
		return false, nil
	}

	payload := map[string]any{
		"transition": map[string]any{"id": match.ID},
	}
	if comment != "" {
		payload["update"] = map[string]any{
			"comment": []map[string]any{
				{"add": map[string]any{"body": comment}},
			},
		}
	}
	if _, err := j.Client.Post(ctx, path, payload); err != nil {
		return false, fmt.Errorf("transition %s to %s: %w", issue.Key, statusName, err)
	}
	return true, nil
}

// AddWatcher adds the user to the issue's watcher list.
func (j *Jira) AddWatcher(ctx context.Context, issueKey string, user *User) error {
	path := fmt.Sprintf("/rest/api/2/issue/%s/watchers", issueKey)
	if _, err := j.Client.Post(ctx, path, user.AccountID); err != nil {
		return fmt.Errorf("add watcher to %s: %w", issueKey, err)
	}
	return nil
}

// RemoveWatcher removes the user from the issue's watcher list. Removing a
// user who is not watching is not an error: Jira handles that gracefully.
func (j *Jira) RemoveWatcher(ctx context.Context, issueKey string, user *User) error {
	path := fmt.Sprintf("/rest/api/2/issue/%s/watchers", issueKey)
	query := url.Values{}
	query.Set("accountId", user.AccountID)
	if _, err := j.Client.Delete(ctx, path, query); err != nil {
		var httpErr *http.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil
		}
		return fmt.Errorf("remove watcher from %s: %w", issueKey, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// equalsLower compares s against an already-lowercased needle.
func equalsLower(s, lowered string) bool {
	return strings.ToLower(s) == lowered
}
