package bridge

import (
	"context"
	"log/slog"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// COLLABORATOR INTERFACES
// The pipelines only ever talk to the two systems through these surfaces.
// Transport, authentication and retries live behind them.
// =============================================================================

// ShotgunClient is the Shotgun surface the sync pipelines consume.
type ShotgunClient interface {
	FieldSchema(ctx context.Context, entityType, fieldName string) (*core.FieldSchema, error)
	ClearCachedSchema(entityType string)
	UpdateSchemaEnumeration(ctx context.Context, entityType, fieldName string, values []string) error
	Consolidate(ctx context.Context, ref *core.EntityRef, fields []string) (*core.Entity, error)
	FindOne(ctx context.Context, entityType string, filters []core.Filter, fields []string) (*core.Entity, error)
	Update(ctx context.Context, entityType string, id int, data map[string]any) error
	MatchEntityByName(ctx context.Context, name string, entityTypes []string, project *core.EntityRef) (*core.EntityRef, error)
	EntityPageURL(ref *core.EntityRef) string
}

// JiraClient is the Jira surface the sync pipelines consume.
type JiraClient interface {
	Issue(ctx context.Context, key string) (*jira.Issue, error)
	CreateIssue(ctx context.Context, fields map[string]any) (*jira.Issue, error)
	UpdateIssue(ctx context.Context, key string, fields map[string]any) error
	CreationMetadata(ctx context.Context, project *jira.Project, issueTypeID string) (jira.Metadata, error)
	EditMetadata(ctx context.Context, issueKey string) (jira.Metadata, error)
	IssueTypeByName(ctx context.Context, name string) (*jira.IssueType, error)
	FieldID(ctx context.Context, name string) (string, error)
	CurrentUser(ctx context.Context) (*jira.User, error)
	User(ctx context.Context, accountID string) (*jira.User, error)
	FindUserByEmail(ctx context.Context, email string, project *jira.Project) (*jira.User, error)
	ResolveAssignee(ctx context.Context, email string, project *jira.Project, issue *jira.Issue) (*jira.User, error)
	SetIssueStatus(ctx context.Context, issue *jira.Issue, statusName, comment string) (bool, error)
	AddWatcher(ctx context.Context, issueKey string, user *jira.User) error
	RemoveWatcher(ctx context.Context, issueKey string, user *jira.User) error
	SanitizeUpdateValue(value any, meta *jira.FieldMeta) (any, error)
	CrossRefFields() jira.CrossRefFields
	IssueBrowseURL(key string) string
}

// AuditTrail records the bridge's remote side effects for later review.
// All methods are best-effort: recording failures are logged, never
// propagated into event processing.
type AuditTrail interface {
	RecordUpdate(ctx context.Context, direction, target string, fields map[string]any) error
	RecordEnumExtension(ctx context.Context, entityType, fieldName, value string) error
}

// Audit directions.
const (
	DirectionShotgunToJira = "sg2jira"
	DirectionJiraToShotgun = "jira2sg"
)

// Shotgun fields the bridge maintains on synced entities.
const (
	// shotgunJiraKeyField stores the linked issue key on the entity.
	shotgunJiraKeyField = "sg_jira_key"

	// shotgunJiraURLField stores the issue browse URL.
	shotgunJiraURLField = "sg_jira_url"

	// shotgunSyncToggleField is the checkbox that opts an entity into
	// syncing; turning it on triggers issue creation.
	shotgunSyncToggleField = "sg_sync_in_jira"
)

// =============================================================================
// HANDLER
// =============================================================================

// EntityIssueHandler syncs one Shotgun entity type with one Jira issue
// type, both directions. Field routing is fixed per handler instance.
type EntityIssueHandler struct {
	shotgun ShotgunClient
	jira    JiraClient
	logger  *slog.Logger
	audit   AuditTrail

	// entityType is the handled Shotgun entity type, e.g. "Task".
	entityType string

	// issueType is the target Jira issue type name, e.g. "Task".
	issueType string

	fields   *FieldMapping
	statuses StatusMapping

	// statusField and watchersField route through the status and watcher
	// helpers instead of the field pipeline. Empty disables them.
	statusField   string
	watchersField string

	// jiraProject is where issues for newly synced entities are created.
	// Creation via the sync toggle is disabled when nil.
	jiraProject *jira.Project
}

// Option configures an EntityIssueHandler.
type Option func(*EntityIssueHandler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *EntityIssueHandler) { h.logger = logger }
}

// WithAudit attaches an audit trail.
func WithAudit(audit AuditTrail) Option {
	return func(h *EntityIssueHandler) { h.audit = audit }
}

// WithStatusField routes the given Shotgun field through the status sync
// helper.
func WithStatusField(field string) Option {
	return func(h *EntityIssueHandler) { h.statusField = field }
}

// WithWatchersField routes the given Shotgun field through the watcher
// sync helper.
func WithWatchersField(field string) Option {
	return func(h *EntityIssueHandler) { h.watchersField = field }
}

// WithJiraProject sets the project issues are created in when an entity
// opts into syncing.
func WithJiraProject(project *jira.Project) Option {
	return func(h *EntityIssueHandler) { h.jiraProject = project }
}

// NewEntityIssueHandler creates a handler for one entity/issue type pair.
func NewEntityIssueHandler(
	sg ShotgunClient,
	j JiraClient,
	entityType string,
	issueType string,
	fields *FieldMapping,
	statuses StatusMapping,
	opts ...Option,
) *EntityIssueHandler {
	h := &EntityIssueHandler{
		shotgun:    sg,
		jira:       j,
		entityType: entityType,
		issueType:  issueType,
		fields:     fields,
		statuses:   statuses,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("handler", entityType+"/"+issueType)
	return h
}

// EntityType returns the handled Shotgun entity type.
func (h *EntityIssueHandler) EntityType() string { return h.entityType }

// IssueType returns the target Jira issue type name.
func (h *EntityIssueHandler) IssueType() string { return h.issueType }

// recordUpdate writes an audit entry if a trail is attached.
func (h *EntityIssueHandler) recordUpdate(ctx context.Context, direction, target string, fields map[string]any) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordUpdate(ctx, direction, target, fields); err != nil {
		h.logger.Warn("audit record failed", "target", target, "error", err)
	}
}

// recordEnumExtension writes an audit entry if a trail is attached.
func (h *EntityIssueHandler) recordEnumExtension(ctx context.Context, entityType, fieldName, value string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordEnumExtension(ctx, entityType, fieldName, value); err != nil {
		h.logger.Warn("audit record failed", "field", fieldName, "error", err)
	}
}
