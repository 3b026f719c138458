package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// ISSUE CREATION
// =============================================================================

// CreateIssueForEntity creates the Jira issue that mirrors a Shotgun
// entity and links the two through the cross-reference fields. The
// payload is validated against the project's creation metadata before
// anything is written; a payload that cannot satisfy it fails without
// side effects.
func (h *EntityIssueHandler) CreateIssueForEntity(
	ctx context.Context,
	entity *core.Entity,
	project *jira.Project,
	summary string,
	description string,
	extra map[string]any,
) (*jira.Issue, error) {
	issueType, err := h.jira.IssueTypeByName(ctx, h.issueType)
	if err != nil {
		return nil, err
	}

	createMeta, err := h.jira.CreationMetadata(ctx, project, issueType.ID)
	if err != nil {
		return nil, err
	}
	if createMeta == nil {
		return nil, fmt.Errorf(
			"project %s does not allow creating %s issues", project.Key, h.issueType)
	}

	reporter, err := h.reporterForEntity(ctx, entity, project)
	if err != nil {
		return nil, err
	}

	crossRef := h.jira.CrossRefFields()
	data := map[string]any{
		"project":          project.RawValue(),
		"issuetype":        issueType.RawValue(),
		"reporter":         reporter.RawValue(),
		"summary":          newlineStripper.Replace(summary),
		"description":      description,
		crossRef.IDField:   strconv.Itoa(entity.ID),
		crossRef.TypeField: entity.Type,
	}
	if crossRef.URLField != "" {
		data[crossRef.URLField] = h.shotgun.EntityPageURL(&entity.EntityRef)
	}
	for k, v := range extra {
		data[k] = v
	}

	if err := validateCreationPayload(data, createMeta, h.logger.With("entity", entity.String())); err != nil {
		return nil, err
	}

	issue, err := h.jira.CreateIssue(ctx, data)
	if err != nil {
		return nil, err
	}
	h.recordUpdate(ctx, DirectionShotgunToJira, issue.Key, data)
	h.logger.Info("created jira issue for entity",
		"entity", entity.String(), "issue", issue.Key)
	return issue, nil
}

// reporterForEntity picks the issue reporter: the entity's creator when
// that is a person with a matching Jira account, otherwise the bridge's
// own user.
func (h *EntityIssueHandler) reporterForEntity(ctx context.Context, entity *core.Entity, project *jira.Project) (*jira.User, error) {
	current, err := h.jira.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	createdBy := entity.Ref("created_by")
	if !createdBy.IsHumanUser() {
		return current, nil
	}
	creator, err := h.shotgun.Consolidate(ctx, createdBy, []string{"email"})
	if err != nil {
		return nil, err
	}
	if creator == nil || creator.Text("email") == "" {
		return current, nil
	}
	reporter, err := h.jira.FindUserByEmail(ctx, creator.Text("email"), project)
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		h.logger.Debug("entity creator has no jira account, using bridge user",
			"creator", creator.String())
		return current, nil
	}
	return reporter, nil
}

// validateCreationPayload checks the payload against creation metadata in
// two passes. Pass one rejects when a required field without a server
// default is missing. Pass two prunes fields the project does not accept
// and empty values that a server default will fill, and rejects empty
// required fields without one.
func validateCreationPayload(data map[string]any, meta jira.Metadata, logger *slog.Logger) error {
	var missing []string
	for fieldID, fieldMeta := range meta {
		if !fieldMeta.Required || fieldMeta.HasDefault {
			continue
		}
		if _, ok := data[fieldID]; !ok {
			missing = append(missing, fieldMeta.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("required fields missing from creation payload: %s",
			strings.Join(missing, ", "))
	}

	var invalid []string
	for fieldID := range data {
		fieldMeta, ok := meta[fieldID]
		if !ok {
			logger.Warn("dropping field not accepted at creation", "jira_field", fieldID)
			delete(data, fieldID)
			continue
		}
		if !isEmptyValue(data[fieldID]) || !fieldMeta.Required {
			continue
		}
		if fieldMeta.HasDefault {
			logger.Info("dropping empty field, server default applies", "jira_field", fieldID)
			delete(data, fieldID)
			continue
		}
		invalid = append(invalid, fieldMeta.Name)
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return fmt.Errorf("required fields have empty values: %s",
			strings.Join(invalid, ", "))
	}
	return nil
}
