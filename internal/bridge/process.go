package bridge

import (
	"context"
	"fmt"

	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// SHOTGUN EVENT PROCESSING
// =============================================================================

// ProcessShotgunEvent applies an accepted Shotgun change event to the
// linked Jira issue, creating the issue first when the change turns the
// sync toggle on. Returns true when anything was written to Jira.
func (h *EntityIssueHandler) ProcessShotgunEvent(ctx context.Context, event *core.ShotgunEvent) (bool, error) {
	fields := h.fields.ShotgunFields()
	fields = append(fields,
		shotgunJiraKeyField, shotgunSyncToggleField, "created_by", "project")
	if h.statusField != "" {
		fields = append(fields, h.statusField)
	}
	if h.watchersField != "" {
		fields = append(fields, h.watchersField)
	}

	entity, err := h.shotgun.Consolidate(ctx,
		&core.EntityRef{Type: event.EntityType, ID: event.EntityID}, fields)
	if err != nil {
		return false, err
	}
	if entity == nil {
		h.logger.Warn("changed entity no longer exists",
			"entity_type", event.EntityType, "entity_id", event.EntityID)
		return false, nil
	}

	issueKey := entity.Text(shotgunJiraKeyField)
	if event.Meta.FieldName == shotgunSyncToggleField {
		if issueKey != "" || !truthy(event.Meta.NewValue) {
			h.logger.Debug("sync toggle change needs no action",
				"entity", entity.String(), "issue", issueKey)
			return false, nil
		}
		return h.createLinkedIssue(ctx, entity)
	}
	if issueKey == "" {
		h.logger.Debug("entity not linked to a jira issue", "entity", entity.String())
		return false, nil
	}

	issue, err := h.jira.Issue(ctx, issueKey)
	if err != nil {
		return false, err
	}

	switch event.Meta.FieldName {
	case h.statusField:
		status, _ := event.Meta.NewValue.(string)
		comment := ""
		if event.User != nil && event.User.Name != "" {
			comment = fmt.Sprintf("Status changed by %s.", event.User.Name)
		}
		return h.SyncStatusToJira(ctx, issue, status, comment)

	case h.watchersField:
		err := h.SyncWatchersToJira(ctx, issue, event.Meta.AddedRefs(), event.Meta.RemovedRefs())
		return err == nil, err
	}

	fieldID, value, err := h.IssueFieldSyncValue(ctx,
		issue.Fields.Project, issue, entity.Type, event.Meta.FieldName, &event.Meta)
	if err != nil {
		if core.IsInvalidValue(err) {
			h.logger.Warn("skipping untranslatable shotgun value",
				"entity", entity.String(), "field", event.Meta.FieldName, "error", err)
			return false, nil
		}
		return false, err
	}
	if fieldID == "" {
		return false, nil
	}

	data := map[string]any{fieldID: value}
	if err := h.jira.UpdateIssue(ctx, issue.Key, data); err != nil {
		return false, err
	}
	h.recordUpdate(ctx, DirectionShotgunToJira, issue.Key, data)
	h.logger.Info("synced shotgun change to jira",
		"entity", entity.String(), "issue", issue.Key, "jira_field", fieldID)
	return true, nil
}

// createLinkedIssue creates the mirror issue for an entity that just
// opted into syncing and writes the link back onto the entity.
func (h *EntityIssueHandler) createLinkedIssue(ctx context.Context, entity *core.Entity) (bool, error) {
	if h.jiraProject == nil {
		return false, fmt.Errorf("no jira project configured for %s issue creation", h.issueType)
	}

	issue, err := h.CreateIssueForEntity(ctx, entity, h.jiraProject,
		entity.Name, h.descriptionForEntity(entity), nil)
	if err != nil {
		return false, err
	}

	err = h.shotgun.Update(ctx, entity.Type, entity.ID, map[string]any{
		shotgunJiraKeyField: issue.Key,
		shotgunJiraURLField: h.jira.IssueBrowseURL(issue.Key),
	})
	if err != nil {
		return false, fmt.Errorf("write issue link back to %s: %w", entity.String(), err)
	}
	return true, nil
}

// descriptionForEntity picks the initial issue description from the first
// mapped Shotgun field that targets the Jira description.
func (h *EntityIssueHandler) descriptionForEntity(entity *core.Entity) string {
	for _, sgField := range h.fields.ShotgunFields() {
		if fieldID, _ := h.fields.JiraField(sgField); fieldID == "description" {
			return entity.Text(sgField)
		}
	}
	return ""
}

// truthy mirrors checkbox semantics for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case nil:
		return false
	}
	return true
}
