package bridge

import (
	"strings"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// EVENT ACCEPTANCE
// Filters are pure gates: they inspect the delivered payload only, never
// call out to either system, and never fail. A rejected event is logged
// at debug level and dropped.
// =============================================================================

// AcceptJiraEvent reports whether a delivered Jira webhook event is one
// this handler syncs. resourceType and resourceID come from the webhook
// URL, the event from the request body.
func (h *EntityIssueHandler) AcceptJiraEvent(resourceType, resourceID string, event *jira.WebhookEvent) bool {
	if !strings.EqualFold(resourceType, "issue") {
		h.logger.Debug("rejecting jira event: unsupported resource type",
			"resource_type", resourceType)
		return false
	}
	if event == nil || event.Issue == nil {
		h.logger.Debug("rejecting jira event: no issue payload",
			"resource_id", resourceID)
		return false
	}
	if event.WebhookEvent != jira.EventIssueCreated && event.WebhookEvent != jira.EventIssueUpdated {
		h.logger.Debug("rejecting jira event: unsupported event kind",
			"event", event.WebhookEvent)
		return false
	}
	if event.Changelog == nil || len(event.Changelog.Items) == 0 {
		h.logger.Debug("rejecting jira event: no changelog",
			"issue", event.Issue.Key)
		return false
	}

	fields := event.Issue.Fields
	if fields.IssueType == nil || !strings.EqualFold(fields.IssueType.Name, h.issueType) {
		h.logger.Debug("rejecting jira event: issue type not handled",
			"issue", event.Issue.Key)
		return false
	}

	// Only issues the bridge created carry the Shotgun cross-reference.
	crossRef := h.jira.CrossRefFields()
	if fields.StringValue(crossRef.IDField) == "" || fields.StringValue(crossRef.TypeField) == "" {
		h.logger.Debug("rejecting jira event: issue not linked to shotgun",
			"issue", event.Issue.Key)
		return false
	}
	return true
}

// AcceptShotgunEvent reports whether a Shotgun change event is one this
// handler syncs.
func (h *EntityIssueHandler) AcceptShotgunEvent(event *core.ShotgunEvent) bool {
	if event == nil || event.EntityID == 0 {
		h.logger.Debug("rejecting shotgun event: no entity")
		return false
	}
	if event.EntityType != h.entityType {
		h.logger.Debug("rejecting shotgun event: entity type not handled",
			"entity_type", event.EntityType)
		return false
	}
	field := event.Meta.FieldName
	if field == "" {
		h.logger.Debug("rejecting shotgun event: no changed field",
			"entity_id", event.EntityID)
		return false
	}
	if _, ok := h.fields.JiraField(field); ok {
		return true
	}
	switch field {
	case h.statusField, h.watchersField:
		return field != ""
	case shotgunSyncToggleField:
		return true
	}
	h.logger.Debug("rejecting shotgun event: field not synced",
		"entity_id", event.EntityID, "field", field)
	return false
}
