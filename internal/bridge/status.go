package bridge

import (
	"context"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// STATUS AND WATCHER SYNC
// Statuses and watchers do not travel through the field pipeline: Jira
// exposes them through workflow transitions and the watcher endpoints,
// not as plain field updates.
// =============================================================================

// SyncStatusToJira moves the issue to the Jira status mapped from the
// Shotgun status code, via an available workflow transition. Returns
// false when the code has no mapping or no transition reaches the target
// status.
func (h *EntityIssueHandler) SyncStatusToJira(ctx context.Context, issue *jira.Issue, sgStatus, comment string) (bool, error) {
	jiraStatus, ok := h.statuses.JiraStatus(sgStatus)
	if !ok {
		h.logger.Warn("shotgun status has no jira mapping",
			"issue", issue.Key, "status", sgStatus)
		return false, nil
	}
	moved, err := h.jira.SetIssueStatus(ctx, issue, jiraStatus, comment)
	if err != nil {
		return false, err
	}
	if moved {
		h.recordUpdate(ctx, DirectionShotgunToJira, issue.Key,
			map[string]any{"status": jiraStatus})
	}
	return moved, nil
}

// SyncWatchersToJira applies a watcher-list delta to the issue. People
// without a Jira account are skipped; removal of someone who is not
// watching is a no-op on the Jira side.
func (h *EntityIssueHandler) SyncWatchersToJira(ctx context.Context, issue *jira.Issue, added, removed []*core.EntityRef) error {
	for _, ref := range removed {
		user, err := h.jiraUserForRef(ctx, ref)
		if err != nil {
			return err
		}
		if user == nil {
			continue
		}
		if err := h.jira.RemoveWatcher(ctx, issue.Key, user); err != nil {
			return err
		}
	}
	for _, ref := range added {
		user, err := h.jiraUserForRef(ctx, ref)
		if err != nil {
			return err
		}
		if user == nil {
			continue
		}
		if err := h.jira.AddWatcher(ctx, issue.Key, user); err != nil {
			return err
		}
	}
	return nil
}

// jiraUserForRef resolves a Shotgun person reference to their Jira
// account. Returns nil without error for non-people and people without a
// matching account.
func (h *EntityIssueHandler) jiraUserForRef(ctx context.Context, ref *core.EntityRef) (*jira.User, error) {
	if !ref.IsHumanUser() {
		h.logger.Debug("skipping non-person watcher", "ref", ref)
		return nil, nil
	}
	person, err := h.shotgun.Consolidate(ctx, ref, []string{"email"})
	if err != nil {
		return nil, err
	}
	if person == nil || person.Text("email") == "" {
		h.logger.Debug("watcher has no email address", "ref", ref)
		return nil, nil
	}
	user, err := h.jira.FindUserByEmail(ctx, person.Text("email"), nil)
	if err != nil {
		return nil, err
	}
	if user == nil {
		h.logger.Debug("watcher has no jira account", "email", person.Text("email"))
		return nil, nil
	}
	return user, nil
}
