package bridge

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// =============================================================================
// INBOUND PIPELINE (Jira to Shotgun)
// =============================================================================

// ProcessJiraEvent applies an accepted Jira webhook event to the linked
// Shotgun entity. Returns true when an update was written. Invalid values
// on individual fields are logged and skipped; the remaining changes
// still go through in a single batched update.
func (h *EntityIssueHandler) ProcessJiraEvent(ctx context.Context, event *jira.WebhookEvent) (bool, error) {
	issue := event.Issue
	crossRef := h.jira.CrossRefFields()

	rawID := issue.Fields.StringValue(crossRef.IDField)
	sgID, err := strconv.Atoi(rawID)
	if err != nil {
		return false, fmt.Errorf("issue %s carries a malformed shotgun id %q", issue.Key, rawID)
	}
	sgType := issue.Fields.StringValue(crossRef.TypeField)

	entity, err := h.shotgun.Consolidate(ctx,
		&core.EntityRef{Type: sgType, ID: sgID},
		h.fields.MappedShotgunFields(),
	)
	if err != nil {
		return false, err
	}
	if entity == nil {
		h.logger.Warn("linked shotgun entity no longer exists",
			"issue", issue.Key, "entity_type", sgType, "entity_id", sgID)
		return false, nil
	}

	data := map[string]any{}
	for _, item := range event.Changelog.Items {
		fieldID := item.FieldID
		if fieldID == "" {
			fieldID, err = h.jira.FieldID(ctx, item.Field)
			if err != nil {
				h.logger.Warn("cannot resolve jira field id",
					"issue", issue.Key, "field", item.Field, "error", err)
				continue
			}
		}

		sgField, sgValue, err := h.EntityFieldSyncValue(ctx, entity, issue, fieldID, item)
		if err != nil {
			if core.IsInvalidValue(err) {
				h.logger.Warn("skipping untranslatable jira value",
					"issue", issue.Key, "jira_field", fieldID, "error", err)
				continue
			}
			return false, err
		}
		if sgField == "" {
			continue
		}
		data[sgField] = sgValue
	}

	if len(data) == 0 {
		h.logger.Debug("no shotgun changes for jira event", "issue", issue.Key)
		return false, nil
	}
	if err := h.shotgun.Update(ctx, entity.Type, entity.ID, data); err != nil {
		return false, err
	}
	h.recordUpdate(ctx, DirectionJiraToShotgun,
		fmt.Sprintf("%s:%d", entity.Type, entity.ID), data)
	h.logger.Info("synced jira changes to shotgun",
		"issue", issue.Key, "entity", entity.String(), "fields", len(data))
	return true, nil
}

// EntityFieldSyncValue translates one Jira changelog item into the
// Shotgun field and value to write. A "" field with a nil error means the
// change does not sync. A *core.InvalidValueError flags a value that
// cannot be represented; other errors are configuration or transport
// failures.
func (h *EntityIssueHandler) EntityFieldSyncValue(
	ctx context.Context,
	entity *core.Entity,
	issue *jira.Issue,
	fieldID string,
	item *jira.ChangeItem,
) (string, any, error) {
	sgField, ok := h.fields.ShotgunField(fieldID)
	if !ok {
		h.logger.Debug("jira field has no shotgun mapping", "jira_field", fieldID)
		return "", nil, nil
	}

	schema, err := h.shotgun.FieldSchema(ctx, entity.Type, sgField)
	if err != nil {
		return "", nil, err
	}
	if schema == nil {
		return "", nil, fmt.Errorf("unknown shotgun field %s.%s", entity.Type, sgField)
	}
	if !schema.Editable {
		h.logger.Debug("shotgun field is read-only", "field", sgField)
		return "", nil, nil
	}

	if fieldID == "assignee" {
		value, err := h.assignmentFromIssueChange(ctx, entity, issue, sgField, schema, item)
		if err != nil {
			return "", nil, err
		}
		return sgField, value, nil
	}

	value, err := h.shotgunValueFromIssueChange(ctx, entity, sgField, schema, item)
	if err != nil {
		return "", nil, err
	}
	return sgField, value, nil
}

// assignmentFromIssueChange translates an assignee change. The target
// field must be an entity link accepting people; the previous assignee is
// removed from the current value and the new one, resolved by email, is
// added.
func (h *EntityIssueHandler) assignmentFromIssueChange(
	ctx context.Context,
	entity *core.Entity,
	issue *jira.Issue,
	sgField string,
	schema *core.FieldSchema,
	item *jira.ChangeItem,
) (any, error) {
	if schema.DataType != core.TypeEntity && schema.DataType != core.TypeMultiEntity {
		return nil, fmt.Errorf(
			"assignee is mapped to %s.%s which is a %s field, need entity or multi_entity",
			entity.Type, sgField, schema.DataType)
	}
	if !schema.AcceptsType("HumanUser") {
		return nil, fmt.Errorf(
			"assignee is mapped to %s.%s which does not accept HumanUser links",
			entity.Type, sgField)
	}

	if schema.DataType == core.TypeMultiEntity {
		current := entity.Refs(sgField)
		if item.From != "" {
			previous, err := h.shotgunUserForAccountID(ctx, item.From)
			if err != nil {
				return nil, err
			}
			if previous == nil {
				h.logger.Debug("previous assignee has no shotgun account", "account_id", item.From)
			} else {
				current = removeRef(current, previous)
			}
		}
		if item.To != "" {
			next, err := h.shotgunUserForAssignee(ctx, issue)
			if err != nil {
				return nil, err
			}
			if !containsRef(current, next) {
				current = append(current, next)
			}
		}
		return current, nil
	}

	current := entity.Ref(sgField)
	if item.From != "" && current != nil {
		previous, err := h.shotgunUserForAccountID(ctx, item.From)
		if err != nil {
			return nil, err
		}
		if previous != nil && previous.ID == current.ID {
			current = nil
		}
	}
	if item.To != "" && current == nil {
		next, err := h.shotgunUserForAssignee(ctx, issue)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// shotgunUserForAccountID maps a Jira account id to the Shotgun person
// with the same email. Returns nil without error when there is none.
func (h *EntityIssueHandler) shotgunUserForAccountID(ctx context.Context, accountID string) (*core.EntityRef, error) {
	jiraUser, err := h.jira.User(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if jiraUser == nil || jiraUser.EmailAddress == "" {
		return nil, nil
	}
	return h.shotgunUserByEmail(ctx, jiraUser.EmailAddress)
}

// shotgunUserForAssignee resolves the issue's current assignee to a
// Shotgun person. An assignee that cannot be resolved is an invalid
// value, not a hard failure.
func (h *EntityIssueHandler) shotgunUserForAssignee(ctx context.Context, issue *jira.Issue) (*core.EntityRef, error) {
	assignee := issue.Fields.Assignee
	if assignee == nil || assignee.EmailAddress == "" {
		return nil, &core.InvalidValueError{
			Field:  "assignee",
			Value:  assignee,
			Reason: "assignee has no email address",
		}
	}
	user, err := h.shotgunUserByEmail(ctx, assignee.EmailAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &core.InvalidValueError{
			Field:  "assignee",
			Value:  assignee.EmailAddress,
			Reason: "no shotgun user with this email",
		}
	}
	return user, nil
}

func (h *EntityIssueHandler) shotgunUserByEmail(ctx context.Context, email string) (*core.EntityRef, error) {
	user, err := h.shotgun.FindOne(ctx, "HumanUser",
		[]core.Filter{{Field: "email", Relation: "is", Value: email}},
		[]string{"email", "name"},
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &user.EntityRef, nil
}

// shotgunValueFromIssueChange translates a non-assignment changelog item
// according to the Shotgun field's data type.
func (h *EntityIssueHandler) shotgunValueFromIssueChange(
	ctx context.Context,
	entity *core.Entity,
	sgField string,
	schema *core.FieldSchema,
	item *jira.ChangeItem,
) (any, error) {
	switch schema.DataType {
	case core.TypeText:
		return item.ToString, nil

	case core.TypeList:
		value := item.ToString
		if value == "" {
			return "", nil
		}
		for _, valid := range schema.ValidValues {
			if strings.EqualFold(valid, value) {
				return valid, nil
			}
		}
		// The closed set grows to admit the new value. Logged and audited:
		// this mutates the Shotgun schema for every entity of this type.
		extended := append(append([]string{}, schema.ValidValues...), value)
		if err := h.shotgun.UpdateSchemaEnumeration(ctx, entity.Type, sgField, extended); err != nil {
			return nil, err
		}
		h.shotgun.ClearCachedSchema(entity.Type)
		h.recordEnumExtension(ctx, entity.Type, sgField, value)
		h.logger.Info("extended shotgun list field with new value",
			"field", sgField, "value", value)
		return value, nil

	case core.TypeStatusList:
		value := item.ToString
		if value == "" {
			return nil, nil
		}
		code, ok := h.statuses.ShotgunCode(value)
		if !ok {
			return nil, &core.InvalidValueError{
				Field:  sgField,
				Value:  value,
				Reason: "jira status has no shotgun status mapping",
			}
		}
		return code, nil

	case core.TypeMultiEntity:
		return h.multiEntityFromIssueChange(ctx, entity, sgField, schema, item)

	case core.TypeDate:
		value := item.To
		if value == "" {
			return nil, nil
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return nil, &core.InvalidValueError{
				Field:  sgField,
				Value:  value,
				Reason: fmt.Sprintf("not a YYYY-MM-DD date: %v", err),
			}
		}
		return value, nil

	case core.TypeDuration, core.TypeNumber:
		value := item.ToString
		if value == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &core.InvalidValueError{
				Field:  sgField,
				Value:  value,
				Reason: "not an integer",
			}
		}
		return n, nil

	case core.TypeCheckbox:
		return item.ToString != "", nil
	}

	return nil, fmt.Errorf("cannot sync jira changes into %s.%s: unsupported data type %q",
		entity.Type, sgField, schema.DataType)
}

// multiEntityFromIssueChange folds a space-separated name delta into the
// entity's current link list. Names Jira dropped are removed by display
// name; names it added are resolved against the field's accepted entity
// types within the entity's project.
func (h *EntityIssueHandler) multiEntityFromIssueChange(
	ctx context.Context,
	entity *core.Entity,
	sgField string,
	schema *core.FieldSchema,
	item *jira.ChangeItem,
) (any, error) {
	before := nameSet(item.FromString)
	after := nameSet(item.ToString)

	consolidated, err := h.shotgun.Consolidate(ctx, &entity.EntityRef, []string{sgField, "project"})
	if err != nil {
		return nil, err
	}
	if consolidated == nil {
		return nil, fmt.Errorf("entity %s not found", entity.String())
	}
	current := consolidated.Refs(sgField)
	project := consolidated.Ref("project")

	for _, name := range setDiff(before, after) {
		var removed bool
		current, removed = removeRefByName(current, name)
		if !removed {
			h.logger.Debug("removed name not linked on entity",
				"field", sgField, "name", name)
		}
	}
	for _, name := range setDiff(after, before) {
		if containsRefByName(current, name) {
			continue
		}
		match, err := h.shotgun.MatchEntityByName(ctx, name, schema.ValidTypes, project)
		if err != nil {
			return nil, err
		}
		if match == nil {
			h.logger.Warn("added name matches no shotgun entity, dropping",
				"field", sgField, "name", name)
			continue
		}
		current = append(current, match)
	}
	return current, nil
}

// =============================================================================
// NAME SET HELPERS
// Jira renders multi-value fields in changelogs as space-separated
// display names; individual names therefore cannot contain spaces.
// =============================================================================

func nameSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, name := range strings.Fields(s) {
		set[name] = true
	}
	return set
}

// setDiff returns the members of a that are not in b, sorted for
// deterministic processing order.
func setDiff(a, b map[string]bool) []string {
	var out []string
	for name := range a {
		if !b[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func containsRef(refs []*core.EntityRef, ref *core.EntityRef) bool {
	for _, r := range refs {
		if r.Type == ref.Type && r.ID == ref.ID {
			return true
		}
	}
	return false
}

func removeRef(refs []*core.EntityRef, ref *core.EntityRef) []*core.EntityRef {
	for i, r := range refs {
		if r.Type == ref.Type && r.ID == ref.ID {
			return append(refs[:i:i], refs[i+1:]...)
		}
	}
	return refs
}

func containsRefByName(refs []*core.EntityRef, name string) bool {
	for _, r := range refs {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func removeRefByName(refs []*core.EntityRef, name string) ([]*core.EntityRef, bool) {
	for i, r := range refs {
		if strings.EqualFold(r.Name, name) {
			return append(refs[:i:i], refs[i+1:]...), true
		}
	}
	return refs, false
}
