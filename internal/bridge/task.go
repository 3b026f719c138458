package bridge

// =============================================================================
// TASK HANDLER
// The production configuration: Shotgun Tasks mirrored as Jira Tasks.
// =============================================================================

// taskFieldsToJira maps Task fields to the Jira fields they sync to.
// Status and the CC list are routed through the dedicated helpers, not
// the field pipeline.
var taskFieldsToJira = map[string]string{
	"content":        "summary",
	"sg_description": "description",
	"task_assignees": "assignee",
	"tags":           "labels",
	"due_date":       "duedate",
	"est_in_mins":    "timetracking",
}

// taskFieldsToShotgun maps Jira field ids back to Task fields.
var taskFieldsToShotgun = map[string]string{
	"summary":      "content",
	"description":  "sg_description",
	"assignee":     "task_assignees",
	"labels":       "tags",
	"duedate":      "due_date",
	"timetracking": "est_in_mins",
	"status":       "sg_status_list",
}

// taskStatuses maps Task status codes to Jira status names. Several codes
// fold into one Jira status; the reverse lookup picks the smallest code.
var taskStatuses = StatusMapping{
	"wtg": "To Do",
	"rdy": "To Do",
	"ip":  "In Progress",
	"fin": "Done",
	"res": "Done",
	"hld": "Backlog",
}

// NewTaskIssueHandler creates the handler syncing Shotgun Tasks with Jira
// Task issues, with the production field and status mappings.
func NewTaskIssueHandler(sg ShotgunClient, j JiraClient, opts ...Option) *EntityIssueHandler {
	base := []Option{
		WithStatusField("sg_status_list"),
		WithWatchersField("addressings_cc"),
	}
	return NewEntityIssueHandler(sg, j, "Task", "Task",
		NewFieldMapping(taskFieldsToJira, taskFieldsToShotgun),
		taskStatuses,
		append(base, opts...)...,
	)
}
