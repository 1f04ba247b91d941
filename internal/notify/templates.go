package notify

import (
	"fmt"
	"html"
	"strings"
)

const (
	TemplateTaskAssigned = "task-assigned"
	TemplateTaskProgress = "task-progress"
	TemplateInvite       = "invite"
	TemplateWelcome      = "welcome"
)

const noDescription = "No description provided."

// TaskAssignedParams describes a new assignment.
type TaskAssignedParams struct {
	ToEmail      string
	ToName       string
	TaskTitle    string
	Description  string
	DueDate      string
	Priority     string
	Status       string
	AssignerName string
	DashboardURL string
}

// TaskAssigned renders the email sent to a task's new assignee.
func TaskAssigned(p TaskAssignedParams) Message {
	description := orDefault(p.Description, noDescription)

	text := fmt.Sprintf("Hello %s,\n\n%s has assigned you a new task:\n\nTitle: %s\nDescription: %s\nDue Date: %s\nPriority: %s\nStatus: %s\n\nView it at %s\n",
		p.ToName, p.AssignerName, p.TaskTitle, description, p.DueDate, p.Priority, p.Status, p.DashboardURL)

	body := fmt.Sprintf("<p>Hello %s,</p><p><strong>%s</strong> has assigned you a new task:</p><h2>%s</h2><p>%s</p><p><strong>Due Date:</strong> %s</p><p><strong>Priority:</strong> %s</p><p><a href=\"%s\">View Task</a></p>",
		esc(p.ToName), esc(p.AssignerName), esc(p.TaskTitle), esc(description), esc(p.DueDate), esc(p.Priority), esc(p.DashboardURL))

	return Message{
		Template:    TemplateTaskAssigned,
		ToEmail:     p.ToEmail,
		ToName:      p.ToName,
		Subject:     "New Task Assigned: " + p.TaskTitle,
		TextContent: text,
		HTMLContent: wrapHTML("You have been assigned a new task", body),
	}
}

// TaskProgressParams describes a status change on a task.
type TaskProgressParams struct {
	ToEmail       string
	ToName        string
	TaskTitle     string
	AssigneeName  string
	AssigneeEmail string
	OldStatus     string
	NewStatus     string
	DashboardURL  string
}

var statusMessages = map[string]string{
	"TO_DO":       "Task has been created",
	"IN_PROGRESS": "Task is now in progress",
	"DONE":        "Task has been completed!",
	"BLOCKED":     "Task has been blocked",
}

// TaskProgress renders the email sent to a task's creator when its status changes.
func TaskProgress(p TaskProgressParams) Message {
	statusMessage, ok := statusMessages[p.NewStatus]
	if !ok {
		statusMessage = "Task status has been updated"
	}

	text := fmt.Sprintf("Hello %s,\n\nThe task you assigned has been updated:\n\nTitle: %s\nAssigned to: %s (%s)\nPrevious Status: %s\nNew Status: %s\n\nView it at %s\n",
		p.ToName, p.TaskTitle, p.AssigneeName, p.AssigneeEmail, p.OldStatus, p.NewStatus, p.DashboardURL)

	body := fmt.Sprintf("<p>Hello %s,</p><p>The task you assigned has been updated:</p><h2>%s</h2><p><strong>Assigned to:</strong> %s (%s)</p><p><strong>Previous Status:</strong> %s</p><p><strong>New Status:</strong> %s</p><p><a href=\"%s\">View Dashboard</a></p>",
		esc(p.ToName), esc(p.TaskTitle), esc(p.AssigneeName), esc(p.AssigneeEmail), esc(p.OldStatus), esc(p.NewStatus), esc(p.DashboardURL))

	return Message{
		Template:    TemplateTaskProgress,
		ToEmail:     p.ToEmail,
		ToName:      p.ToName,
		Subject:     fmt.Sprintf("Task Update: %s - %s", p.TaskTitle, statusMessage),
		TextContent: text,
		HTMLContent: wrapHTML(statusMessage, body),
	}
}

// InviteParams describes an invitation to join an organization.
type InviteParams struct {
	ToEmail          string
	Role             string
	InviteLink       string
	OrganizationName string
	InviterName      string
}

var roleLabels = map[string]string{
	"ADMIN":    "Administrator",
	"MANAGER":  "Manager",
	"EMPLOYEE": "Employee",
}

// Invite renders the invitation email.
func Invite(p InviteParams) Message {
	role := orDefault(roleLabels[p.Role], p.Role)

	text := fmt.Sprintf("Hello,\n\n%s has invited you to join %s on AuraTask as a %s.\n\nAccept the invitation: %s\n\nThis invitation link will expire in 7 days.\n",
		p.InviterName, p.OrganizationName, role, p.InviteLink)

	body := fmt.Sprintf("<p>Hello,</p><p><strong>%s</strong> has invited you to join <strong>%s</strong> on AuraTask as a <strong>%s</strong>.</p><p><a href=\"%s\">Accept Invitation</a></p><p>This invitation link will expire in 7 days.</p>",
		esc(p.InviterName), esc(p.OrganizationName), esc(role), esc(p.InviteLink))

	return Message{
		Template:    TemplateInvite,
		ToEmail:     p.ToEmail,
		ToName:      p.ToEmail,
		Subject:     fmt.Sprintf("You've been invited to join %s on AuraTask", p.OrganizationName),
		TextContent: text,
		HTMLContent: wrapHTML("You're Invited!", body),
	}
}

// Welcome renders the email sent after an invite is accepted.
func Welcome(toEmail, toName, organizationName, dashboardURL string) Message {
	text := fmt.Sprintf("Hello %s,\n\nYou have been added to %s on AuraTask.\n\nGet started at %s\n",
		toName, organizationName, dashboardURL)

	body := fmt.Sprintf("<p>Hello %s,</p><p>You have been added to <strong>%s</strong> on AuraTask.</p><p><a href=\"%s\">Go to Dashboard</a></p>",
		esc(toName), esc(organizationName), esc(dashboardURL))

	return Message{
		Template:    TemplateWelcome,
		ToEmail:     toEmail,
		ToName:      toName,
		Subject:     fmt.Sprintf("Welcome to %s on AuraTask", organizationName),
		TextContent: text,
		HTMLContent: wrapHTML("Welcome to AuraTask!", body),
	}
}

func wrapHTML(heading, body string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><h1>AuraTask</h1><p>")
	b.WriteString(esc(heading))
	b.WriteString("</p>")
	b.WriteString(body)
	b.WriteString("</body></html>")
	return b.String()
}

func esc(s string) string {
	return html.EscapeString(s)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
