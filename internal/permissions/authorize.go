package permissions

import (
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
)

// Operation names carried by authorization failures.
const (
	OpCreateTask     = "create_task"
	OpUpdateStatus   = "update_task_status"
	OpReassignTask   = "reassign_task"
	OpEditTask       = "edit_task"
	OpDeleteTask     = "delete_task"
	OpCommentTask    = "comment_task"
	OpViewTask       = "view_task"
	OpInviteMember   = "invite_member"
	OpMonitorMembers = "monitor_members"
)

// Rules that can fail.
const (
	RuleRoleCannotCreate       = "role_cannot_create_tasks"
	RuleManagerAssignsTeamOnly = "manager_assigns_employees_or_self"
	RuleStatusOwnTasksOnly     = "employee_changes_own_task_status_only"
	RuleRoleCannotReassign     = "role_cannot_reassign"
	RuleEmployeeStatusOnly     = "employee_may_only_change_status"
	RuleManagerEditsTeamOnly   = "manager_edits_own_or_employee_tasks"
	RuleDeleteCreatorOrAdmin   = "delete_requires_creator_or_admin"
	RuleCommentOwnTasksOnly    = "employee_comments_own_tasks_only"
	RuleInviteRole             = "role_cannot_invite_target_role"
	RuleMonitorRole            = "role_cannot_monitor_performance"
)

// AuthorizeCreate checks task creation and, when assigneeID is set, that the
// actor may assign to that user.
func (a Actor) AuthorizeCreate(assigneeID *uint64, assigneeRole models.Role) error {
	if !a.CanCreateTask() {
		return apierrors.NewForbidden(OpCreateTask, RuleRoleCannotCreate, "You do not have permission to create tasks")
	}
	if assigneeID != nil && !a.CanAssignTo(*assigneeID, assigneeRole) {
		return apierrors.NewInvalidAssignment(OpCreateTask, RuleManagerAssignsTeamOnly,
			"Managers can only assign tasks to members (employees) or themselves")
	}
	return nil
}

// UpdateRequest says which field groups an update touches.
type UpdateRequest struct {
	Status   bool
	Content  bool
	Reassign bool
	// NewAssigneeID is nil when the task is being unassigned.
	NewAssigneeID   *uint64
	NewAssigneeRole models.Role
}

// AuthorizeUpdate evaluates every requested field group against the current
// task. The first failing group is returned; nothing is authorized partially.
func (a Actor) AuthorizeUpdate(t TaskTarget, req UpdateRequest) error {
	if req.Status && !a.CanChangeStatus(t) {
		return apierrors.NewForbidden(OpUpdateStatus, RuleStatusOwnTasksOnly,
			"You do not have permission to change task status")
	}

	if req.Reassign {
		if !a.CanReassign() {
			return apierrors.NewForbidden(OpReassignTask, RuleRoleCannotReassign,
				"You do not have permission to reassign tasks")
		}
		if req.NewAssigneeID != nil && !a.CanAssignTo(*req.NewAssigneeID, req.NewAssigneeRole) {
			return apierrors.NewInvalidAssignment(OpReassignTask, RuleManagerAssignsTeamOnly,
				"Managers can only reassign tasks to members (employees) or themselves")
		}
	}

	if req.Content {
		if a.Role == models.RoleEmployee {
			return apierrors.NewForbidden(OpEditTask, RuleEmployeeStatusOnly,
				"You can only update the status of your tasks")
		}
		if !a.CanEditTask(t) {
			return apierrors.NewForbidden(OpEditTask, RuleManagerEditsTeamOnly,
				"Managers can only edit tasks assigned to members or tasks they created")
		}
	}

	return nil
}

func (a Actor) AuthorizeDelete(t TaskTarget) error {
	if !a.CanDeleteTask(t) {
		return apierrors.NewForbidden(OpDeleteTask, RuleDeleteCreatorOrAdmin,
			"You do not have permission to delete this task")
	}
	return nil
}

func (a Actor) AuthorizeComment(t TaskTarget) error {
	if !a.CanComment(t) {
		return apierrors.NewForbidden(OpCommentTask, RuleCommentOwnTasksOnly,
			"You do not have permission to comment on this task")
	}
	return nil
}

func (a Actor) AuthorizeInvite(role models.Role) error {
	if !a.CanInvite(role) {
		if role == models.RoleManager && a.Has(CapInviteEmployees) {
			return apierrors.NewForbidden(OpInviteMember, RuleInviteRole, "Only Admins can invite Managers")
		}
		return apierrors.NewForbidden(OpInviteMember, RuleInviteRole, "You do not have permission to invite users")
	}
	return nil
}

func (a Actor) AuthorizeMonitor() error {
	if !a.CanMonitorPerformance() {
		return apierrors.NewForbidden(OpMonitorMembers, RuleMonitorRole,
			"You do not have permission to monitor performance")
	}
	return nil
}
