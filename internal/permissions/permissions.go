// Package permissions answers whether an actor may perform an operation on a
// task or member. Every function here is pure; callers supply the target's
// assignee and creator (and the assignee's role when a rule depends on it).
package permissions

import (
	"github.com/yukikurage/auratask/internal/models"
)

// Capability is a single grant held by a role.
type Capability uint32

const (
	CapViewAllTasks Capability = 1 << iota
	CapViewTeamTasks
	CapCreateTasks
	CapAssignAnyone
	CapEditAnyTask
	CapEditTeamTasks
	CapChangeAnyStatus
	CapReassign
	CapDeleteAnyTask
	CapDeleteOwnTasks
	CapCommentAnyTask
	CapViewAllMembers
	CapViewEmployees
	CapInviteEmployees
	CapInviteManagers
	CapMonitorPerformance
)

const adminCapabilities = CapViewAllTasks | CapCreateTasks | CapAssignAnyone | CapEditAnyTask |
	CapChangeAnyStatus | CapReassign | CapDeleteAnyTask | CapCommentAnyTask | CapViewAllMembers |
	CapInviteEmployees | CapInviteManagers | CapMonitorPerformance

const managerCapabilities = CapViewTeamTasks | CapCreateTasks | CapEditTeamTasks | CapChangeAnyStatus |
	CapReassign | CapDeleteOwnTasks | CapCommentAnyTask | CapViewEmployees | CapInviteEmployees |
	CapMonitorPerformance

// CapabilitiesFor returns the capability set of role. OWNER and ADMIN are identical.
func CapabilitiesFor(role models.Role) Capability {
	switch role {
	case models.RoleOwner, models.RoleAdmin:
		return adminCapabilities
	case models.RoleManager:
		return managerCapabilities
	default:
		return 0
	}
}

// Actor is the authenticated user of a request with its capabilities resolved.
type Actor struct {
	ID             uint64
	OrganizationID uint64
	Role           models.Role
	caps           Capability
}

// NewActor resolves the capability set for role once.
func NewActor(id, organizationID uint64, role models.Role) Actor {
	return Actor{
		ID:             id,
		OrganizationID: organizationID,
		Role:           role,
		caps:           CapabilitiesFor(role),
	}
}

// Has reports whether the actor holds every capability in c.
func (a Actor) Has(c Capability) bool {
	return c != 0 && a.caps&c == c
}

// TaskTarget is the part of a task the rules look at. AssigneeRole is empty
// when the task is unassigned.
type TaskTarget struct {
	AssigneeID   *uint64
	AssigneeRole models.Role
	CreatedByID  uint64
}

func (t TaskTarget) assignedTo(userID uint64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// CanViewTask implements the task visibility row.
func (a Actor) CanViewTask(t TaskTarget) bool {
	switch {
	case a.Has(CapViewAllTasks):
		return true
	case a.Has(CapViewTeamTasks):
		return t.AssigneeID == nil ||
			t.AssigneeRole == models.RoleEmployee ||
			t.assignedTo(a.ID) ||
			t.CreatedByID == a.ID
	default:
		return t.assignedTo(a.ID)
	}
}

func (a Actor) CanCreateTask() bool {
	return a.Has(CapCreateTasks)
}

// CanAssignTo reports whether the actor may make userID (holding role) the
// assignee of a task, on creation or reassignment.
func (a Actor) CanAssignTo(userID uint64, role models.Role) bool {
	if a.Has(CapAssignAnyone) {
		return true
	}
	if !a.Has(CapCreateTasks) && !a.Has(CapReassign) {
		return false
	}
	return userID == a.ID || role == models.RoleEmployee
}

// CanEditTask covers title, description, priority and due date.
func (a Actor) CanEditTask(t TaskTarget) bool {
	switch {
	case a.Has(CapEditAnyTask):
		return true
	case a.Has(CapEditTeamTasks):
		if t.CreatedByID == a.ID {
			return true
		}
		return t.AssigneeID != nil && t.AssigneeRole == models.RoleEmployee
	default:
		return false
	}
}

func (a Actor) CanChangeStatus(t TaskTarget) bool {
	return a.Has(CapChangeAnyStatus) || t.assignedTo(a.ID)
}

func (a Actor) CanReassign() bool {
	return a.Has(CapReassign)
}

func (a Actor) CanDeleteTask(t TaskTarget) bool {
	if a.Has(CapDeleteAnyTask) {
		return true
	}
	return a.Has(CapDeleteOwnTasks) && t.CreatedByID == a.ID
}

func (a Actor) CanComment(t TaskTarget) bool {
	return a.Has(CapCommentAnyTask) || t.assignedTo(a.ID)
}

// CanViewMember implements the roster row. Every actor can see itself.
func (a Actor) CanViewMember(memberID uint64, memberRole models.Role) bool {
	switch {
	case memberID == a.ID:
		return true
	case a.Has(CapViewAllMembers):
		return true
	case a.Has(CapViewEmployees):
		return memberRole == models.RoleEmployee
	default:
		return false
	}
}

// CanInvite reports whether the actor may invite a new member with role.
// Only MANAGER and EMPLOYEE invites exist.
func (a Actor) CanInvite(role models.Role) bool {
	switch role {
	case models.RoleEmployee:
		return a.Has(CapInviteEmployees)
	case models.RoleManager:
		return a.Has(CapInviteManagers)
	default:
		return false
	}
}

func (a Actor) CanMonitorPerformance() bool {
	return a.Has(CapMonitorPerformance)
}
