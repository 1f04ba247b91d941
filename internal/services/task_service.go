package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"gorm.io/gorm"
)

const msgTaskNotFound = "Task not found"

// TaskService applies task mutations together with their counter, metric and
// notification side effects.
type TaskService struct {
	repos       *repository.Repositories
	performance *PerformanceService
	notifier    notify.Enqueuer
	logger      *slog.Logger
	appURL      string
}

// NewTaskService creates a new TaskService
func NewTaskService(repos *repository.Repositories, performance *PerformanceService, notifier notify.Enqueuer, logger *slog.Logger, appURL string) *TaskService {
	return &TaskService{
		repos:       repos,
		performance: performance,
		notifier:    notifier,
		logger:      orDefaultLogger(logger),
		appURL:      strings.TrimRight(appURL, "/"),
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  *uint64
	DueDate     string
	Priority    models.TaskPriority
}

// UpdateTaskInput represents a partial task update. Nil fields are not
// requested; ClearAssignee unassigns the task.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	DueDate       *string
	Status        *models.TaskStatus
	AssigneeID    *uint64
	ClearAssignee bool
}

// TaskListFilter represents filters for listing tasks
type TaskListFilter struct {
	Status       *models.TaskStatus
	AssignedToMe bool
	Page         int
	PageSize     int
}

// ListTasks returns the tasks the actor may see
func (s *TaskService) ListTasks(ctx context.Context, actor permissions.Actor, input TaskListFilter) ([]models.Task, int64, error) {
	filter := visibilityFilter(actor)
	filter.Status = input.Status
	filter.Page = input.Page
	filter.PageSize = input.PageSize
	if input.AssignedToMe {
		filter.AssigneeID = &actor.ID
	}

	tasks, total, err := s.repos.Tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task visible to the actor. Invisible tasks are reported
// as not found.
func (s *TaskService) GetTask(ctx context.Context, actor permissions.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, permissions.OpViewTask, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewTask(targetOf(task)) {
		return nil, apierrors.NewNotFound(permissions.OpViewTask, msgTaskNotFound)
	}
	return task, nil
}

// CreateTask validates, authorizes and inserts a task in TO_DO, then
// recounts the assignee's active tasks in the same transaction.
func (s *TaskService) CreateTask(ctx context.Context, actor permissions.Actor, input CreateTaskInput) (*models.Task, error) {
	const op = permissions.OpCreateTask

	if err := actor.AuthorizeCreate(nil, ""); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apierrors.NewValidation(op, "title", "Title is required")
	}
	dueDate := strings.TrimSpace(input.DueDate)
	if dueDate == "" {
		return nil, apierrors.NewValidation(op, "due_date", "Due date is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, apierrors.NewValidation(op, "priority", "Priority must be one of LOW, MEDIUM, HIGH, URGENT")
	}

	var assignee *models.User
	if input.AssigneeID != nil {
		var err error
		assignee, err = s.findMember(ctx, op, actor.OrganizationID, *input.AssigneeID)
		if err != nil {
			return nil, err
		}
		if err := actor.AuthorizeCreate(&assignee.ID, assignee.Role); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:          title,
		Description:    input.Description,
		AssigneeID:     input.AssigneeID,
		Status:         models.TaskStatusTodo,
		Priority:       priority,
		DueDate:        dueDate,
		OrganizationID: actor.OrganizationID,
		CreatedByID:    actor.ID,
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if assignee != nil {
			recountInTx(ctx, tx, s.logger, assignee.ID, actor.OrganizationID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assignee != nil {
		s.notifyAssigned(ctx, actor, task, assignee)
	}

	return s.reload(ctx, task)
}

// UpdateTask authorizes every requested field group before writing anything.
// A field is requested when it is present in the input, even if it carries the
// current value; only changed values are written. A task the actor cannot see
// reads as missing unless the request is one the actor may make on it anyway.
// Counter recomputation runs inside the write transaction; metric
// recomputation and notifications run after commit and never fail the update.
func (s *TaskService) UpdateTask(ctx context.Context, actor permissions.Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	const op = "update_task"

	task, err := s.findTask(ctx, actor, op, taskID)
	if err != nil {
		return nil, err
	}
	target := targetOf(task)
	visible := actor.CanViewTask(target)

	req := permissions.UpdateRequest{
		Status:   input.Status != nil,
		Content:  input.Title != nil || input.Description != nil || input.Priority != nil || input.DueDate != nil,
		Reassign: input.ClearAssignee || input.AssigneeID != nil,
	}
	if !visible && !req.Status && !req.Content && !req.Reassign {
		return nil, apierrors.NewNotFound(op, msgTaskNotFound)
	}

	var newAssignee *models.User
	if input.AssigneeID != nil && !input.ClearAssignee {
		newAssignee, err = s.findMember(ctx, op, actor.OrganizationID, *input.AssigneeID)
		if err != nil {
			if !visible {
				return nil, apierrors.NewNotFound(op, msgTaskNotFound)
			}
			return nil, err
		}
		req.NewAssigneeID = &newAssignee.ID
		req.NewAssigneeRole = newAssignee.Role
	}

	if err := actor.AuthorizeUpdate(target, req); err != nil {
		if !visible {
			return nil, apierrors.NewNotFound(op, msgTaskNotFound)
		}
		return nil, err
	}

	fields := make(map[string]interface{})

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apierrors.NewValidation(op, "title", "Title cannot be empty")
		}
		if title != task.Title {
			fields["title"] = title
		}
	}
	if input.Description != nil && *input.Description != task.Description {
		fields["description"] = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apierrors.NewValidation(op, "priority", "Priority must be one of LOW, MEDIUM, HIGH, URGENT")
		}
		if *input.Priority != task.Priority {
			fields["priority"] = *input.Priority
		}
	}
	if input.DueDate != nil {
		dueDate := strings.TrimSpace(*input.DueDate)
		if dueDate == "" {
			return nil, apierrors.NewValidation(op, "due_date", "Due date cannot be empty")
		}
		if dueDate != task.DueDate {
			fields["due_date"] = dueDate
		}
	}

	statusChanged := false
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apierrors.NewValidation(op, "status", "Status must be one of TO_DO, IN_PROGRESS, DONE, BLOCKED")
		}
		if *input.Status != task.Status {
			fields["status"] = *input.Status
			statusChanged = true
		}
	}

	oldAssignee := task.Assignee
	reassigned := false
	switch {
	case input.ClearAssignee:
		if task.AssigneeID != nil {
			fields["assignee_id"] = nil
			reassigned = true
		}
	case newAssignee != nil && !sameID(task.AssigneeID, &newAssignee.ID):
		fields["assignee_id"] = newAssignee.ID
		reassigned = true
	default:
		newAssignee = nil
	}

	if len(fields) == 0 {
		return task, nil
	}

	oldStatus := task.Status
	statusCrossed := statusChanged && oldStatus.Active() != input.Status.Active()

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tasks.UpdateFields(ctx, task, fields); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		switch {
		case reassigned:
			if oldAssignee != nil {
				recountInTx(ctx, tx, s.logger, oldAssignee.ID, task.OrganizationID)
			}
			if newAssignee != nil {
				recountInTx(ctx, tx, s.logger, newAssignee.ID, task.OrganizationID)
			}
		case statusCrossed && oldAssignee != nil:
			recountInTx(ctx, tx, s.logger, oldAssignee.ID, task.OrganizationID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reload(ctx, task)
	if err != nil {
		return nil, err
	}

	if s.performance != nil {
		switch {
		case reassigned:
			if oldAssignee != nil {
				s.performance.recomputeQuietly(ctx, oldAssignee.ID, task.OrganizationID)
			}
			if newAssignee != nil {
				s.performance.recomputeQuietly(ctx, newAssignee.ID, task.OrganizationID)
			}
		case statusChanged && oldAssignee != nil:
			s.performance.recomputeQuietly(ctx, oldAssignee.ID, task.OrganizationID)
		}
	}

	if statusChanged && oldAssignee != nil && oldAssignee.ID != task.CreatedByID {
		s.notifyProgress(ctx, updated, oldAssignee, oldStatus)
	}
	if newAssignee != nil {
		s.notifyAssigned(ctx, actor, updated, newAssignee)
	}

	return updated, nil
}

// DeleteTask removes a task after checking delete permission and refreshes
// the former assignee's counter and metrics.
func (s *TaskService) DeleteTask(ctx context.Context, actor permissions.Actor, taskID uint64) error {
	task, err := s.findTask(ctx, actor, permissions.OpDeleteTask, taskID)
	if err != nil {
		return err
	}

	target := targetOf(task)
	if err := actor.AuthorizeDelete(target); err != nil {
		if !actor.CanViewTask(target) {
			return apierrors.NewNotFound(permissions.OpDeleteTask, msgTaskNotFound)
		}
		return err
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tasks.Delete(ctx, task.OrganizationID, task.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NewNotFound(permissions.OpDeleteTask, msgTaskNotFound)
			}
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if task.AssigneeID != nil {
			recountInTx(ctx, tx, s.logger, *task.AssigneeID, task.OrganizationID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if task.AssigneeID != nil && s.performance != nil {
		s.performance.recomputeQuietly(ctx, *task.AssigneeID, task.OrganizationID)
	}

	return nil
}

func (s *TaskService) findTask(ctx context.Context, actor permissions.Actor, op string, taskID uint64) (*models.Task, error) {
	task, err := s.repos.Tasks.FindByID(ctx, actor.OrganizationID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewNotFound(op, msgTaskNotFound)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// findMember resolves an assignee. A user outside the organization is a
// validation failure on the assignee field.
func (s *TaskService) findMember(ctx context.Context, op string, organizationID, userID uint64) (*models.User, error) {
	user, err := s.repos.Users.FindInOrganization(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewValidation(op, "assignee_id", "Assignee is not a member of this organization")
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}
	return user, nil
}

func (s *TaskService) reload(ctx context.Context, task *models.Task) (*models.Task, error) {
	reloaded, err := s.repos.Tasks.FindByID(ctx, task.OrganizationID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return reloaded, nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, actor permissions.Actor, task *models.Task, assignee *models.User) {
	if s.notifier == nil {
		return
	}

	assignerName := "A teammate"
	if assigner, err := s.repos.Users.FindByID(ctx, actor.ID); err == nil {
		assignerName = assigner.Name
	}

	s.notifier.Enqueue(notify.TaskAssigned(notify.TaskAssignedParams{
		ToEmail:      assignee.Email,
		ToName:       assignee.Name,
		TaskTitle:    task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		Priority:     string(task.Priority),
		Status:       string(task.Status),
		AssignerName: assignerName,
		DashboardURL: s.appURL + "/dashboard",
	}))
}

func (s *TaskService) notifyProgress(ctx context.Context, task *models.Task, assignee *models.User, oldStatus models.TaskStatus) {
	if s.notifier == nil {
		return
	}

	creator, err := s.repos.Users.FindByID(ctx, task.CreatedByID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping progress notification, creator not found",
			"task_id", task.ID,
			"error", err,
		)
		return
	}

	s.notifier.Enqueue(notify.TaskProgress(notify.TaskProgressParams{
		ToEmail:       creator.Email,
		ToName:        creator.Name,
		TaskTitle:     task.Title,
		AssigneeName:  assignee.Name,
		AssigneeEmail: assignee.Email,
		OldStatus:     string(oldStatus),
		NewStatus:     string(task.Status),
		DashboardURL:  s.appURL + "/dashboard",
	}))
}

// visibilityFilter scopes a task listing to what the actor may see.
func visibilityFilter(actor permissions.Actor) repository.TaskFilter {
	filter := repository.TaskFilter{OrganizationID: actor.OrganizationID}
	switch {
	case actor.Has(permissions.CapViewAllTasks):
	case actor.Has(permissions.CapViewTeamTasks):
		filter.ManagerID = &actor.ID
	default:
		filter.AssigneeID = &actor.ID
	}
	return filter
}

func targetOf(task *models.Task) permissions.TaskTarget {
	target := permissions.TaskTarget{
		AssigneeID:  task.AssigneeID,
		CreatedByID: task.CreatedByID,
	}
	if task.Assignee != nil {
		target.AssigneeRole = task.Assignee.Role
	}
	return target
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
