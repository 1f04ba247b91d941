package dto

import (
	"time"

	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	OrganizationID uint64      `json:"organization_id"`
	TasksCount     int         `json:"tasks_count"`
}

// AssigneeDTO is the short form of a user embedded in tasks
type AssigneeDTO struct {
	ID    uint64      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	DueDate        string              `json:"due_date"`
	AssigneeID     *uint64             `json:"assignee_id"`
	CreatedByID    uint64              `json:"created_by_id"`
	OrganizationID uint64              `json:"organization_id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Assignee       *AssigneeDTO        `json:"assignee,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// CommentDTO represents a task comment
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    UserDTO   `json:"author"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		TasksCount:     user.TasksCount,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		DueDate:        task.DueDate,
		AssigneeID:     task.AssigneeID,
		CreatedByID:    task.CreatedByID,
		OrganizationID: task.OrganizationID,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	// Include assignee if preloaded
	if task.Assignee != nil {
		dto.Assignee = &AssigneeDTO{
			ID:    task.Assignee.ID,
			Name:  task.Assignee.Name,
			Email: task.Assignee.Email,
			Role:  task.Assignee.Role,
		}
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: utils.TotalPages(totalCount, pageSize),
	}
}

// ToCommentDTO converts a comment with its preloaded author
func ToCommentDTO(comment models.TaskComment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Author:    ToUserDTO(comment.User),
	}
}
