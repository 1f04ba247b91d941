package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/auratask/internal/dto"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/middleware"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/services"
	"github.com/yukikurage/auratask/internal/utils"
)

type TaskHandler struct {
	taskService      *services.TaskService
	commentService   *services.CommentService
	assistantService *services.AssistantService
}

func NewTaskHandler(taskService *services.TaskService, commentService *services.CommentService, assistantService *services.AssistantService) *TaskHandler {
	return &TaskHandler{
		taskService:      taskService,
		commentService:   commentService,
		assistantService: assistantService,
	}
}

// ListTasks returns the tasks visible to the current user
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	params := utils.GetPageParams(c)
	filter := services.TaskListFilter{
		AssignedToMe: c.Query("assigned_to_me") == "true",
		Page:         params.Page,
		PageSize:     params.PageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), actor, filter)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.PageSize, total))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		AssigneeID  *uint64             `json:"assignee_id"`
		DueDate     string              `json:"due_date"`
		Priority    models.TaskPriority `json:"priority"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Omitted fields are left alone;
// "unassign": true removes the assignee.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		Priority    *models.TaskPriority `json:"priority"`
		DueDate     *string              `json:"due_date"`
		Status      *models.TaskStatus   `json:"status"`
		AssigneeID  *uint64              `json:"assignee_id"`
		Unassign    bool                 `json:"unassign"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Unassign && req.AssigneeID != nil {
		apierrors.BadRequest(c, "assignee_id and unassign cannot be combined")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, taskID, services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		Status:        req.Status,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.Unassign,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, taskID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ListComments returns a task's comments, oldest first
func (h *TaskHandler) ListComments(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]dto.CommentDTO, len(comments))
	for i, comment := range comments {
		out[i] = dto.ToCommentDTO(comment)
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

// AddComment posts a comment on a task
func (h *TaskHandler) AddComment(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	type CommentRequest struct {
		Content string `json:"content"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), actor, taskID, req.Content)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// Assist asks the task assistant for a proposal. Nothing is stored; the client
// confirms a proposal through CreateTask.
func (h *TaskHandler) Assist(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type AssistRequest struct {
		Prompt string `json:"prompt"`
	}

	var req AssistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	reply, err := h.assistantService.Propose(c.Request.Context(), actor, req.Prompt)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}

func requireActor(c *gin.Context) (permissions.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return actor, false
	}
	return actor, true
}

func requireActorAndTask(c *gin.Context) (permissions.Actor, uint64, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return actor, 0, false
	}
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return actor, 0, false
	}
	return actor, taskID, true
}
