package services

import (
	"context"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
)

// CommentService handles task comments
type CommentService struct {
	repos *repository.Repositories
	tasks *TaskService
}

func NewCommentService(repos *repository.Repositories, tasks *TaskService) *CommentService {
	return &CommentService{repos: repos, tasks: tasks}
}

// AddComment posts a comment on a task the actor may comment on.
func (s *CommentService) AddComment(ctx context.Context, actor permissions.Actor, taskID uint64, content string) (*models.TaskComment, error) {
	task, err := s.tasks.findTask(ctx, actor, permissions.OpCommentTask, taskID)
	if err != nil {
		return nil, err
	}

	if err := actor.AuthorizeComment(targetOf(task)); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierrors.NewValidation(permissions.OpCommentTask, "content", "Comment cannot be empty")
	}

	comment := &models.TaskComment{
		TaskID:  task.ID,
		UserID:  actor.ID,
		Content: content,
	}
	if err := s.repos.Comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a task's comments, oldest first. Comments follow the
// visibility of their task.
func (s *CommentService) ListComments(ctx context.Context, actor permissions.Actor, taskID uint64) ([]models.TaskComment, error) {
	task, err := s.tasks.GetTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repos.Comments.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
