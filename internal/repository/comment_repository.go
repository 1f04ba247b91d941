package repository

import (
	"context"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create stores a comment and loads its author
func (r *GormCommentRepository) Create(ctx context.Context, comment *models.TaskComment) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(comment).Error; err != nil {
		return err
	}
	return db.Preload("User").First(comment, comment.ID).Error
}

// ListByTask lists the comments of a task, oldest first
func (r *GormCommentRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
