package repository

import (
	"context"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task inside an organization
func (r *GormTaskRepository) FindByID(ctx context.Context, organizationID, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("organization_id = ?", organizationID).
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.organization_id = ?", filter.OrganizationID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.ManagerID != nil {
		employeeSubQuery := r.db.Model(&models.User{}).
			Select("users.id").
			Where("users.organization_id = ? AND users.role = ?", filter.OrganizationID, models.RoleEmployee)
		query = query.Where(
			"(tasks.assignee_id IS NULL OR tasks.assignee_id IN (?) OR tasks.assignee_id = ? OR tasks.created_by_id = ?)",
			employeeSubQuery, *filter.ManagerID, *filter.ManagerID,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// ListByAssignee returns a user's tasks, most recently updated first
func (r *GormTaskRepository) ListByAssignee(ctx context.Context, organizationID, userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND assignee_id = ?", organizationID, userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateFields writes the given columns and bumps updated_at
func (r *GormTaskRepository) UpdateFields(ctx context.Context, task *models.Task, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(task).Omit(clause.Associations).Updates(fields).Error
}

// Delete removes a task and its comments in a transaction
func (r *GormTaskRepository) Delete(ctx context.Context, organizationID, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}

		result := tx.Where("organization_id = ?", organizationID).Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountActiveByAssignee counts a user's tasks in TO_DO, IN_PROGRESS or BLOCKED
func (r *GormTaskRepository) CountActiveByAssignee(ctx context.Context, organizationID, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("organization_id = ? AND assignee_id = ? AND status IN ?", organizationID, userID, models.ActiveTaskStatuses).
		Count(&count).Error
	return count, err
}
