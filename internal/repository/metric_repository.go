package repository

import (
	"context"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMetricRepository is a GORM implementation of MetricRepository
type GormMetricRepository struct {
	db *gorm.DB
}

// NewMetricRepository creates a new MetricRepository
func NewMetricRepository(db *gorm.DB) MetricRepository {
	return &GormMetricRepository{db: db}
}

// Upsert inserts the metric or overwrites the existing (user, organization)
// row. When EvaluationDate is nil only the numeric columns are overwritten,
// keeping the stored narrative and its date.
func (r *GormMetricRepository) Upsert(ctx context.Context, metric *models.PerformanceMetric) error {
	columns := []string{
		"completion_rate",
		"average_time_days",
		"tasks_completed",
		"tasks_in_progress",
		"tasks_overdue",
		"updated_at",
	}
	if metric.EvaluationDate != nil {
		columns = append(columns, "last_evaluation", "evaluation_date")
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(metric).Error
}

// FindByUser finds the metric of one user
func (r *GormMetricRepository) FindByUser(ctx context.Context, organizationID, userID uint64) (*models.PerformanceMetric, error) {
	var metric models.PerformanceMetric
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&metric).Error; err != nil {
		return nil, err
	}
	return &metric, nil
}

// ListByOrganization lists every metric in an organization
func (r *GormMetricRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.PerformanceMetric, error) {
	var metrics []models.PerformanceMetric
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("user_id ASC").
		Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}
