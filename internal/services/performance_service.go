package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/yukikurage/auratask/internal/constants"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("member not found")

// strictDueDate matches only YYYY-MM-DD. Free-text due dates such as
// "end of Q4" never count as overdue.
var strictDueDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Metrics are the numbers derived from one member's tasks.
type Metrics struct {
	CompletionRate  int `json:"completion_rate"`
	AverageTimeDays int `json:"average_time_days"`
	TasksCompleted  int `json:"tasks_completed"`
	TasksInProgress int `json:"tasks_in_progress"`
	TasksOverdue    int `json:"tasks_overdue"`
}

// ComputeMetrics derives Metrics from every task assigned to one member.
func ComputeMetrics(tasks []models.Task, now time.Time) Metrics {
	var m Metrics
	if len(tasks) == 0 {
		return m
	}

	totalDays := 0
	timed := 0
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusDone:
			m.TasksCompleted++
			if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() {
				days := int(math.Ceil(t.UpdatedAt.Sub(t.CreatedAt).Hours() / 24))
				if days < 1 {
					days = 1
				}
				totalDays += days
				timed++
			}
			continue
		case models.TaskStatusInProgress:
			m.TasksInProgress++
		}

		if IsOverdue(t.DueDate, now) {
			m.TasksOverdue++
		}
	}

	m.CompletionRate = int(math.Round(100 * float64(m.TasksCompleted) / float64(len(tasks))))
	if timed > 0 {
		m.AverageTimeDays = int(math.Round(float64(totalDays) / float64(timed)))
	}
	return m
}

// IsOverdue reports whether dueDate is a strict YYYY-MM-DD date before now.
func IsOverdue(dueDate string, now time.Time) bool {
	if !strictDueDate.MatchString(dueDate) {
		return false
	}
	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return false
	}
	return due.Before(now)
}

// MonitorResult summarizes a monitoring batch.
type MonitorResult struct {
	Success   bool     `json:"success"`
	Evaluated int      `json:"evaluated"`
	Errors    []string `json:"errors"`
}

// PerformanceService computes and stores per-member performance metrics.
type PerformanceService struct {
	repos     *repository.Repositories
	evaluator Evaluator
	logger    *slog.Logger
	workers   int
	now       func() time.Time
}

// NewPerformanceService creates a PerformanceService. evaluator may be nil,
// in which case every narrative is rule-based.
func NewPerformanceService(repos *repository.Repositories, evaluator Evaluator, logger *slog.Logger, workers int) *PerformanceService {
	if workers <= 0 {
		workers = 4
	}
	return &PerformanceService{
		repos:     repos,
		evaluator: evaluator,
		logger:    orDefaultLogger(logger),
		workers:   workers,
		now:       time.Now,
	}
}

// Recompute gathers a member's tasks, derives metrics and upserts the
// (user, organization) metric row. With useAI set the narrative is
// regenerated: by the evaluator when one is configured, otherwise (or when it
// fails) by BasicEvaluation. Without useAI only the numbers are refreshed,
// except on the first write which stores a rule-based narrative.
func (s *PerformanceService) Recompute(ctx context.Context, userID, organizationID uint64, useAI bool) (*models.PerformanceMetric, error) {
	user, err := s.repos.Users.FindInOrganization(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	tasks, err := s.repos.Tasks.ListByAssignee(ctx, organizationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	metrics := ComputeMetrics(tasks, now)

	metric := &models.PerformanceMetric{
		UserID:          userID,
		OrganizationID:  organizationID,
		CompletionRate:  metrics.CompletionRate,
		AverageTimeDays: metrics.AverageTimeDays,
		TasksCompleted:  metrics.TasksCompleted,
		TasksInProgress: metrics.TasksInProgress,
		TasksOverdue:    metrics.TasksOverdue,
		LastEvaluation:  BasicEvaluation(metrics),
	}
	if useAI {
		metric.LastEvaluation = s.narrate(ctx, user, tasks, metrics)
		metric.EvaluationDate = &now
	}

	if err := s.repos.Metrics.Upsert(ctx, metric); err != nil {
		return nil, fmt.Errorf("failed to store metrics: %w", err)
	}

	stored, err := s.repos.Metrics.FindByUser(ctx, organizationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload metrics: %w", err)
	}
	return stored, nil
}

func (s *PerformanceService) narrate(ctx context.Context, user *models.User, tasks []models.Task, m Metrics) string {
	if s.evaluator == nil {
		return BasicEvaluation(m)
	}

	recent := tasks
	if len(recent) > constants.MaxEvaluationTasks {
		recent = recent[:constants.MaxEvaluationTasks]
	}

	blocked := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusBlocked {
			blocked++
		}
	}

	narrative, err := s.evaluator.Evaluate(ctx, EvaluationInput{
		UserName:    user.Name,
		Total:       len(tasks),
		Blocked:     blocked,
		Metrics:     m,
		RecentTasks: recent,
	})
	if err != nil {
		dep := apierrors.NewDependencyFailure("evaluate_member", "performance evaluation unavailable", err)
		s.logger.WarnContext(ctx, "falling back to rule-based evaluation",
			"user_id", user.ID,
			"error", dep,
		)
		return BasicEvaluation(m)
	}
	return narrative
}

// MonitorAllMembers re-evaluates every member of the actor's organization
// with AI enabled. Members are processed in parallel; one member's failure is
// recorded and does not stop the others.
func (s *PerformanceService) MonitorAllMembers(ctx context.Context, actor permissions.Actor) (*MonitorResult, error) {
	if err := actor.AuthorizeMonitor(); err != nil {
		return nil, err
	}

	users, err := s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	var (
		mu       sync.Mutex
		result   = &MonitorResult{Errors: []string{}}
		failures = make([]string, len(users))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, u := range users {
		g.Go(func() error {
			if _, err := s.Recompute(gctx, u.ID, actor.OrganizationID, true); err != nil {
				failures[i] = fmt.Sprintf("Failed to evaluate %s: %v", u.Name, err)
				s.logger.ErrorContext(ctx, "member evaluation failed", "user_id", u.ID, "error", err)
				return nil
			}
			mu.Lock()
			result.Evaluated++
			mu.Unlock()
			return nil
		})
	}

	// Workers never return an error; failures are collected per member.
	_ = g.Wait()

	for _, f := range failures {
		if f != "" {
			result.Errors = append(result.Errors, f)
		}
	}
	result.Success = len(result.Errors) == 0

	return result, nil
}

// MemberMetric pairs a member with its stored metric.
type MemberMetric struct {
	User   models.User              `json:"user"`
	Metric models.PerformanceMetric `json:"metric"`
}

// ListMetrics recomputes and returns the metrics of every member the actor may
// see. Narratives never generated or older than a day, or all of them when
// force is set, are regenerated; the rest only refresh their numbers.
func (s *PerformanceService) ListMetrics(ctx context.Context, actor permissions.Actor, force bool) ([]MemberMetric, error) {
	if err := actor.AuthorizeMonitor(); err != nil {
		return nil, err
	}

	users, err := s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	existing, err := s.repos.Metrics.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	byUser := make(map[uint64]models.PerformanceMetric, len(existing))
	for _, m := range existing {
		byUser[m.UserID] = m
	}

	visible := make([]models.User, 0, len(users))
	for _, u := range users {
		if actor.CanViewMember(u.ID, u.Role) {
			visible = append(visible, u)
		}
	}

	now := s.now()
	results := make([]MemberMetric, len(visible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, u := range visible {
		useAI := force || stale(byUser[u.ID], now)
		g.Go(func() error {
			metric, err := s.Recompute(gctx, u.ID, actor.OrganizationID, useAI)
			if err != nil {
				return fmt.Errorf("failed to recompute metrics for user %d: %w", u.ID, err)
			}
			results[i] = MemberMetric{User: u, Metric: *metric}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func stale(m models.PerformanceMetric, now time.Time) bool {
	if m.ID == 0 || m.EvaluationDate == nil {
		return true
	}
	return now.Sub(*m.EvaluationDate) > constants.EvaluationStaleAfter
}

// recomputeQuietly refreshes numbers without AI and only logs failures.
func (s *PerformanceService) recomputeQuietly(ctx context.Context, userID, organizationID uint64) {
	if _, err := s.Recompute(ctx, userID, organizationID, false); err != nil {
		s.logger.ErrorContext(ctx, "metric recomputation failed",
			"user_id", userID,
			"organization_id", organizationID,
			"error", err,
		)
	}
}
