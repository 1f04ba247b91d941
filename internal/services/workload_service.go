package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/repository"
)

// WorkloadService maintains the cached active-task counter on users.
type WorkloadService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewWorkloadService creates a new WorkloadService
func NewWorkloadService(repos *repository.Repositories, logger *slog.Logger) *WorkloadService {
	return &WorkloadService{repos: repos, logger: orDefaultLogger(logger)}
}

// CountActive counts tasks in TO_DO, IN_PROGRESS or BLOCKED.
func CountActive(tasks []models.Task) int {
	count := 0
	for _, t := range tasks {
		if t.Status.Active() {
			count++
		}
	}
	return count
}

// Recount recomputes a user's active-task counter from the task table and
// overwrites the cached value. Running it repeatedly converges on the same value.
func (s *WorkloadService) Recount(ctx context.Context, userID, organizationID uint64) (int64, error) {
	return recount(ctx, s.repos, userID, organizationID)
}

// Verify compares the cached counter against the user's tasks without writing.
func (s *WorkloadService) Verify(ctx context.Context, userID, organizationID uint64) (cached, actual int, err error) {
	user, err := s.repos.Users.FindInOrganization(ctx, organizationID, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find user: %w", err)
	}

	tasks, err := s.repos.Tasks.ListByAssignee(ctx, organizationID, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return user.TasksCount, CountActive(tasks), nil
}

// RecountOrganization recounts every member of an organization and returns
// the number of users whose cached value changed.
func (s *WorkloadService) RecountOrganization(ctx context.Context, organizationID uint64) (int, error) {
	users, err := s.repos.Users.ListByOrganization(ctx, organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to list members: %w", err)
	}

	changed := 0
	for _, u := range users {
		count, err := s.Recount(ctx, u.ID, organizationID)
		if err != nil {
			return changed, err
		}
		if int(count) != u.TasksCount {
			changed++
			s.logger.InfoContext(ctx, "corrected active task count",
				"user_id", u.ID,
				"old", u.TasksCount,
				"new", count,
			)
		}
	}
	return changed, nil
}

func recount(ctx context.Context, repos *repository.Repositories, userID, organizationID uint64) (int64, error) {
	count, err := repos.Tasks.CountActiveByAssignee(ctx, organizationID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active tasks: %w", err)
	}

	if err := repos.Users.UpdateTasksCount(ctx, userID, count); err != nil {
		return 0, fmt.Errorf("failed to update tasks count: %w", err)
	}

	return count, nil
}

// recountInTx recounts inside a savepoint of tx so a failure is logged
// without aborting the enclosing task write.
func recountInTx(ctx context.Context, tx *repository.Repositories, logger *slog.Logger, userID, organizationID uint64) {
	err := tx.Transaction(ctx, func(sp *repository.Repositories) error {
		_, err := recount(ctx, sp, userID, organizationID)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "counter recomputation failed",
			"user_id", userID,
			"organization_id", organizationID,
			"error", err,
		)
	}
}

func orDefaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
