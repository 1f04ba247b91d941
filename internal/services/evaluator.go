package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/auratask/internal/constants"
	"github.com/yukikurage/auratask/internal/models"
)

// Evaluator produces a narrative performance evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (string, error)
}

// EvaluationInput is what an Evaluator sees of one member.
type EvaluationInput struct {
	UserName string
	Total    int
	Blocked  int
	Metrics  Metrics
	// RecentTasks holds at most constants.MaxEvaluationTasks tasks, newest first.
	RecentTasks []models.Task
}

// BasicEvaluation is the rule-based narrative used when no evaluator is
// configured or the evaluator fails.
func BasicEvaluation(m Metrics) string {
	var b strings.Builder

	switch {
	case m.CompletionRate >= 90:
		fmt.Fprintf(&b, "Excellent performance! %d%% completion rate demonstrates strong reliability and commitment. ", m.CompletionRate)
	case m.CompletionRate >= 75:
		fmt.Fprintf(&b, "Strong performance with a %d%% completion rate. ", m.CompletionRate)
	case m.CompletionRate >= 60:
		fmt.Fprintf(&b, "Good performance with room for improvement. Current completion rate is %d%%. ", m.CompletionRate)
	default:
		fmt.Fprintf(&b, "Performance needs attention. Completion rate of %d%% indicates challenges that should be addressed. ", m.CompletionRate)
	}

	switch {
	case m.AverageTimeDays <= 5:
		fmt.Fprintf(&b, "Tasks are completed efficiently with an average time of %d days. ", m.AverageTimeDays)
	case m.AverageTimeDays <= 10:
		fmt.Fprintf(&b, "Task completion time is reasonable at %d days on average. ", m.AverageTimeDays)
	default:
		fmt.Fprintf(&b, "Task completion time could be improved (currently %d days average). ", m.AverageTimeDays)
	}

	if m.TasksOverdue > 0 {
		fmt.Fprintf(&b, "Attention needed: %d task(s) are currently overdue. ", m.TasksOverdue)
	}

	fmt.Fprintf(&b, "Has successfully completed %d tasks. ", m.TasksCompleted)

	switch {
	case m.CompletionRate >= 85 && m.AverageTimeDays <= 7 && m.TasksOverdue == 0:
		b.WriteString("Recommended for high-priority and complex assignments.")
	case m.CompletionRate >= 70:
		b.WriteString("Suitable for standard task assignments.")
	default:
		b.WriteString("Consider providing additional support and resources.")
	}

	return b.String()
}

func buildEvaluationPrompt(input EvaluationInput) string {
	var tasks strings.Builder
	for i, t := range input.RecentTasks {
		if i >= constants.MaxEvaluationTasks {
			break
		}
		fmt.Fprintf(&tasks, "%d. %q - Status: %s, Priority: %s, Due: %s\n", i+1, t.Title, t.Status, t.Priority, t.DueDate)
	}
	if tasks.Len() == 0 {
		tasks.WriteString("No tasks assigned yet.\n")
	}

	return fmt.Sprintf(`You are Aura, an intelligent Performance Analyst for a task management system. Analyze the following performance data for %s and provide a comprehensive, professional evaluation.

Performance Metrics:
- Total Tasks Assigned: %d
- Tasks Completed: %d
- Tasks In Progress: %d
- Tasks Blocked: %d
- Completion Rate: %d%%
- Average Completion Time: %d days
- Overdue Tasks: %d

Recent Task Activity:
%s
Provide a detailed performance evaluation (2-3 paragraphs) that includes:
1. Overall performance assessment
2. Strengths and areas of excellence
3. Areas for improvement and specific recommendations
4. Workload analysis and capacity assessment
5. Suggestions for task assignment optimization

Be professional, constructive, and data-driven. Focus on actionable insights.`,
		input.UserName,
		input.Total,
		input.Metrics.TasksCompleted,
		input.Metrics.TasksInProgress,
		input.Blocked,
		input.Metrics.CompletionRate,
		input.Metrics.AverageTimeDays,
		input.Metrics.TasksOverdue,
		tasks.String(),
	)
}
