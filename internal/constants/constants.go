package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "task_session"
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Accounts
const (
	MinPasswordLength = 8
	TrialPeriodDays   = 20
	InviteExpiry      = 7 * 24 * time.Hour
)

// Performance evaluation
const (
	EvaluationStaleAfter     = 24 * time.Hour
	MaxEvaluationTasks       = 10
	MaxAssistantContextTasks = 10
)
