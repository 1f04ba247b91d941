package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yukikurage/auratask/internal/constants"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
)

// Assistant actions.
const (
	ActionLogTask      = "LOG_TASK"
	ActionConversation = "CONVERSATION"
	ActionEditTask     = "EDIT_TASK"
)

const opAssistant = "task_assistant"

const assistantFallbackReply = "I apologize, but I'm having trouble processing that request. Could you please rephrase it?"

// ProposedTask is a task the assistant suggests. It is never stored by the
// assistant; the caller confirms it through TaskService.CreateTask.
type ProposedTask struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	AssigneeID  *uint64           `json:"assigneeId"`
	DueDate     string            `json:"dueDate"`
	Status      models.TaskStatus `json:"status"`
}

// AssistantReply is the assistant's structured answer.
type AssistantReply struct {
	Action            string        `json:"action"`
	ConversationReply string        `json:"conversationReply"`
	ProposedTask      *ProposedTask `json:"proposedTask,omitempty"`
}

// rawAssistantReply accepts the assignee ID as a string or a number.
type rawAssistantReply struct {
	Action            string `json:"action"`
	ConversationReply string `json:"conversationReply"`
	ProposedTask      *struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		AssigneeID  json.RawMessage `json:"assigneeId"`
		DueDate     string          `json:"dueDate"`
	} `json:"proposedTask"`
}

// AssistantService turns free-form requests into task proposals balanced
// against each member's active workload.
type AssistantService struct {
	repos     *repository.Repositories
	completer Completer
	logger    *slog.Logger
}

func NewAssistantService(repos *repository.Repositories, completer Completer, logger *slog.Logger) *AssistantService {
	return &AssistantService{
		repos:     repos,
		completer: completer,
		logger:    orDefaultLogger(logger),
	}
}

// Propose asks the model what to do with prompt. Proposed assignees outside
// what the actor may assign are replaced by the least busy assignable member.
func (s *AssistantService) Propose(ctx context.Context, actor permissions.Actor, prompt string) (*AssistantReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apierrors.NewValidation(opAssistant, "prompt", "Prompt is required")
	}
	if err := actor.AuthorizeCreate(nil, ""); err != nil {
		return nil, err
	}
	if s.completer == nil {
		return nil, apierrors.NewDependencyFailure(opAssistant, "AI assistant is not configured", ErrAIServiceNotConfigured)
	}

	members, err := s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	assignable := make([]models.User, 0, len(members))
	for _, m := range members {
		if actor.CanViewMember(m.ID, m.Role) && actor.CanAssignTo(m.ID, m.Role) {
			assignable = append(assignable, m)
		}
	}

	filter := visibilityFilter(actor)
	filter.Page = 1
	filter.PageSize = constants.MaxAssistantContextTasks
	tasks, total, err := s.repos.Tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	text, err := s.completer.Complete(ctx, buildAssistantSystemPrompt(assignable, tasks, total), prompt, true)
	if err != nil {
		return nil, apierrors.NewDependencyFailure(opAssistant, "AI assistant request failed", err)
	}

	reply := parseAssistantReply(text)
	s.balanceAssignee(reply, assignable)
	return reply, nil
}

func (s *AssistantService) balanceAssignee(reply *AssistantReply, assignable []models.User) {
	if reply.ProposedTask == nil || len(assignable) == 0 {
		return
	}

	if reply.ProposedTask.AssigneeID != nil {
		for _, m := range assignable {
			if m.ID == *reply.ProposedTask.AssigneeID {
				return
			}
		}
	}

	leastBusy := assignable[0]
	for _, m := range assignable[1:] {
		if m.TasksCount < leastBusy.TasksCount {
			leastBusy = m
		}
	}

	id := leastBusy.ID
	reply.ProposedTask.AssigneeID = &id
	reply.ConversationReply = strings.TrimSpace(reply.ConversationReply +
		fmt.Sprintf(" I've assigned this to %s as they have the lightest workload.", leastBusy.Name))
}

func buildAssistantSystemPrompt(members []models.User, tasks []models.Task, total int64) string {
	names := make(map[uint64]string, len(members))
	var roster strings.Builder
	for _, m := range members {
		names[m.ID] = m.Name
		fmt.Fprintf(&roster, "- %s (ID: %d): %d active tasks\n", m.Name, m.ID, m.TasksCount)
	}

	var current strings.Builder
	for _, t := range tasks {
		assignee := "Unassigned"
		if t.AssigneeID != nil {
			if name, ok := names[*t.AssigneeID]; ok {
				assignee = name
			} else if t.Assignee != nil {
				assignee = t.Assignee.Name
			}
		}
		fmt.Fprintf(&current, "- %q (%s) - Assigned to: %s\n", t.Title, t.Status, assignee)
	}
	if extra := total - int64(len(tasks)); extra > 0 {
		fmt.Fprintf(&current, "... and %d more tasks\n", extra)
	}

	return fmt.Sprintf(`You are Aura, an intelligent and diligent Project Manager Assistant.

Your goal is to extract task details (title, description, assignee, dueDate) from user conversations and achieve workload balance.

WORKLOAD BALANCING RULE: If the user does not specify an assignee, compare the complexity of the task against the members' active task counts and suggest the least busy member in your conversationReply.

Available members and their current workload:
%s
Current tasks (for context):
%s
Respond ONLY with a JSON object matching this schema:
{
  "action": "LOG_TASK" | "CONVERSATION" | "EDIT_TASK",
  "conversationReply": "text to show the user",
  "proposedTask": {
    "title": "string",
    "description": "string",
    "assigneeId": "one of the member IDs above",
    "dueDate": "flexible text, e.g. '2025-02-15', 'by end of Q4', 'next Monday'",
    "status": "TO_DO"
  }
}

Rules:
- To create or log a task, set action to "LOG_TASK" and provide proposedTask
- For plain conversation, set action to "CONVERSATION" and omit proposedTask
- To edit a task, set action to "EDIT_TASK"
- If no assignee is specified, choose the member with the fewest active tasks`, roster.String(), current.String())
}

// parseAssistantReply decodes the model output, tolerating code fences and
// surrounding prose. Unparseable output becomes a plain conversation reply.
func parseAssistantReply(text string) *AssistantReply {
	jsonText := extractJSONObject(text)

	var raw rawAssistantReply
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		reply := strings.TrimSpace(text)
		if reply == "" {
			reply = assistantFallbackReply
		}
		return &AssistantReply{Action: ActionConversation, ConversationReply: reply}
	}

	reply := &AssistantReply{
		Action:            raw.Action,
		ConversationReply: raw.ConversationReply,
	}
	switch reply.Action {
	case ActionLogTask, ActionEditTask, ActionConversation:
	default:
		reply.Action = ActionConversation
	}

	if raw.ProposedTask != nil && reply.Action != ActionConversation {
		reply.ProposedTask = &ProposedTask{
			Title:       raw.ProposedTask.Title,
			Description: raw.ProposedTask.Description,
			AssigneeID:  parseFlexibleID(raw.ProposedTask.AssigneeID),
			DueDate:     raw.ProposedTask.DueDate,
			Status:      models.TaskStatusTodo,
		}
	}

	return reply
}

func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		return text
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

func parseFlexibleID(raw json.RawMessage) *uint64 {
	if len(raw) == 0 {
		return nil
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
