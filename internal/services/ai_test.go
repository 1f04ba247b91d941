package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	assert.Nil(t, NewCompleter(ProviderOpenAI, "", "", "sk-ant"))
	assert.Nil(t, NewCompleter(ProviderAnthropic, "", "sk-openai", ""))
	assert.IsType(t, &OpenAIClient{}, NewCompleter(ProviderOpenAI, "", "sk-openai", ""))
	assert.IsType(t, &OpenAIClient{}, NewCompleter("", "", "sk-openai", ""))
	assert.IsType(t, &AnthropicClient{}, NewCompleter(ProviderAnthropic, "", "", "sk-ant"))
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":" {\"action\":\"CONVERSATION\"} "},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	config := openai.DefaultConfig("sk-test")
	config.BaseURL = server.URL + "/v1"
	client := NewOpenAIClientWithConfig(config, "")

	got, err := client.Complete(context.Background(), "system text", "user text", true)
	require.NoError(t, err)
	assert.Equal(t, `{"action":"CONVERSATION"}`, got)

	assert.Equal(t, openai.GPT4oMini, body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user text", messages[1].(map[string]any)["content"])
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`)
	}))
	defer server.Close()

	config := openai.DefaultConfig("sk-test")
	config.BaseURL = server.URL + "/v1"

	_, err := NewOpenAIClientWithConfig(config, "").Complete(context.Background(), "s", "p", false)
	assert.ErrorIs(t, err, ErrAIEmptyResponse)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929",
			"content":[{"type":"text","text":"Bob is "},{"type":"text","text":"doing well."}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("sk-ant", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))

	got, err := client.Complete(context.Background(), "system text", "user text", true)
	require.NoError(t, err)
	assert.Equal(t, "Bob is doing well.", got)

	assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "system text", system[0].(map[string]any)["text"])
}

func TestLLMEvaluator(t *testing.T) {
	completer := &fakeCompleter{reply: "Bob is reliable."}
	evaluator := NewLLMEvaluator(completer)

	got, err := evaluator.Evaluate(context.Background(), EvaluationInput{
		UserName: "Bob",
		Total:    4,
		Metrics:  Metrics{CompletionRate: 75, TasksCompleted: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob is reliable.", got)
	assert.Contains(t, completer.lastPrompt, "Bob")
	assert.Contains(t, completer.lastPrompt, "75%")

	_, err = NewLLMEvaluator(nil).Evaluate(context.Background(), EvaluationInput{})
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)
}

func TestParseAssistantReply(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		action     string
		assigneeID *uint64
	}{
		{"numeric id", `{"action":"LOG_TASK","proposedTask":{"title":"a","assigneeId":7}}`, ActionLogTask, ptr(uint64(7))},
		{"string id", `{"action":"LOG_TASK","proposedTask":{"title":"a","assigneeId":"7"}}`, ActionLogTask, ptr(uint64(7))},
		{"null id", `{"action":"LOG_TASK","proposedTask":{"title":"a","assigneeId":null}}`, ActionLogTask, nil},
		{"prose around json", "Here you go:\n{\"action\":\"EDIT_TASK\",\"proposedTask\":{\"title\":\"a\"}}\nThanks", ActionEditTask, nil},
		{"unknown action", `{"action":"DELETE_EVERYTHING"}`, ActionConversation, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := parseAssistantReply(tt.text)
			assert.Equal(t, tt.action, reply.Action)
			if tt.action == ActionConversation {
				assert.Nil(t, reply.ProposedTask)
				return
			}
			require.NotNil(t, reply.ProposedTask)
			assert.Equal(t, tt.assigneeID, reply.ProposedTask.AssigneeID)
		})
	}

	reply := parseAssistantReply("")
	assert.Equal(t, ActionConversation, reply.Action)
	assert.Equal(t, assistantFallbackReply, reply.ConversationReply)
}
