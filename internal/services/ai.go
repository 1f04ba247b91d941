package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultOpenAIModel    = openai.GPT4oMini
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAIEmptyResponse        = errors.New("AI returned an empty response")
)

// Completer sends one system and user prompt pair to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error)
}

// NewCompleter returns the completer for provider, or nil when the provider
// has no API key.
func NewCompleter(provider, model, openAIKey, anthropicKey string) Completer {
	switch provider {
	case ProviderAnthropic:
		if anthropicKey == "" {
			return nil
		}
		return NewAnthropicClient(anthropicKey, model)
	default:
		if openAIKey == "" {
			return nil
		}
		return NewOpenAIClient(openAIKey, model)
	}
}

// OpenAIClient completes prompts with the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIClientWithConfig builds a client from a full go-openai config,
// e.g. to point it at a compatible endpoint.
func NewOpenAIClientWithConfig(config openai.ClientConfig, model string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrAIEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrAIEmptyResponse
	}
	return content, nil
}

// AnthropicClient completes prompts with the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	if jsonMode {
		prompt += "\n\nRespond with a single JSON object only."
	}

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 2048,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return "", ErrAIEmptyResponse
	}
	return content, nil
}

const evaluatorSystemPrompt = "You are Aura, a performance analyst for a task management system. Write plain prose, no markdown headings."

// LLMEvaluator generates performance narratives with a chat model.
type LLMEvaluator struct {
	completer Completer
}

func NewLLMEvaluator(completer Completer) *LLMEvaluator {
	return &LLMEvaluator{completer: completer}
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, input EvaluationInput) (string, error) {
	if e.completer == nil {
		return "", ErrAIServiceNotConfigured
	}
	return e.completer.Complete(ctx, evaluatorSystemPrompt, buildEvaluationPrompt(input), false)
}
