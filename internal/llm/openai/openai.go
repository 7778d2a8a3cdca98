// internal/llm/openai/openai.go
package openai

import (
	"context"
	"errors"

	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o"

// Client completes prompts through the OpenAI chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// New creates an OpenAI client.
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("openai api key not set"))
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{api: openai.NewClient(apiKey), model: model}, nil
}

func (c *Client) Name() string { return "openai" }

// Complete runs a one-turn chat completion.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Result{}, core.WrapError(core.ErrLLMTimeout, err)
		}
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, errors.New("empty choice list"))
	}

	return llm.Result{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
