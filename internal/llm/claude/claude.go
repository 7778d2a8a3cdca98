// internal/llm/claude/claude.go
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
)

const defaultModel = "claude-sonnet-4-20250514"

// Client completes prompts through the Anthropic messages API.
type Client struct {
	api   anthropic.Client
	model string
}

// New creates a Claude client. The model falls back to a recent Sonnet
// when left empty.
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("claude api key not set"))
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}, nil
}

func (c *Client) Name() string { return "claude" }

// Complete sends one message and concatenates the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Result{}, core.WrapError(core.ErrLLMTimeout, err)
		}
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return llm.Result{
		Text:         text.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
