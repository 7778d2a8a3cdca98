// internal/llm/ollama/ollama.go
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "llama3.1"
)

// Client completes prompts against a local Ollama daemon using the
// non-streaming generate endpoint.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

// New creates an Ollama client. Endpoint and model fall back to local
// defaults when empty.
func New(endpoint, model string) (*Client, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		// Local inference without a GPU can take minutes.
		http: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *Client) Name() string { return "ollama" }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// Complete posts one generate call and returns the full response text.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	payload, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  false,
		Options: generateOptions{NumPredict: maxTokens},
	})
	if err != nil {
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Result{}, core.WrapError(core.ErrLLMTimeout, err)
		}
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return llm.Result{}, core.WrapError(core.ErrLLMFailed,
			fmt.Errorf("ollama returned %d: %s", resp.StatusCode, snippet))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return llm.Result{}, core.WrapError(core.ErrLLMFailed, fmt.Errorf("decoding response: %w", err))
	}

	return llm.Result{
		Text:         out.Response,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}, nil
}
