// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/mhollert/bret/internal/config"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
	"github.com/mhollert/bret/internal/llm/claude"
	"github.com/mhollert/bret/internal/llm/ollama"
	"github.com/mhollert/bret/internal/llm/openai"
)

// New builds the completion backend named in the config.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
}
