// Package backend selects the text-generation backend from configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/breedchat/internal/llm"
	"github.com/vbonduro/breedchat/internal/llm/claude"
	"github.com/vbonduro/breedchat/internal/llm/gemini"
	"github.com/vbonduro/breedchat/internal/llm/ollama"
)

const (
	Gemini = "gemini"
	Claude = "claude"
	Ollama = "ollama"
)

type Config struct {
	Backend      string
	GeminiAPIKey string
	GeminiModel  string
	ClaudeAPIKey string
	ClaudeModel  string
	OllamaHost   string
	OllamaModel  string
}

// New returns the Generator named by cfg.Backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Backend {
	case Gemini, "":
		logger.Info("using gemini backend", "model", cfg.GeminiModel)
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	case Claude:
		logger.Info("using claude backend", "model", cfg.ClaudeModel)
		g, err := claude.New(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	case Ollama:
		logger.Info("using ollama backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollama.New(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
