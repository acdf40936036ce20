package backend

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/breedchat/internal/llm/claude"
	"github.com/vbonduro/breedchat/internal/llm/gemini"
	"github.com/vbonduro/breedchat/internal/llm/ollama"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	g, err := New(ctx, Config{GeminiAPIKey: "key"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Generator{}, g)

	g, err = New(ctx, Config{Backend: Claude, ClaudeAPIKey: "key"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &claude.Generator{}, g)

	g, err = New(ctx, Config{Backend: Ollama, OllamaHost: "http://localhost:11434"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Generator{}, g)

	_, err = New(ctx, Config{Backend: Claude}, logger)
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: "openai"}, logger)
	assert.Error(t, err)
}
