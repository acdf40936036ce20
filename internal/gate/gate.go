// Package gate decides whether an uploaded image shows a dog before it
// reaches the breed classifier.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/breedchat/internal/llm"
)

// ErrGate is returned when the vision call fails. A failure is never
// reported as a yes or no answer.
var ErrGate = errors.New("dog image check failed")

// Prompt constrains the model to a binary reply.
const Prompt = `Look at this image and decide whether it shows a dog.
Reply with exactly one of these two answers and nothing else:
dog
not dog`

const affirmative = "dog"

type Gate struct {
	generator llm.Generator
	logger    *slog.Logger
}

func New(generator llm.Generator, logger *slog.Logger) *Gate {
	return &Gate{generator: generator, logger: logger}
}

// IsDogImage reports whether the model answered exactly "dog", ignoring
// surrounding whitespace. Any other reply, including "Dog." or a hedged
// sentence, is false.
func (g *Gate) IsDogImage(ctx context.Context, image []byte, mimeType string) (bool, error) {
	resp, err := g.generator.Generate(ctx, llm.Request{
		Prompt:      Prompt,
		Image:       image,
		MIMEType:    mimeType,
		Temperature: 0,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGate, err)
	}

	text, _ := resp.Extract()
	isDog := strings.TrimSpace(text) == affirmative
	g.logger.Debug("dog image check", "reply", text, "is_dog", isDog)
	return isDog, nil
}
