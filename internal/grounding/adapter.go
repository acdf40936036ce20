// Package grounding answers dog questions through a language model while
// steering it toward the local breed and diet data.
package grounding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/vbonduro/breedchat/internal/llm"
)

// ErrGroundingCall is returned when the language model call fails.
var ErrGroundingCall = errors.New("grounding call failed")

// NotAvailableReply is returned when the model answers with no usable text.
const NotAvailableReply = "Information not available in the provided data."

const DefaultMaxOutputTokens = 300

type Adapter struct {
	generator llm.Generator
	maxTokens int
	logger    *slog.Logger
	intn      func(n int) int
}

// New returns an Adapter. maxTokens <= 0 uses DefaultMaxOutputTokens.
func New(generator llm.Generator, maxTokens int, logger *slog.Logger) *Adapter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	return &Adapter{
		generator: generator,
		maxTokens: maxTokens,
		logger:    logger,
		intn:      rand.IntN,
	}
}

// AskGrounded answers a question. Greetings and questions without a dog
// keyword are answered locally without calling the model, whatever data is
// attached.
func (a *Adapter) AskGrounded(ctx context.Context, question string, c Context) (string, error) {
	if IsGreeting(question) {
		return GreetingReplies[a.intn(len(GreetingReplies))], nil
	}
	if !IsDogTopic(question) {
		a.logger.Debug("off-topic question refused", "question", question)
		return OffTopicReply, nil
	}

	resp, err := a.generator.Generate(ctx, llm.Request{
		Prompt:          BuildPrompt(question, c),
		Temperature:     0,
		MaxOutputTokens: a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGroundingCall, err)
	}

	answer, ok := resp.Extract()
	if !ok {
		a.logger.Warn("language model returned no text")
		return NotAvailableReply, nil
	}
	return answer, nil
}
