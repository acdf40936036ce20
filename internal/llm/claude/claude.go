package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/breedchat/internal/llm"
)

const DefaultModel = "claude-sonnet-4-5"

// defaultMaxTokens applies when a request does not bound its output; the
// Messages API requires max_tokens.
const defaultMaxTokens = 1024

type Generator struct {
	client *anthropic.Client
	model  string
}

// New creates a Messages API client. baseURL is optional.
func New(apiKey, model, baseURL string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("claude api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Generator{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}, nil
}

func buildMessages(req llm.Request) []anthropic.Message {
	var content []anthropic.MessageContent
	if req.HasImage() {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				llm.ImageMIME(req.MIMEType),
				base64.StdEncoding.EncodeToString(req.Image),
			),
		))
	}
	content = append(content, anthropic.NewTextMessageContent(req.Prompt))
	return []anthropic.Message{{Role: anthropic.RoleUser, Content: content}}
}

func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(g.model),
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var texts []string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			texts = append(texts, c.GetText())
		}
	}
	return llm.TextResponse(strings.Join(texts, "\n")), nil
}
