package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/vbonduro/breedchat/internal/llm"
)

const DefaultModel = "gemini-2.5-flash"

type Generator struct {
	client *genai.Client
	model  string
}

// New creates a Gemini API client. baseURL is optional and only used to
// point the client at a test server.
func New(ctx context.Context, apiKey, model, baseURL string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.HasImage() {
		parts = append(parts, genai.NewPartFromBytes(req.Image, llm.ImageMIME(req.MIMEType)))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temperature := req.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	return toResponse(resp), nil
}

func toResponse(resp *genai.GenerateContentResponse) *llm.Response {
	out := &llm.Response{}
	for _, c := range resp.Candidates {
		cand := llm.Candidate{}
		if c.Content != nil {
			content := &llm.Content{}
			for _, p := range c.Content.Parts {
				if p != nil && p.Text != "" && !p.Thought {
					content.Parts = append(content.Parts, llm.Part{Text: p.Text})
				}
			}
			cand.Content = content
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out
}
