package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/breedchat/internal/llm"
)

const DefaultModel = "llava"

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type Generator struct {
	host   string
	model  string
	client *http.Client
}

func New(host, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := generateRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.HasImage() {
		body.Images = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}
	if req.MaxOutputTokens > 0 {
		body.Options["num_predict"] = req.MaxOutputTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &llm.Response{Candidates: []llm.Candidate{{Output: respBody.Response}}}, nil
}
