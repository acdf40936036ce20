package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/breedchat/internal/llm"
)

func TestGenerate(t *testing.T) {
	var got struct {
		Model       string   `json:"model"`
		MaxTokens   int      `json:"max_tokens"`
		Temperature *float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content []struct {
				Type   string `json:"type"`
				Text   string `json:"text"`
				Source *struct {
					Type      string `json:"type"`
					MediaType string `json:"media_type"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}
	var apiKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		resp := map[string]interface{}{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": "claude-test",
			"content": []map[string]interface{}{
				{"type": "text", "text": "Not dog."},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 2},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g, err := New("sk-test", "claude-test", server.URL)
	require.NoError(t, err)

	resp, err := g.Generate(context.Background(), llm.Request{
		Prompt:   "Is this a dog?",
		Image:    []byte{0x89, 'P', 'N', 'G'},
		MIMEType: "image/png",
	})
	require.NoError(t, err)

	text, ok := resp.Extract()
	require.True(t, ok)
	assert.Equal(t, "Not dog.", text)

	assert.Equal(t, "sk-test", apiKey)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Zero(t, *got.Temperature)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "image", got.Messages[0].Content[0].Type)
	require.NotNil(t, got.Messages[0].Content[0].Source)
	assert.Equal(t, "image/png", got.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "Is this a dog?", got.Messages[0].Content[1].Text)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	g, err := New("sk-test", "claude-test", server.URL)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), llm.Request{Prompt: "hello"})
	assert.Error(t, err)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", "", "")
	assert.Error(t, err)
}
