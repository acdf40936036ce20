package ollama

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

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)

		resp := map[string]interface{}{
			"model":    got.Model,
			"response": " Beagles need about an hour of exercise a day. ",
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g := New(server.URL, "llava")
	resp, err := g.Generate(context.Background(), llm.Request{
		Prompt:          "How much exercise does a beagle need?",
		Image:           []byte{0xFF, 0xD8, 0xFF, 0xE0},
		MaxOutputTokens: 300,
	})
	require.NoError(t, err)

	text, ok := resp.Extract()
	require.True(t, ok)
	assert.Equal(t, "Beagles need about an hour of exercise a day.", text)

	assert.Equal(t, "llava", got.Model)
	assert.False(t, got.Stream)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, float64(0), got.Options["temperature"])
	assert.Equal(t, float64(300), got.Options["num_predict"])
}

func TestOllamaGenerateNetworkError(t *testing.T) {
	g := New("http://localhost:99999", "llava")

	_, err := g.Generate(context.Background(), llm.Request{Prompt: "hi"})
	assert.Error(t, err)
}

func TestOllamaGenerateBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, "").Generate(context.Background(), llm.Request{Prompt: "hi"})
	assert.Error(t, err)
}
