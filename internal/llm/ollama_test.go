package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaComplete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"content":"[{\"kind\":\"PERSON\",\"text\":\"Alice\"}]"}}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL)
	out, err := p.Complete(context.Background(), "llama3.2", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "/api/chat", gotPath)
	assert.Contains(t, out, "Alice")
}

func TestOllamaCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL).Complete(context.Background(), "nope", "prompt")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestOllamaCompleteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewOllamaProvider(srv.URL).Complete(context.Background(), "llama3.2", "prompt")
	require.Error(t, err)
}

func TestOllamaDefaultBaseURL(t *testing.T) {
	p := NewOllamaProvider("")
	assert.Equal(t, "http://localhost:11434", p.baseURL)
	assert.Equal(t, "ollama", p.Name())
}

func TestOpenAIName(t *testing.T) {
	assert.Equal(t, "openai", NewOpenAIProvider("key").Name())
}
