// Package llm abstracts the chat-completion providers used by the
// model-backed entity detector. Providers are interchangeable: an
// OpenAI-compatible endpoint or a local Ollama instance.
package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutCall caps a single completion request. Callers may impose a
// tighter deadline through ctx; the detector degrades on expiry instead of
// stalling the pipeline.
const TimeoutCall = 30 * time.Second

// Domain errors for the llm package.
var (
	ErrProviderNotAvailable = errors.New("provider not available")
	ErrNoChoices            = errors.New("no choices returned")
)

// Provider is the interface all completion providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	// Complete sends a single-turn prompt and returns the raw response text.
	Complete(ctx context.Context, model, prompt string) (string, error)
}
