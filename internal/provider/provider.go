// Package provider drives the prioritized chain of generation backends.
// Image providers are tried strictly in priority order with per-call
// timeouts; a local deterministic placeholder sits below the chain so a
// visual request always yields displayable content. Text generation
// uses a single provider and surfaces failures instead of falling back.
package provider

import (
	"context"
	"errors"

	"github.com/deckoviz/vizzy/internal/types"
)

// ImageProvider is the abstract capability every image backend exposes:
// generate N images for a prompt, return URLs or fail.
type ImageProvider interface {
	Name() string
	Generate(ctx context.Context, req types.GenerationRequest) ([]string, error)
}

// Message is one chat-completions message sent to the text provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteOptions tune a single text completion.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextProvider is the single LLM capability used for classification,
// conversational replies, prompt generation and captions.
type TextProvider interface {
	Name() string
	Complete(ctx context.Context, system string, msgs []Message, opts CompleteOptions) (string, error)
}

// ErrTextGeneration wraps text-provider failures. There is no text
// placeholder, so callers surface this to the user.
var ErrTextGeneration = errors.New("text generation failed")

// ErrEmptyResult marks a provider call that came back 2xx but carried
// no usable image URLs. Treated like any other provider failure.
var ErrEmptyResult = errors.New("provider returned no images")
