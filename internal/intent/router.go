package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/deckoviz/vizzy/internal/types"
)

// creationVerbs mark a message as a generation request for the
// heuristic fallback.
var creationVerbs = []string{
	"create", "draw", "paint", "generate", "design", "make", "render",
	"sketch", "illustrate", "compose", "visualize", "visualise", "imagine",
	"build", "produce",
}

// Router never fails: the model classification degrades to the
// heuristic default on any error or unparsable output, and the cheap
// paths (empty input, explicit chat mode) skip the model entirely.
type Router struct {
	model  Classifier
	logger *slog.Logger
}

func NewRouter(model Classifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{model: model, logger: logger}
}

// Classify routes one message. mode is the caller's declared UI mode
// ("chat" or "image").
func (r *Router) Classify(ctx context.Context, text, mode string, history []types.Turn) types.ClassifiedIntent {
	trimmed := strings.TrimSpace(text)

	// Empty input never reaches the model.
	if trimmed == "" {
		return types.ClassifiedIntent{
			Category: types.IntentCommentary,
			Segment:  types.SegmentUnknown,
			Prompt:   "",
		}
	}

	// Explicit chat mode forces the conversational path without a
	// classification call.
	if mode == "" || mode == types.ModeChat {
		return types.ClassifiedIntent{
			Category: types.IntentCommentary,
			Segment:  types.SegmentHome,
			Prompt:   trimmed,
		}
	}

	if r.model != nil {
		ci, err := r.model.Classify(ctx, trimmed, history)
		if err == nil {
			return ci
		}
		r.logger.Warn("intent classification degraded to heuristic", "error", err)
	}

	return r.heuristic(trimmed, mode)
}

// heuristic is the zero-network fallback: image mode defaults to
// visual generation, otherwise the presence of an imperative creation
// verb separates prompt generation from commentary.
func (r *Router) heuristic(trimmed, mode string) types.ClassifiedIntent {
	ci := types.ClassifiedIntent{Segment: types.SegmentUnknown, Prompt: trimmed}
	switch {
	case mode == types.ModeImage:
		ci.Category = types.IntentVisualGeneration
	case hasCreationVerb(trimmed):
		ci.Category = types.IntentPromptGeneration
	default:
		ci.Category = types.IntentCommentary
	}
	return ci
}

func hasCreationVerb(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		for _, verb := range creationVerbs {
			if w == verb {
				return true
			}
		}
	}
	return false
}
