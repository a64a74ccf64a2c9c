// Package intent classifies incoming messages into an intent category
// and an audience segment. A model-backed classifier does the real
// work; a zero-network heuristic covers the fast paths and every
// failure mode, so classification never errors out to callers.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deckoviz/vizzy/internal/provider"
	"github.com/deckoviz/vizzy/internal/types"
)

// Classifier turns a message plus recent history into a classified
// intent.
type Classifier interface {
	Classify(ctx context.Context, text string, history []types.Turn) (types.ClassifiedIntent, error)
}

// classifyInstruction is a compact instruction block, deliberately much
// smaller than the full creative system prompt: routing a message must
// not cost a full generation call.
const classifyInstruction = `You are an AI art director. Analyze the user's request and respond with a JSON object only, with these keys:
  - intent: one of ["visual_generation", "prompt_generation", "refinement", "commentary"]
  - prompt: a cleaned prompt suitable for an image model
  - user_type: "home" or "enterprise" depending on whether the request seems consumer-oriented or business/brand-oriented`

// ModelClassifier routes via one lightweight text-provider call.
type ModelClassifier struct {
	llm provider.TextProvider
}

func NewModelClassifier(llm provider.TextProvider) *ModelClassifier {
	return &ModelClassifier{llm: llm}
}

type classification struct {
	Intent   string `json:"intent"`
	Prompt   string `json:"prompt"`
	UserType string `json:"user_type"`
}

func (c *ModelClassifier) Classify(ctx context.Context, text string, history []types.Turn) (types.ClassifiedIntent, error) {
	user := fmt.Sprintf("User request: %q", text)
	if len(history) > 0 {
		last := history[len(history)-1]
		user = fmt.Sprintf("Previous assistant reply: %q\n%s", last.Content, user)
	}

	raw, err := c.llm.Complete(ctx, classifyInstruction, []provider.Message{{Role: "user", Content: user}}, provider.CompleteOptions{
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		return types.ClassifiedIntent{}, fmt.Errorf("classification call: %w", err)
	}

	parsed, err := extractJSON(raw)
	if err != nil {
		return types.ClassifiedIntent{}, err
	}

	category := types.IntentCategory(parsed.Intent)
	if !category.Valid() {
		return types.ClassifiedIntent{}, fmt.Errorf("unknown intent category %q", parsed.Intent)
	}
	segment := types.Segment(parsed.UserType)
	if !segment.Valid() {
		segment = types.SegmentUnknown
	}
	prompt := strings.TrimSpace(parsed.Prompt)
	if prompt == "" {
		prompt = text
	}
	return types.ClassifiedIntent{Category: category, Segment: segment, Prompt: prompt}, nil
}

// extractJSON locates the outermost JSON object in a completion that
// may be wrapped in prose or code fences.
func extractJSON(raw string) (classification, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return classification{}, fmt.Errorf("no JSON object in classification response")
	}
	var parsed classification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return classification{}, fmt.Errorf("parse classification response: %w", err)
	}
	return parsed, nil
}
