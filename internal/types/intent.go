package types

// IntentCategory is the classified purpose of a user message.
type IntentCategory string

const (
	IntentVisualGeneration IntentCategory = "visual_generation"
	IntentPromptGeneration IntentCategory = "prompt_generation"
	IntentRefinement       IntentCategory = "refinement"
	IntentCommentary       IntentCategory = "commentary"
)

// Valid reports whether c is one of the known categories.
func (c IntentCategory) Valid() bool {
	switch c {
	case IntentVisualGeneration, IntentPromptGeneration, IntentRefinement, IntentCommentary:
		return true
	}
	return false
}

// Visual reports whether the category leads to image generation.
func (c IntentCategory) Visual() bool {
	return c == IntentVisualGeneration || c == IntentRefinement
}

// Segment is a coarse audience hint. It influences tone and quota,
// not provider routing.
type Segment string

const (
	SegmentHome       Segment = "home"
	SegmentEnterprise Segment = "enterprise"
	SegmentUnknown    Segment = "unknown"
)

// Valid reports whether s is a known segment.
func (s Segment) Valid() bool {
	return s == SegmentHome || s == SegmentEnterprise || s == SegmentUnknown
}

// ClassifiedIntent is the outcome of routing a single message.
// Produced fresh per message and never persisted beyond the
// generation log entry.
type ClassifiedIntent struct {
	Category IntentCategory `json:"intent"`
	Segment  Segment        `json:"user_type"`
	// Prompt is the cleaned prompt text the classifier extracted,
	// falling back to the raw message when classification degrades.
	Prompt string `json:"prompt"`
}
