package types

// Orientation is the requested aspect of the generated images.
type Orientation string

const (
	OrientationSquare    Orientation = "square"
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Phrase returns the prompt wording for the orientation.
func (o Orientation) Phrase() string {
	switch o {
	case OrientationPortrait:
		return "portrait 9:16"
	case OrientationLandscape:
		return "landscape 16:9"
	default:
		return "square 1:1"
	}
}

// MaxVariations is the hard ceiling on images per generation call.
// Count is clamped into [1, MaxVariations] regardless of caller input.
const MaxVariations = 4

// ClampCount clamps n into the valid variation range. Zero and
// negative values fall back to the default of MaxVariations.
func ClampCount(n int) int {
	if n <= 0 {
		return MaxVariations
	}
	if n > MaxVariations {
		return MaxVariations
	}
	return n
}

// GenerationRequest is a fully-specified generation request built by
// the prompt constructor. Constructing it twice from the same inputs
// yields an identical value.
type GenerationRequest struct {
	// Subject is the cleaned user intent ("a sunset over mountains").
	Subject string
	// Prompt is the full structured prompt sent to image providers,
	// including orientation, variation count and the style-and-lighting
	// directive.
	Prompt string
	// PriorPrompt references the prompt being modified on refinements.
	PriorPrompt string

	Orientation Orientation
	Count       int
	Style       string
	Segment     Segment

	// TextOnly requests route to the single text provider instead of
	// the image chain.
	TextOnly bool
}

// ProviderNone labels a result produced after the whole provider chain
// was exhausted and the local placeholder generator stepped in.
const ProviderNone = "none"

// GenerationResult is what the provider gateway hands back. URLs may be
// fewer than requested; Descriptions is either empty or parallel to URLs.
type GenerationResult struct {
	URLs         []string
	Descriptions []string
	// Provider is the label of the backend that produced the images,
	// or ProviderNone when the chain fell through to the placeholder.
	Provider string
	// Text carries the completion for text-only requests.
	Text string
}

// Placeholder reports whether the result came from the bottom-of-chain
// placeholder generator.
func (r GenerationResult) Placeholder() bool {
	return r.Provider == ProviderNone
}
