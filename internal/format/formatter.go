// Package format assembles the final reply from the pipeline's
// outputs. It performs no I/O: everything it needs arrives in the
// Input, including the already-generated caption or text.
package format

import (
	"fmt"

	"github.com/deckoviz/vizzy/internal/prompts"
	"github.com/deckoviz/vizzy/internal/types"
)

// placeholderNote is appended to the caption when generation fell back
// to local placeholders, so the UI never presents them as real output.
const placeholderNote = "Image providers are unavailable right now, so these are placeholder previews. Try again in a bit."

// suggestion sets rotate per style so consecutive generations nudge
// different refinements. Fixed text, not model-generated: suggestions
// must not add latency or cost.
var suggestionsByStyle = map[string][]string{
	"watercolor": {
		"Try 'add soft morning mist' for a dreamier wash.",
		"Try 'deepen the blues' to anchor the palette.",
		"Try 'looser brush strokes' for a freer feel.",
	},
	"minimalist": {
		"Try 'reduce to two colors' for a bolder statement.",
		"Try 'add one accent shape' to guide the eye.",
		"Try 'more negative space' to let it breathe.",
	},
	"cyberpunk": {
		"Try 'more neon reflections' to push the glow.",
		"Try 'add rain-slick streets' for atmosphere.",
		"Try 'tighter crop on the skyline' for drama.",
	},
	"vintage": {
		"Try 'add film grain' to age it further.",
		"Try 'warmer sepia tones' for nostalgia.",
		"Try 'faded edges' for a printed look.",
	},
}

// defaultSuggestions covers prompts with no recognized style.
var defaultSuggestions = []string{
	"Try 'make it warmer' to shift the mood.",
	"Try 'less dramatic' for a calmer take.",
	"Try 'more minimal' to simplify the composition.",
	"Try 'change orientation to landscape' for a wider view.",
	"Try 'keep composition, adjust colors' to iterate safely.",
}

// Input carries everything the formatter needs for one reply.
type Input struct {
	SessionID string
	Intent    types.ClassifiedIntent
	Request   types.GenerationRequest
	Result    types.GenerationResult

	// Copy is the caption (visual intents) or generated text
	// (text-only intents), produced upstream.
	Copy string

	// NewSession prefixes the startup greeting.
	NewSession bool

	History     []types.Turn
	Generations []types.GenerationRecord

	LLMModel   string
	QuotaCount int
	QuotaLimit *int
}

// Format assembles the reply.
func Format(in Input) types.Reply {
	copyText := in.Copy
	if in.Intent.Category.Visual() && in.Result.Placeholder() {
		copyText = fmt.Sprintf("%s\n\n%s", copyText, placeholderNote)
	}
	if in.NewSession {
		copyText = prompts.GreetingFor(in.Intent.Segment) + "\n\n" + copyText
	}

	reply := types.Reply{
		SessionID:           in.SessionID,
		Copy:                copyText,
		Images:              in.Result.URLs,
		ImageDescriptions:   in.Result.Descriptions,
		IntentCategory:      in.Intent.Category,
		UserType:            in.Intent.Segment,
		LLMModel:            in.LLMModel,
		ImageModel:          in.Result.Provider,
		ConversationHistory: in.History,
		RecentGenerations:   in.Generations,
		DailyImageCount:     in.QuotaCount,
		DailyImageLimit:     in.QuotaLimit,
	}
	if reply.Images == nil {
		reply.Images = []string{}
	}
	if reply.ImageDescriptions == nil {
		reply.ImageDescriptions = []string{}
	}
	if reply.ImageModel == "" {
		reply.ImageModel = types.ProviderNone
	}

	// A refinement nudge follows every visual generation that produced
	// real images.
	if in.Intent.Category.Visual() && len(in.Result.URLs) > 0 && !in.Result.Placeholder() {
		reply.RefinementSuggestion = SuggestionFor(in.Request.Style, len(in.Generations))
	}
	return reply
}

// SuggestionFor picks from the fixed rotating set for a style. seq is
// the session's generation sequence number, so consecutive generations
// rotate through the set deterministically.
func SuggestionFor(style string, seq int) string {
	set, ok := suggestionsByStyle[style]
	if !ok {
		set = defaultSuggestions
	}
	if seq < 0 {
		seq = 0
	}
	return set[seq%len(set)]
}
