// Package compose expands a classified message into a fully-specified
// generation request: variation count, orientation, style descriptor
// and the structured prompt. Construction is pure: the same inputs
// always yield the same request.
package compose

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/deckoviz/vizzy/internal/types"
)

// ErrNoPriorGeneration marks a refinement arriving in a session whose
// generation log is empty. Refinement without context is meaningless,
// so this surfaces to the caller instead of degrading to a fresh
// generation.
var ErrNoPriorGeneration = errors.New("refinement requires a prior generation in this session")

// styleDirective is appended to every visual prompt so downstream
// descriptions carry palette and lighting guidance.
const styleDirective = "Keep descriptions focused on style, lighting, color palette, and mood."

var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btry\s+(\d+)\s+more\s+options?\b`),
	regexp.MustCompile(`(?i)\b(\d+|one|two|three|four)\s+(?:options?|variations?|versions?|images?)\b`),
	regexp.MustCompile(`(?i)\b(?:just|only)\s+(one|two|three|four|\d+)\b`),
	regexp.MustCompile(`(?i)\ba\s+single\b`),
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4,
}

// styleLexicon is the small set of style descriptors recognized in
// free text. The first match wins; matching is order-stable so
// construction stays deterministic.
var styleLexicon = []string{
	"watercolor", "oil painting", "minimalist", "minimal", "cyberpunk",
	"vintage", "abstract", "photorealistic", "renaissance", "impressionist",
	"sketch", "pastel", "noir",
}

// Construct builds the generation request for one classified message.
// prior is the session's most recent generation record, nil when the
// log is empty; it is only consulted for refinements. requestedCount
// is the caller-supplied image count, 0 when unset.
func Construct(ci types.ClassifiedIntent, text string, requestedCount int, prior *types.GenerationRecord) (types.GenerationRequest, error) {
	switch ci.Category {
	case types.IntentPromptGeneration, types.IntentCommentary:
		return types.GenerationRequest{
			Subject:  strings.TrimSpace(text),
			Prompt:   strings.TrimSpace(text),
			Segment:  ci.Segment,
			TextOnly: true,
		}, nil
	case types.IntentRefinement:
		if prior == nil {
			return types.GenerationRequest{}, ErrNoPriorGeneration
		}
		subject := fmt.Sprintf("%s. %s", prior.Prompt, strings.TrimSpace(text))
		req := buildVisual(ci, subject, text, requestedCount)
		req.PriorPrompt = prior.Prompt
		if req.Style == "" {
			req.Style = prior.Style
		}
		return req, nil
	default:
		subject := strings.TrimSpace(ci.Prompt)
		if subject == "" {
			subject = strings.TrimSpace(text)
		}
		return buildVisual(ci, subject, text, requestedCount), nil
	}
}

func buildVisual(ci types.ClassifiedIntent, subject, rawText string, requestedCount int) types.GenerationRequest {
	count := explicitCount(rawText)
	if count == 0 {
		count = requestedCount
	}
	count = types.ClampCount(count)

	orientation := detectOrientation(rawText)
	style := detectStyle(rawText)

	return types.GenerationRequest{
		Subject:     subject,
		Prompt:      buildPrompt(subject, count, orientation),
		Orientation: orientation,
		Count:       count,
		Style:       style,
		Segment:     ci.Segment,
	}
}

func buildPrompt(subject string, count int, orientation types.Orientation) string {
	return fmt.Sprintf("%s\n\nGenerate %d variations in %s orientation. %s",
		subject, count, orientation.Phrase(), styleDirective)
}

// WithCount rebinds a visual request to a new variation count and
// regenerates the structured prompt so the directive agrees with it.
// Used when a quota reservation grants fewer images than requested.
func WithCount(req types.GenerationRequest, count int) types.GenerationRequest {
	count = types.ClampCount(count)
	if req.TextOnly || count == req.Count {
		return req
	}
	req.Count = count
	req.Prompt = buildPrompt(req.Subject, count, req.Orientation)
	return req
}

// explicitCount scans the raw text for a recognized numeric request.
// Returns 0 when none is present.
func explicitCount(text string) int {
	for _, re := range countPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) == 1 {
			// "a single" carries no capture group.
			return 1
		}
		token := strings.ToLower(m[1])
		if n, ok := wordNumbers[token]; ok {
			return n
		}
		if n, err := strconv.Atoi(token); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// detectOrientation looks for aspect cues in the raw text. Portrait
// cues are checked before landscape; square is the default.
func detectOrientation(text string) types.Orientation {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "portrait") || strings.Contains(lower, "tall"):
		return types.OrientationPortrait
	case strings.Contains(lower, "landscape") || strings.Contains(lower, "wide"):
		return types.OrientationLandscape
	default:
		return types.OrientationSquare
	}
}

func detectStyle(text string) string {
	lower := strings.ToLower(text)
	for _, style := range styleLexicon {
		if strings.Contains(lower, style) {
			return style
		}
	}
	return ""
}
