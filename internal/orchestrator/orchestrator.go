// Package orchestrator runs the message pipeline: classify the intent,
// construct the generation request, enforce the daily quota, drive the
// provider chain and assemble the reply. Handlers stay thin; every
// behavioral decision lives here or further down.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deckoviz/vizzy/internal/compose"
	"github.com/deckoviz/vizzy/internal/format"
	"github.com/deckoviz/vizzy/internal/intent"
	"github.com/deckoviz/vizzy/internal/prompts"
	"github.com/deckoviz/vizzy/internal/provider"
	"github.com/deckoviz/vizzy/internal/session"
	"github.com/deckoviz/vizzy/internal/telemetry"
	"github.com/deckoviz/vizzy/internal/types"
)

const (
	// historyWindow bounds the history echoed back in replies.
	historyWindow = 20
	// generationsWindow bounds the generation log echoed back.
	generationsWindow = 10

	captionMaxTokens = 150
	textMaxTokens    = 800
)

// Orchestrator wires the pipeline stages together. The text provider
// may be nil; conversational replies then degrade to a canned line and
// classification falls back to heuristics.
type Orchestrator struct {
	sessions *session.Store
	intents  *intent.Router
	images   *provider.Chain
	text     provider.TextProvider
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	llmModel string
}

func New(sessions *session.Store, intents *intent.Router, images *provider.Chain, text provider.TextProvider, llmModel string, metrics *telemetry.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if llmModel == "" {
		llmModel = types.ProviderNone
	}
	return &Orchestrator{
		sessions: sessions,
		intents:  intents,
		images:   images,
		text:     text,
		metrics:  metrics,
		logger:   logger,
		llmModel: llmModel,
	}
}

// HandleMessage processes one chat turn. The caller has already
// resolved the session id (minting one for new conversations).
func (o *Orchestrator) HandleMessage(ctx context.Context, req types.ChatRequest) (types.Reply, error) {
	_, created := o.sessions.GetOrCreate(req.SessionID)
	history := o.sessions.History(req.SessionID, historyWindow)

	ci := o.intents.Classify(ctx, req.Message, req.Mode, history)

	var prior *types.GenerationRecord
	if last, ok := o.sessions.LastGeneration(req.SessionID); ok {
		prior = &last
	}

	genReq, err := compose.Construct(ci, req.Message, req.NumImages, prior)
	if err != nil {
		// The session stays unmutated: a refinement with nothing to
		// refine records no turns and burns no quota.
		return types.Reply{}, err
	}

	return o.run(ctx, req.SessionID, req.Message, ci, genReq, created)
}

// HandleRefine processes an explicit refinement. Unlike HandleMessage
// it never creates a session: refining an unknown or generation-free
// session is an error by definition.
func (o *Orchestrator) HandleRefine(ctx context.Context, req types.ChatRequest) (types.Reply, error) {
	prior, ok := o.sessions.LastGeneration(req.SessionID)
	if !ok {
		return types.Reply{}, compose.ErrNoPriorGeneration
	}

	text := strings.TrimSpace(req.Message)
	if ref := strings.TrimSpace(req.Refinement); ref != "" {
		if text == "" {
			text = ref
		} else {
			text = text + ". " + ref
		}
	}

	ci := types.ClassifiedIntent{
		Category: types.IntentRefinement,
		Segment:  prior.Segment,
		Prompt:   text,
	}
	genReq, err := compose.Construct(ci, text, req.NumImages, &prior)
	if err != nil {
		return types.Reply{}, err
	}

	return o.run(ctx, req.SessionID, text, ci, genReq, false)
}

// VideoConcept drafts a storyboard concept for an enterprise video
// request. Video rendering itself is not wired up; this produces the
// planning text the client presents while rendering is queued.
func (o *Orchestrator) VideoConcept(ctx context.Context, prompt string) (string, error) {
	if o.text == nil {
		return "", fmt.Errorf("%w: no text provider configured", provider.ErrTextGeneration)
	}
	system := prompts.Enterprise
	user := fmt.Sprintf("Draft a short video concept for: %s\nDescribe 3-5 scenes, the pacing, and the overall mood.", prompt)
	return o.text.Complete(ctx, system, []provider.Message{{Role: "user", Content: user}}, provider.CompleteOptions{
		MaxTokens:   textMaxTokens,
		Temperature: 0.8,
	})
}

// run executes the shared tail of the pipeline once intent and request
// are fixed.
func (o *Orchestrator) run(ctx context.Context, sessionID, message string, ci types.ClassifiedIntent, genReq types.GenerationRequest, created bool) (types.Reply, error) {
	now := time.Now().UTC()

	var (
		result   types.GenerationResult
		rec      *types.GenerationRecord
		copyText string
	)

	if genReq.TextOnly {
		text, err := o.completeText(ctx, ci, message, o.sessions.History(sessionID, historyWindow))
		if err != nil {
			return types.Reply{}, err
		}
		copyText = text
	} else {
		allowed, _, _, err := o.sessions.ReserveQuota(sessionID, genReq.Count, ci.Segment)
		if err != nil {
			if o.metrics != nil {
				o.metrics.RecordQuotaRejection(string(ci.Segment))
			}
			return types.Reply{}, err
		}
		// A clamped grant also rewrites the prompt so the variation
		// directive matches what the provider is asked for.
		genReq = compose.WithCount(genReq, allowed)

		result = o.images.Generate(ctx, genReq)

		// Placeholders never count against the quota, and neither do
		// images the winning provider failed to deliver.
		delivered := len(result.URLs)
		if result.Placeholder() {
			delivered = 0
		}
		if unused := allowed - delivered; unused > 0 {
			o.sessions.ReleaseQuota(sessionID, unused)
		}

		copyText = o.caption(ctx, ci, genReq)
		rec = &types.GenerationRecord{
			Timestamp: now,
			Intent:    ci.Category,
			Prompt:    genReq.Subject,
			Style:     genReq.Style,
			Images:    result.URLs,
			Segment:   ci.Segment,
		}
		if o.metrics != nil {
			o.metrics.RecordImages(result.Provider, len(result.URLs))
		}
	}

	userTurn := types.Turn{Role: types.RoleUser, Content: message, Timestamp: now}
	assistantTurn := types.Turn{Role: types.RoleAssistant, Content: copyText, Images: result.URLs, Timestamp: now}
	o.sessions.AppendExchange(sessionID, userTurn, assistantTurn, rec)

	if o.metrics != nil {
		o.metrics.RecordChat(string(ci.Category), string(ci.Segment))
	}

	view, _ := o.sessions.Snapshot(sessionID)
	current, limit := o.sessions.Quota(sessionID, ci.Segment)

	return format.Format(format.Input{
		SessionID:   sessionID,
		Intent:      ci,
		Request:     genReq,
		Result:      result,
		Copy:        copyText,
		NewSession:  created,
		History:     tailTurns(view.Turns, historyWindow),
		Generations: tailGenerations(view.Generations, generationsWindow),
		LLMModel:    o.llmModel,
		QuotaCount:  current,
		QuotaLimit:  limit,
	}), nil
}

// completeText serves the two text-only intents through the single
// text provider. Conversation history rides along so the model keeps
// context; failures surface as ErrTextGeneration.
func (o *Orchestrator) completeText(ctx context.Context, ci types.ClassifiedIntent, message string, history []types.Turn) (string, error) {
	if o.text == nil {
		return prompts.FallbackChatReply, nil
	}

	system := prompts.Chat
	if ci.Category == types.IntentPromptGeneration {
		system = prompts.SystemFor(ci.Segment)
	}

	msgs := append(toMessages(history), provider.Message{Role: "user", Content: message})
	return o.text.Complete(ctx, system, msgs, provider.CompleteOptions{
		MaxTokens:   textMaxTokens,
		Temperature: 0.7,
	})
}

// caption asks the text provider for a short line presenting the
// generated images. Best effort: any failure degrades to the canned
// caption, never to a failed request.
func (o *Orchestrator) caption(ctx context.Context, ci types.ClassifiedIntent, genReq types.GenerationRequest) string {
	if o.text == nil {
		return prompts.FallbackCaption
	}
	user := fmt.Sprintf("Write one short, warm sentence presenting images of: %s. No preamble, no quotes.", genReq.Subject)
	text, err := o.text.Complete(ctx, prompts.SystemFor(ci.Segment), []provider.Message{{Role: "user", Content: user}}, provider.CompleteOptions{
		MaxTokens:   captionMaxTokens,
		Temperature: 0.8,
	})
	if err != nil {
		o.logger.Warn("caption generation degraded to fallback", "error", err)
		return prompts.FallbackCaption
	}
	return text
}

func toMessages(turns []types.Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, provider.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

func tailTurns(turns []types.Turn, n int) []types.Turn {
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func tailGenerations(recs []types.GenerationRecord, n int) []types.GenerationRecord {
	if len(recs) > n {
		return recs[len(recs)-n:]
	}
	return recs
}

// TextGenerationFailed reports whether err is a text-provider failure,
// for HTTP status mapping.
func TextGenerationFailed(err error) bool {
	return errors.Is(err, provider.ErrTextGeneration)
}
