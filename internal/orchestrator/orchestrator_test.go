package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deckoviz/vizzy/internal/compose"
	"github.com/deckoviz/vizzy/internal/intent"
	"github.com/deckoviz/vizzy/internal/provider"
	"github.com/deckoviz/vizzy/internal/session"
	"github.com/deckoviz/vizzy/internal/telemetry"
	"github.com/deckoviz/vizzy/internal/types"
)

// stubClassifier returns a fixed classification.
type stubClassifier struct {
	ci  types.ClassifiedIntent
	err error
}

func (s *stubClassifier) Classify(_ context.Context, text string, _ []types.Turn) (types.ClassifiedIntent, error) {
	if s.err != nil {
		return types.ClassifiedIntent{}, s.err
	}
	ci := s.ci
	if ci.Prompt == "" {
		ci.Prompt = text
	}
	return ci, nil
}

// fakeImages is a scripted image provider that counts calls and keeps
// the last request it saw.
type fakeImages struct {
	name    string
	urls    []string
	err     error
	calls   int
	lastReq types.GenerationRequest
}

func (f *fakeImages) Name() string { return f.name }

func (f *fakeImages) Generate(_ context.Context, req types.GenerationRequest) ([]string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	urls := f.urls
	if urls == nil {
		for i := 0; i < req.Count; i++ {
			urls = append(urls, fmt.Sprintf("https://cdn.example/%s/%d.png", f.name, i))
		}
	}
	return urls, nil
}

// fakeText answers every completion with a canned string.
type fakeText struct {
	reply string
	err   error
	calls int
}

func (f *fakeText) Name() string { return "fake-llm" }

func (f *fakeText) Complete(_ context.Context, _ string, _ []provider.Message, _ provider.CompleteOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fixture struct {
	orch     *Orchestrator
	sessions *session.Store
	images   *fakeImages
	text     *fakeText
}

func newFixture(t *testing.T, homeLimit int, cls intent.Classifier) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewStore(64, time.Hour, homeLimit, 0)
	images := &fakeImages{name: "runware"}
	chain := provider.NewChain([]provider.Ranked{{Provider: images}}, time.Second, 5*time.Second, logger)
	text := &fakeText{reply: "Here you go."}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	orch := New(sessions, intent.NewRouter(cls, logger), chain, text, "openrouter/auto", metrics, logger)
	return &fixture{orch: orch, sessions: sessions, images: images, text: text}
}

func visualClassifier(seg types.Segment) intent.Classifier {
	return &stubClassifier{ci: types.ClassifiedIntent{Category: types.IntentVisualGeneration, Segment: seg}}
}

func TestHandleMessage_VisualGeneration(t *testing.T) {
	f := newFixture(t, 5, visualClassifier(types.SegmentHome))

	reply, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1",
		Message:   "a sunset over the mountains",
		Mode:      types.ModeImage,
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(reply.Images) != types.MaxVariations {
		t.Errorf("expected %d images, got %d", types.MaxVariations, len(reply.Images))
	}
	if reply.ImageModel != "runware" {
		t.Errorf("expected runware, got %q", reply.ImageModel)
	}
	if reply.IntentCategory != types.IntentVisualGeneration {
		t.Errorf("unexpected intent %q", reply.IntentCategory)
	}
	if reply.RefinementSuggestion == "" {
		t.Error("expected a refinement suggestion after a real generation")
	}
	if reply.DailyImageCount != 4 {
		t.Errorf("expected daily count 4, got %d", reply.DailyImageCount)
	}
	if reply.DailyImageLimit == nil || *reply.DailyImageLimit != 5 {
		t.Errorf("expected limit 5, got %v", reply.DailyImageLimit)
	}
	if !strings.HasPrefix(reply.Copy, "Hey") {
		t.Errorf("expected startup greeting prefix on a fresh session, got %q", reply.Copy)
	}
	if len(reply.ConversationHistory) != 2 {
		t.Errorf("expected 2 turns recorded, got %d", len(reply.ConversationHistory))
	}
	if len(reply.RecentGenerations) != 1 {
		t.Errorf("expected 1 generation record, got %d", len(reply.RecentGenerations))
	}
	if reply.LLMModel != "openrouter/auto" {
		t.Errorf("unexpected llm model %q", reply.LLMModel)
	}
}

func TestHandleMessage_QuotaRejectedBeforeProviderCall(t *testing.T) {
	f := newFixture(t, 4, visualClassifier(types.SegmentHome))

	if _, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a fox", Mode: types.ModeImage,
	}); err != nil {
		t.Fatalf("first generation: %v", err)
	}
	callsAfterFirst := f.images.calls

	_, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "another fox", Mode: types.ModeImage,
	})
	var qe *session.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Current != 4 || qe.Limit != 4 {
		t.Errorf("expected counts 4/4, got %d/%d", qe.Current, qe.Limit)
	}
	if f.images.calls != callsAfterFirst {
		t.Error("provider must not be called for an over-quota request")
	}
	// Rejection leaves no trace in history.
	if h := f.sessions.History("s1", 0); len(h) != 2 {
		t.Errorf("expected history unchanged at 2 turns, got %d", len(h))
	}
}

func TestHandleMessage_QuotaClampsCount(t *testing.T) {
	f := newFixture(t, 6, visualClassifier(types.SegmentHome))

	if _, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a fox", Mode: types.ModeImage,
	}); err != nil {
		t.Fatalf("first generation: %v", err)
	}

	// 2 remain of 6; a request for 4 gets clamped, not rejected.
	reply, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "another fox", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("second generation: %v", err)
	}
	if len(reply.Images) != 2 {
		t.Errorf("expected 2 clamped images, got %d", len(reply.Images))
	}
	if reply.DailyImageCount != 6 {
		t.Errorf("expected counter 6, got %d", reply.DailyImageCount)
	}
	// The clamp also rewrites the prompt directive, so the provider is
	// never asked for more variations than the prompt describes.
	if f.images.lastReq.Count != 2 {
		t.Errorf("expected provider request for 2 images, got %d", f.images.lastReq.Count)
	}
	if !strings.Contains(f.images.lastReq.Prompt, "Generate 2 variations") {
		t.Errorf("prompt directive must match the clamped count, got %q", f.images.lastReq.Prompt)
	}
}

func TestHandleMessage_PlaceholderDoesNotBurnQuota(t *testing.T) {
	f := newFixture(t, 5, visualClassifier(types.SegmentHome))
	f.images.err = errors.New("provider down")

	reply, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a fox", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply.ImageModel != types.ProviderNone {
		t.Errorf("expected placeholder label %q, got %q", types.ProviderNone, reply.ImageModel)
	}
	if len(reply.Images) != types.MaxVariations {
		t.Errorf("expected %d placeholder images, got %d", types.MaxVariations, len(reply.Images))
	}
	if reply.RefinementSuggestion != "" {
		t.Errorf("placeholders must not carry a refinement suggestion, got %q", reply.RefinementSuggestion)
	}
	if reply.DailyImageCount != 0 {
		t.Errorf("placeholder generation must not consume quota, got count %d", reply.DailyImageCount)
	}
	if !strings.Contains(reply.Copy, "placeholder") {
		t.Errorf("expected placeholder note in copy, got %q", reply.Copy)
	}
}

func TestHandleMessage_TextOnlyIntent(t *testing.T) {
	cls := &stubClassifier{ci: types.ClassifiedIntent{Category: types.IntentPromptGeneration, Segment: types.SegmentHome}}
	f := newFixture(t, 5, cls)
	f.text.reply = "Try: a lone lighthouse at dusk, volumetric fog, 35mm."

	reply, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "give me a prompt about lighthouses", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(reply.Images) != 0 {
		t.Errorf("text-only intent must not return images, got %d", len(reply.Images))
	}
	if reply.ImageModel != types.ProviderNone {
		t.Errorf("expected image model %q, got %q", types.ProviderNone, reply.ImageModel)
	}
	if !strings.Contains(reply.Copy, "lighthouse at dusk") {
		t.Errorf("expected generated prompt in copy, got %q", reply.Copy)
	}
	if f.images.calls != 0 {
		t.Error("image chain must not run for text-only intents")
	}
	if reply.DailyImageCount != 0 {
		t.Errorf("text-only turn must not consume quota, got %d", reply.DailyImageCount)
	}
}

func TestHandleMessage_TextProviderFailureSurfaces(t *testing.T) {
	cls := &stubClassifier{ci: types.ClassifiedIntent{Category: types.IntentCommentary, Segment: types.SegmentHome}}
	f := newFixture(t, 5, cls)
	f.text.err = fmt.Errorf("%w: upstream 500", provider.ErrTextGeneration)

	_, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "what styles suit posters?", Mode: types.ModeImage,
	})
	if !TextGenerationFailed(err) {
		t.Fatalf("expected text generation failure, got %v", err)
	}
	if h := f.sessions.History("s1", 0); len(h) != 0 {
		t.Errorf("failed turn must not be recorded, got %d turns", len(h))
	}
}

func TestHandleMessage_RefinementIntentWithoutPrior(t *testing.T) {
	cls := &stubClassifier{ci: types.ClassifiedIntent{Category: types.IntentRefinement, Segment: types.SegmentHome}}
	f := newFixture(t, 5, cls)

	_, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "make it moodier", Mode: types.ModeImage,
	})
	if !errors.Is(err, compose.ErrNoPriorGeneration) {
		t.Fatalf("expected ErrNoPriorGeneration, got %v", err)
	}
	if h := f.sessions.History("s1", 0); len(h) != 0 {
		t.Errorf("rejected refinement must not mutate the session, got %d turns", len(h))
	}
}

func TestHandleRefine_BuildsOnPriorGeneration(t *testing.T) {
	f := newFixture(t, 100, visualClassifier(types.SegmentHome))

	if _, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a watercolor fox", Mode: types.ModeImage,
	}); err != nil {
		t.Fatalf("initial generation: %v", err)
	}

	reply, err := f.orch.HandleRefine(context.Background(), types.ChatRequest{
		SessionID:  "s1",
		Message:    "make it moodier",
		Refinement: "darker palette",
	})
	if err != nil {
		t.Fatalf("HandleRefine: %v", err)
	}
	if reply.IntentCategory != types.IntentRefinement {
		t.Errorf("expected refinement intent, got %q", reply.IntentCategory)
	}
	if len(reply.Images) == 0 {
		t.Error("expected refined images")
	}
	if len(reply.RecentGenerations) != 2 {
		t.Errorf("expected 2 generation records after refine, got %d", len(reply.RecentGenerations))
	}
	latest := reply.RecentGenerations[len(reply.RecentGenerations)-1]
	if !strings.Contains(latest.Prompt, "a watercolor fox") {
		t.Errorf("refined prompt must reference the prior subject, got %q", latest.Prompt)
	}
	if !strings.Contains(latest.Prompt, "make it moodier") {
		t.Errorf("refined prompt must carry the new instruction, got %q", latest.Prompt)
	}
	if latest.Style != "watercolor" {
		t.Errorf("refinement must inherit the prior style, got %q", latest.Style)
	}
}

func TestHandleRefine_UnknownSessionRejected(t *testing.T) {
	f := newFixture(t, 5, visualClassifier(types.SegmentHome))

	_, err := f.orch.HandleRefine(context.Background(), types.ChatRequest{
		SessionID: "never-seen", Message: "moodier",
	})
	if !errors.Is(err, compose.ErrNoPriorGeneration) {
		t.Fatalf("expected ErrNoPriorGeneration, got %v", err)
	}
	if f.sessions.Exists("never-seen") {
		t.Error("rejected refine must not create the session")
	}
}

func TestHandleMessage_GreetingOnlyOnFirstTurn(t *testing.T) {
	f := newFixture(t, 100, visualClassifier(types.SegmentHome))

	first, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a fox", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	second, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a badger", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !strings.HasPrefix(first.Copy, "Hey") {
		t.Errorf("expected greeting on first turn, got %q", first.Copy)
	}
	if strings.HasPrefix(second.Copy, "Hey") {
		t.Errorf("greeting must not repeat on later turns, got %q", second.Copy)
	}
}

func TestHandleMessage_CaptionFallbackOnTextFailure(t *testing.T) {
	f := newFixture(t, 5, visualClassifier(types.SegmentHome))
	f.text.err = fmt.Errorf("%w: timeout", provider.ErrTextGeneration)

	reply, err := f.orch.HandleMessage(context.Background(), types.ChatRequest{
		SessionID: "s1", Message: "a fox", Mode: types.ModeImage,
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	// Caption failure is best-effort, images still flow.
	if len(reply.Images) != types.MaxVariations {
		t.Errorf("expected %d images despite caption failure, got %d", types.MaxVariations, len(reply.Images))
	}
	if !strings.Contains(reply.Copy, "A beautiful creation") {
		t.Errorf("expected fallback caption, got %q", reply.Copy)
	}
}

func TestVideoConcept(t *testing.T) {
	f := newFixture(t, 5, visualClassifier(types.SegmentEnterprise))
	f.text.reply = "Scene 1: aerial dawn shot..."

	concept, err := f.orch.VideoConcept(context.Background(), "product launch teaser")
	if err != nil {
		t.Fatalf("VideoConcept: %v", err)
	}
	if !strings.Contains(concept, "Scene 1") {
		t.Errorf("unexpected concept %q", concept)
	}
}
