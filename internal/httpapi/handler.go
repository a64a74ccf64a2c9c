// Package httpapi exposes the orchestration pipeline over HTTP. The
// handlers validate and translate; all behavior lives below them.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/deckoviz/vizzy/internal/compose"
	"github.com/deckoviz/vizzy/internal/httputil"
	"github.com/deckoviz/vizzy/internal/orchestrator"
	"github.com/deckoviz/vizzy/internal/provider"
	"github.com/deckoviz/vizzy/internal/ratelimit"
	"github.com/deckoviz/vizzy/internal/session"
	"github.com/deckoviz/vizzy/internal/telemetry"
	"github.com/deckoviz/vizzy/internal/types"
	"github.com/deckoviz/vizzy/internal/upload"
)

const maxUploadBytes = 10 << 20

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerRetryAfter         = "Retry-After"
)

// RequestLimiter is the slice of the rate limiter the handlers use;
// satisfied by ratelimit.Limiter.
type RequestLimiter interface {
	Check(ctx context.Context, key string, limit int64, window time.Duration) (ratelimit.LimitResult, error)
}

// Handler serves the public API.
type Handler struct {
	orch     *orchestrator.Orchestrator
	sessions *session.Store
	uploads  *upload.Store
	limiter  RequestLimiter
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// requestsPerMinute caps /chat and /refine per session; 0 disables
	// the limiter.
	requestsPerMinute int
}

func NewHandler(orch *orchestrator.Orchestrator, sessions *session.Store, uploads *upload.Store, limiter RequestLimiter, requestsPerMinute int, metrics *telemetry.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orch:              orch,
		sessions:          sessions,
		uploads:           uploads,
		limiter:           limiter,
		metrics:           metrics,
		logger:            logger,
		requestsPerMinute: requestsPerMinute,
	}
}

// Routes builds the router for the public surface. /metrics and the
// static /uploads/ file server are mounted by main.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	r.Post("/chat", h.Chat)
	r.Post("/refine", h.Refine)
	r.Post("/upload", h.Upload)
	r.Post("/video", h.Video)
	r.Get("/session/{id}", h.Session)
	return r
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "vizzy",
		"endpoints": []string{
			"POST /chat", "POST /refine", "POST /upload", "POST /video",
			"GET /session/{id}", "GET /healthz", "GET /metrics",
		},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Chat handles one conversational turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reqID := RequestID(r.Context())

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "invalid JSON body")
		return
	}
	if req.Message == "" {
		httputil.WriteBadRequestError(w, reqID, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = types.ModeChat
	}

	if !h.allowSession(r, w, reqID, req.SessionID) {
		return
	}

	reply, err := h.orch.HandleMessage(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, reqID, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDuration("/chat", float64(time.Since(started).Milliseconds()))
	}
	writeJSON(w, http.StatusOK, reply)
}

// Refine handles an explicit refinement of the session's last
// generation.
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reqID := RequestID(r.Context())

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		httputil.WriteBadRequestError(w, reqID, "session_id is required")
		return
	}
	if req.Message == "" && req.Refinement == "" {
		httputil.WriteBadRequestError(w, reqID, "message or refinement is required")
		return
	}

	if !h.allowSession(r, w, reqID, req.SessionID) {
		return
	}

	reply, err := h.orch.HandleRefine(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, reqID, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDuration("/refine", float64(time.Since(started).Milliseconds()))
	}
	writeJSON(w, http.StatusOK, reply)
}

// Upload accepts one image and returns where it was stored, along with
// the transform options the client can offer.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequestError(w, reqID, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "file field is required")
		return
	}
	defer file.Close()

	url, err := h.uploads.Save(file, header.Filename)
	if err != nil {
		h.logger.Error("upload failed", "error", err, "request_id", reqID)
		httputil.WriteInternalError(w, reqID, "could not store upload")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUpload()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"image_url":         url,
		"filename":          header.Filename,
		"analysis":          "Got it. I can restyle this image, extend it, or use it as a reference for new generations.",
		"transform_options": []string{
			"restyle as watercolor",
			"restyle as cyberpunk",
			"extend the background",
			"generate variations of this image",
		},
	})
}

type videoRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	UserType  string `json:"user_type"`
}

// Video drafts a video concept for enterprise users. Everyone else
// gets a pointer at the enterprise tier instead of an error.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())

	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		httputil.WriteBadRequestError(w, reqID, "prompt is required")
		return
	}

	if types.Segment(req.UserType) != types.SegmentEnterprise {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "available_in_enterprise",
			"message": "Video generation is part of the enterprise tier.",
		})
		return
	}

	concept, err := h.orch.VideoConcept(r.Context(), req.Prompt)
	if err != nil {
		h.writeDomainError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "concept_ready",
		"concept": concept,
	})
}

// Session returns the full state of one session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	id := chi.URLParam(r, "id")

	view, ok := h.sessions.Snapshot(id)
	if !ok {
		httputil.WriteNotFoundError(w, reqID, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// allowSession runs the per-session rate limiter. It fails open when
// Redis is absent, so a missing limiter never blocks traffic. Rejected
// requests carry the standard rate-limit headers so clients can back
// off sensibly.
func (h *Handler) allowSession(r *http.Request, w http.ResponseWriter, reqID, sessionID string) bool {
	if h.limiter == nil || h.requestsPerMinute <= 0 {
		return true
	}
	result, err := h.limiter.Check(r.Context(), "session:"+sessionID, int64(h.requestsPerMinute), time.Minute)
	if err != nil || result.Allowed {
		return true
	}
	w.Header().Set(headerRateLimitLimit, strconv.Itoa(h.requestsPerMinute))
	w.Header().Set(headerRateLimitRemaining, strconv.FormatInt(result.Remaining, 10))
	w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))
	if result.RetryAfter > 0 {
		w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
	httputil.WriteRateLimitError(w, reqID, "too many requests for this session, slow down")
	return false
}

func (h *Handler) writeDomainError(w http.ResponseWriter, reqID string, err error) {
	var qe *session.QuotaExceededError
	switch {
	case errors.Is(err, compose.ErrNoPriorGeneration):
		httputil.WriteNoPriorGenerationError(w, reqID, "nothing to refine yet: generate an image first")
	case errors.As(err, &qe):
		httputil.WriteQuotaExceededError(w, reqID, "daily image limit reached, try again tomorrow", qe.Current, qe.Limit)
	case errors.Is(err, provider.ErrTextGeneration):
		h.logger.Error("text generation failed", "error", err, "request_id", reqID)
		httputil.WriteGenerationError(w, reqID, "text generation is unavailable right now")
	default:
		h.logger.Error("request failed", "error", err, "request_id", reqID)
		httputil.WriteInternalError(w, reqID, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
