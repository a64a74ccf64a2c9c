package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope returned by every failing
// endpoint. Upstream provider errors are normalized into this shape;
// raw provider bodies and credentials never pass through.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`

	// Quota context, present on quota_exceeded so the client can
	// render the current state without another round trip.
	DailyImageCount *int `json:"daily_image_count,omitempty"`
	DailyImageLimit *int `json:"daily_image_limit,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	writeBody(w, requestID, statusCode, APIErrorBody{
		Message:   message,
		Type:      errType,
		Code:      code,
		RequestID: requestID,
	})
}

func writeBody(w http.ResponseWriter, requestID string, statusCode int, body APIErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{Error: body})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteNotFoundError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusNotFound, "not_found_error", "not_found", message)
}

// WriteNoPriorGenerationError rejects a refinement that arrived before
// any generation exists in the session.
func WriteNoPriorGenerationError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusNotFound, "refinement_error", "no_prior_generation", message)
}

// WriteQuotaExceededError rejects an over-quota generation, carrying
// the current counter and limit.
func WriteQuotaExceededError(w http.ResponseWriter, requestID, message string, current, limit int) {
	writeBody(w, requestID, http.StatusTooManyRequests, APIErrorBody{
		Message:         message,
		Type:            "quota_error",
		Code:            "quota_exceeded",
		RequestID:       requestID,
		DailyImageCount: &current,
		DailyImageLimit: &limit,
	})
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

// WriteGenerationError surfaces a text-generation failure; unlike the
// image chain there is no placeholder to fall back to.
func WriteGenerationError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadGateway, "generation_error", "generation_failed", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}
