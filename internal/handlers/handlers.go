// Package handlers implements the HTTP surface: report submission and
// review, admin decisions, and the public policy health summary.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"modguard/internal/moderation"
	"modguard/internal/ratelimit"

	"github.com/rs/zerolog/log"
)

// Wire error codes returned in the "error" field of failure responses.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeModerationBlocked = "MODERATION_BLOCKED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeReportClosed      = "REPORT_CLOSED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Config holds handler configuration options
type Config struct {
	// ReportsEnabled gates the /reports endpoints. When false they
	// respond 404 as if unrouted.
	ReportsEnabled bool
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	service *moderation.Service
	store   moderation.Store
	limiter *ratelimit.Limiter
	config  Config
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(service *moderation.Service, store moderation.Store, limiter *ratelimit.Limiter, config Config) *Handler {
	return &Handler{
		service: service,
		store:   store,
		limiter: limiter,
		config:  config,
	}
}

// errorResponse is the uniform failure body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON encodes and writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a failure response with a wire error code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeServiceError maps service-layer errors onto the wire taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *moderation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, CodeValidationError, verr.Reason)
	case errors.Is(err, moderation.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, "admin privileges required")
	case errors.Is(err, moderation.ErrReportNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "report not found")
	case errors.Is(err, moderation.ErrReportClosed):
		writeError(w, http.StatusConflict, CodeReportClosed, "report is already closed")
	case errors.Is(err, moderation.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, CodeRateLimited, "")
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
	}
}

// requireAdmin checks that the request identity is a configured admin.
// It writes the failure response and returns the empty string when the
// check fails.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) string {
	userID := requireUser(w, r)
	if userID == "" {
		return ""
	}
	if !h.service.Engine().Rules().IsAdmin(userID) {
		writeError(w, http.StatusForbidden, CodeForbidden, "admin privileges required")
		return ""
	}
	return userID
}
