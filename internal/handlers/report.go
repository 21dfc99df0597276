package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"modguard/internal/auth"
	"modguard/internal/middleware"
	"modguard/internal/moderation"

	"github.com/rs/zerolog/log"
)

// requireUser extracts the authenticated user id, writing a 401 when the
// request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	}
	return userID
}

// createReportRequest is the POST /reports body.
type createReportRequest struct {
	TargetType   string   `json:"targetType"`
	TargetID     string   `json:"targetId"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	EvidenceURLs []string `json:"evidenceUrls,omitempty"`
}

// HandleReportCreate handles POST /reports.
func (h *Handler) HandleReportCreate(w http.ResponseWriter, r *http.Request) {
	if !h.config.ReportsEnabled {
		writeError(w, http.StatusNotFound, CodeNotFound, "")
		return
	}

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	// The rate-limit gate runs before any body parsing; a denied request
	// still consumed quota.
	if !h.limiter.Allow(r.Context(), userID, middleware.GetClientIP(r)) {
		writeServiceError(w, moderation.ErrRateLimited)
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}

	report, err := h.service.SubmitReport(r.Context(), userID,
		moderation.TargetType(req.TargetType), req.TargetID, req.Category,
		req.Description, req.EvidenceURLs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// listReportsResponse is the GET /reports body.
type listReportsResponse struct {
	Items      []moderation.Report `json:"items"`
	Pagination pagination          `json:"pagination"`
}

type pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// HandleReportList handles GET /reports. Admin-only.
func (h *Handler) HandleReportList(w http.ResponseWriter, r *http.Request) {
	if !h.config.ReportsEnabled {
		writeError(w, http.StatusNotFound, CodeNotFound, "")
		return
	}
	if h.requireAdmin(w, r) == "" {
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, CodeValidationError, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	filter := moderation.ReportFilter{
		Status:     moderation.ReportStatus(q.Get("status")),
		Category:   q.Get("category"),
		TargetType: moderation.TargetType(q.Get("targetType")),
		Cursor:     q.Get("cursor"),
		Limit:      limit,
	}

	page, err := h.store.ListReports(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list reports")
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}

	if page.Items == nil {
		page.Items = []moderation.Report{}
	}
	writeJSON(w, http.StatusOK, listReportsResponse{
		Items: page.Items,
		Pagination: pagination{
			Limit:      page.Limit,
			HasMore:    page.HasMore,
			NextCursor: page.NextCursor,
		},
	})
}

// HandleReportGet handles GET /reports/{id}. Admin-only.
func (h *Handler) HandleReportGet(w http.ResponseWriter, r *http.Request) {
	if !h.config.ReportsEnabled {
		writeError(w, http.StatusNotFound, CodeNotFound, "")
		return
	}
	if h.requireAdmin(w, r) == "" {
		return
	}

	report, err := h.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
