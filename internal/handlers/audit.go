package handlers

import (
	"net/http"
	"strconv"

	"modguard/internal/moderation"

	"github.com/rs/zerolog/log"
)

const defaultAuditLimit = 50
const maxAuditLimit = 500

// HandleAuditLog handles GET /moderation/audit. Admin-only.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == "" {
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationError, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := h.store.ListAuditLog(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list audit log")
		writeError(w, http.StatusInternalServerError, CodeInternal, "")
		return
	}

	if entries == nil {
		entries = []moderation.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
