package handlers

import (
	"encoding/json"
	"net/http"

	"modguard/internal/moderation"
)

// decisionRequest is the POST /moderation/decision body.
type decisionRequest struct {
	ReportID string `json:"reportId"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// HandleDecision handles POST /moderation/decision. The admin check
// happens in the service so the audit trail and the authorization
// decision share one code path.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, "invalid request body")
		return
	}
	if req.ReportID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "reportId is required")
		return
	}

	kind, err := moderation.ParseActionKind(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	report, err := h.service.ApplyDecision(r.Context(), userID, req.ReportID, kind, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
