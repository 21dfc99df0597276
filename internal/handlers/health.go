package handlers

import (
	"net/http"

	"modguard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// healthResponse is the public policy summary. It carries list sizes and
// mode flags only, never list contents or admin identities.
type healthResponse struct {
	Enabled         bool   `json:"enabled"`
	StrictMode      bool   `json:"strictMode"`
	ProfanityAction string `json:"profanityAction"`
	WordCount       int    `json:"wordCount"`
	AllowlistSize   int    `json:"allowlistSize"`
	BlocklistSize   int    `json:"blocklistSize"`
	ReportsEnabled  bool   `json:"reportsEnabled"`
}

// HandleHealth handles GET /moderation/health. Public.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rules := h.service.Engine().Rules()

	// Enabled is read back from the gauge rather than the rule snapshot
	// so the summary and the exported metric can never disagree.
	writeJSON(w, http.StatusOK, healthResponse{
		Enabled:         getGaugeValue(metrics.EngineEnabled) == 1,
		StrictMode:      rules.StrictMode,
		ProfanityAction: rules.ProfanityAction.String(),
		WordCount:       rules.WordCount(),
		AllowlistSize:   rules.AllowlistSize(),
		BlocklistSize:   rules.BlocklistSize(),
		ReportsEnabled:  h.config.ReportsEnabled,
	})
}

// getGaugeValue reads the current value of a prometheus.Gauge.
func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil {
		return m.GetGauge().GetValue()
	}
	return 0
}
