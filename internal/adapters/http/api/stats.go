package api

import (
	"net/http"
	"time"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service counters as JSON.
type StatsHandler struct {
	provider StatsProvider
	started  time.Time
}

// NewStatsHandler creates a StatsHandler. provider may be nil.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, started: time.Now()}
}

// HandleStats handles GET /stats. The uptime of the HTTP surface is always
// included.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]interface{}{}
	if h.provider != nil {
		for k, v := range h.provider.GetStats() {
			out[k] = v
		}
	}
	out["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
