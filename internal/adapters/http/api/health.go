package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/scorehub/pkg/metrics"
)

// HealthHandler handles liveness requests.
type HealthHandler struct {
	banner string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version, wsURL string) *HealthHandler {
	return &HealthHandler{banner: fmt.Sprintf("scorehub v%s - %s", version, wsURL)}
}

// HandleHealth handles GET /health with a plaintext banner.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.banner))
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
