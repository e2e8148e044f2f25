package api

import (
	"net/http"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/logger"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, l logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: l}
}

// HandleGetLeaderboard handles GET /leaderboard[?game=] requests. Unknown
// games and failures yield an empty array.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries := []model.LeaderboardEntry{}

	var filter *model.Game
	if raw := r.URL.Query().Get("game"); raw != "" {
		g, err := model.ParseGame(raw)
		if err != nil {
			writeJSON(w, http.StatusOK, entries)
			return
		}
		filter = &g
	}

	got, err := h.deps.Leaderboard(r.Context(), filter)
	if err != nil {
		h.logger.Warn(r.Context(), "leaderboard query failed", logger.Error(err))
		writeJSON(w, http.StatusOK, entries)
		return
	}
	if got != nil {
		entries = got
	}
	writeJSON(w, http.StatusOK, entries)
}
