package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/scorehub/internal/adapters/repository"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/pkg/logger"
)

const maxScoreBody = 4 << 10

// ScoresHandler handles the recent-scores window and HTTP submissions.
type ScoresHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies, l logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, logger: l}
}

// HandleGetScores handles GET /scores.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.RecentScores(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "recent scores query failed", logger.Error(err))
		rows = nil
	}
	if rows == nil {
		rows = []model.Score{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandlePostScore handles POST /scores. Rejections answer 400 with the
// reason, storage faults 500.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	var s model.Score
	body := http.MaxBytesReader(w, r.Body, maxScoreBody)
	if err := json.NewDecoder(body).Decode(&s); err != nil {
		err = fmt.Errorf("%w: %v", ErrBadRequest, err)
		h.logger.Debug(r.Context(), "bad score body", logger.Error(err))
		writeJSON(w, http.StatusBadRequest, types.SubmitResponse{OK: false, Error: "Invalid JSON"})
		return
	}

	err := h.deps.Submit(r.Context(), s)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.SubmitResponse{OK: true})
	case errors.Is(err, validation.ErrRejected):
		reason, _ := validation.Reason(err)
		writeJSON(w, http.StatusBadRequest, types.SubmitResponse{OK: false, Error: reason})
	case errors.Is(err, repository.ErrStorage):
		h.logger.Error(r.Context(), "score not stored", logger.String("player", s.PlayerID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, types.SubmitResponse{OK: false, Error: "Failed to save score"})
	default:
		h.logger.Error(r.Context(), "score submission failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, types.SubmitResponse{OK: false, Error: "Service unavailable"})
	}
}
