// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Submit runs the same path as a socket submission.
	Submit(ctx context.Context, s model.Score) error

	Leaderboard(ctx context.Context, filter *model.Game) ([]model.LeaderboardEntry, error)
	RecentScores(ctx context.Context) ([]model.Score, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	qrHandler          *QRHandler

	realtime http.Handler
	version  string
	wsURL    string
	logger   logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		version: "dev",
		wsURL:   "ws://localhost:3026",
		logger:  logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler(s.version, s.wsURL)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.scoresHandler = NewScoresHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	s.qrHandler = NewQRHandler(s.wsURL)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("GET /qr", MetricsMiddleware(s.qrHandler.HandleQR, "qr"))
	mux.Handle("GET /metrics", MetricsHandler())

	if s.realtime != nil {
		mux.Handle("GET /ws", s.realtime)
		// Clients may also upgrade on the bare host.
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" && websocket.IsWebSocketUpgrade(r) {
				s.realtime.ServeHTTP(w, r)
				return
			}
			http.NotFound(w, r)
		})
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
