package api

import (
	"net/http"

	"github.com/okian/scorehub/pkg/logger"
)

// Option configures the Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithWebsocketURL sets the public join URL shown by /health and /qr.
func WithWebsocketURL(u string) Option {
	return func(s *Server) {
		if u != "" {
			s.wsURL = u
		}
	}
}

// WithRealtime mounts the websocket handler at /ws and on upgrade requests to /.
func WithRealtime(h http.Handler) Option {
	return func(s *Server) {
		s.realtime = h
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
