package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/pkg/logger"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPClient calls the hub's REST surface. Reads never fail: any error
// yields an empty slice.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewHTTPClient creates a client for baseURL, e.g. http://localhost:3026.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Get().Named("http_client"),
	}
}

// FetchLeaderboard returns the ranked entries, optionally for one game.
func (c *HTTPClient) FetchLeaderboard(ctx context.Context, game *model.Game) []model.LeaderboardEntry {
	path := "/leaderboard"
	if game != nil {
		path += "?game=" + url.QueryEscape(string(*game))
	}
	var out []model.LeaderboardEntry
	if err := c.getJSON(ctx, path, &out); err != nil {
		c.logger.Debug(ctx, "leaderboard fetch failed", logger.Error(err))
		return []model.LeaderboardEntry{}
	}
	if out == nil {
		out = []model.LeaderboardEntry{}
	}
	return out
}

// FetchScores returns the recent-scores window.
func (c *HTTPClient) FetchScores(ctx context.Context) []model.Score {
	var out []model.Score
	if err := c.getJSON(ctx, "/scores", &out); err != nil {
		c.logger.Debug(ctx, "scores fetch failed", logger.Error(err))
		return []model.Score{}
	}
	if out == nil {
		out = []model.Score{}
	}
	return out
}

// PostScore submits s. A refusal is returned as *validation.RejectedError.
func (c *HTTPClient) PostScore(ctx context.Context, s model.Score) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scores", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post score: %w", err)
	}
	defer resp.Body.Close()

	var ack types.SubmitResponse
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	switch {
	case resp.StatusCode == http.StatusOK && ack.OK:
		return nil
	case resp.StatusCode == http.StatusBadRequest && ack.Error != "":
		return &validation.RejectedError{Reason: ack.Error}
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrServer, resp.StatusCode, ack.Error)
	}
}

// Health returns the server's liveness banner.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrServer, resp.StatusCode)
	}
	return string(b), nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrServer, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
