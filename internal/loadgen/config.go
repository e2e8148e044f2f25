// Package loadgen drives a running hub with synthetic players and checks
// the leaderboard it serves against one computed locally.
package loadgen

import (
	"time"

	"github.com/okian/scorehub/internal/domain/model"
)

// Defaults for Config fields left zero. DefaultSettle is the CLI default;
// a zero Settle verifies immediately.
const (
	DefaultPlayers = 50
	DefaultWorkers = 8
	DefaultTimeout = 10 * time.Second
	DefaultSettle  = 500 * time.Millisecond
	DefaultTopN    = 10
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the hub
	Players int           // Number of synthetic players
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout
	Settle  time.Duration // Wait between submitting and verifying
	TopN    int           // Entries shown in the report
	Verbose bool
}

func (c Config) withDefaults() Config {
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	PlayersGenerated int
	ScoresGenerated  int
	ScoresSubmitted  int
	ScoresAccepted   int
	ScoresRejected   int
	ScoresFailed     int
	Rejections       map[string]int
	Leaderboard      []model.LeaderboardEntry
	Verified         int // our players whose bests matched
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
