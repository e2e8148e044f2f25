// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength is the longest display name kept, in runes.
const MaxNameLength = 16

// DefaultPlayerName is used when a connection does not supply a name.
const DefaultPlayerName = "anon"

// Game identifies one of the party mini-games.
type Game string

// Known games.
const (
	GameReaction Game = "reaction"
	GameTyping   Game = "typing"
	GamePattern  Game = "pattern"
)

// Games lists every known game in display order.
var Games = []Game{GameReaction, GameTyping, GamePattern} //nolint:gochecknoglobals // fixed enum

// ParseGame converts s into a known Game.
func ParseGame(s string) (Game, error) {
	g := Game(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("unknown game %q", s)
	}
	return g, nil
}

// Valid reports whether g is one of the known games.
func (g Game) Valid() bool {
	switch g {
	case GameReaction, GameTyping, GamePattern:
		return true
	default:
		return false
	}
}

// LowerIsBetter is true for games scored in elapsed time.
func (g Game) LowerIsBetter() bool {
	return g == GameReaction
}

// playerIDLength is the length of generated player ids.
const playerIDLength = 8

// NewPlayerID returns a short random player id, used when a client does not
// assert one.
func NewPlayerID() string {
	return uuid.NewString()[:playerIDLength]
}

// Player is a participant as asserted by the client.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeName trims name, truncates it to MaxNameLength runes and
// substitutes DefaultPlayerName when nothing is left.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	if name == "" {
		return DefaultPlayerName
	}
	return name
}

// Score is one submitted game result. Timestamp is epoch milliseconds.
type Score struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Game       Game   `json:"game"`
	Score      int64  `json:"score"`
	Timestamp  int64  `json:"timestamp"`
}

// GameBest is a player's best value for a single game.
type GameBest struct {
	Game  Game  `json:"game"`
	Score int64 `json:"score"`
}

// LeaderboardEntry is a derived ranking record.
type LeaderboardEntry struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	TotalScore float64    `json:"totalScore"`
	Games      []GameBest `json:"games"`
}

// Best returns the entry's best value for g.
func (e LeaderboardEntry) Best(g Game) (int64, bool) {
	for _, gb := range e.Games {
		if gb.Game == g {
			return gb.Score, true
		}
	}
	return 0, false
}
