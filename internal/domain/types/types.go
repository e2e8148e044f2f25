// Package types contains the wire protocol shared by the hub and its clients.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/okian/scorehub/internal/domain/model"
)

// MessageType discriminates realtime frames.
type MessageType string

// Realtime message types.
const (
	TypeJoin        MessageType = "join"
	TypeLeave       MessageType = "leave"
	TypeScore       MessageType = "score"
	TypePlaying     MessageType = "playing"
	TypePlayers     MessageType = "players"
	TypeScores      MessageType = "scores"
	TypeLeaderboard MessageType = "leaderboard"
)

// Message is the decoded form of any realtime frame. Only the fields that
// belong to Type are meaningful.
type Message struct {
	Type     MessageType              `json:"type"`
	Player   *model.Player            `json:"player,omitempty"`
	PlayerID string                   `json:"playerId,omitempty"`
	Score    *model.Score             `json:"score,omitempty"`
	Game     model.Game               `json:"game,omitempty"`
	Players  []model.Player           `json:"players,omitempty"`
	Scores   []model.Score            `json:"scores,omitempty"`
	Entries  []model.LeaderboardEntry `json:"entries,omitempty"`
}

// SubmitResponse is the body returned by POST /scores.
type SubmitResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewJoin announces a player entering the live set.
func NewJoin(p model.Player) Message { return Message{Type: TypeJoin, Player: &p} }

// NewLeave announces a player leaving the live set.
func NewLeave(playerID string) Message { return Message{Type: TypeLeave, PlayerID: playerID} }

// NewScore carries one score, either submitted or accepted.
func NewScore(s model.Score) Message { return Message{Type: TypeScore, Score: &s} }

// NewPlaying tells others what a player is currently playing.
func NewPlaying(p model.Player, g model.Game) Message {
	return Message{Type: TypePlaying, Player: &p, Game: g}
}

// NewPlayers carries the full live set.
func NewPlayers(ps []model.Player) Message { return Message{Type: TypePlayers, Players: ps} }

// NewScores carries the recent-scores window.
func NewScores(ss []model.Score) Message { return Message{Type: TypeScores, Scores: ss} }

// NewLeaderboard carries ranked entries.
func NewLeaderboard(es []model.LeaderboardEntry) Message {
	return Message{Type: TypeLeaderboard, Entries: es}
}

// Encode renders m with exactly the payload fields of its type. Collection
// payloads are always emitted as arrays, never null.
func Encode(m Message) ([]byte, error) {
	var v any
	switch m.Type {
	case TypeJoin:
		if m.Player == nil {
			return nil, fmt.Errorf("%w: join without player", ErrMalformed)
		}
		v = struct {
			Type   MessageType  `json:"type"`
			Player model.Player `json:"player"`
		}{m.Type, *m.Player}
	case TypeLeave:
		v = struct {
			Type     MessageType `json:"type"`
			PlayerID string      `json:"playerId"`
		}{m.Type, m.PlayerID}
	case TypeScore:
		if m.Score == nil {
			return nil, fmt.Errorf("%w: score without payload", ErrMalformed)
		}
		v = struct {
			Type  MessageType `json:"type"`
			Score model.Score `json:"score"`
		}{m.Type, *m.Score}
	case TypePlaying:
		var p model.Player
		if m.Player != nil {
			p = *m.Player
		}
		v = struct {
			Type   MessageType  `json:"type"`
			Player model.Player `json:"player"`
			Game   model.Game   `json:"game"`
		}{m.Type, p, m.Game}
	case TypePlayers:
		v = struct {
			Type    MessageType    `json:"type"`
			Players []model.Player `json:"players"`
		}{m.Type, nonNil(m.Players)}
	case TypeScores:
		v = struct {
			Type   MessageType   `json:"type"`
			Scores []model.Score `json:"scores"`
		}{m.Type, nonNil(m.Scores)}
	case TypeLeaderboard:
		v = struct {
			Type    MessageType              `json:"type"`
			Entries []model.LeaderboardEntry `json:"entries"`
		}{m.Type, nonNil(m.Entries)}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, m.Type)
	}
	return json.Marshal(v)
}

// Decode parses a frame. Unparseable input, a missing type or a payload that
// does not fit the type yields an error wrapping ErrMalformed.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch m.Type {
	case TypeJoin:
		if m.Player == nil {
			return Message{}, fmt.Errorf("%w: join without player", ErrMalformed)
		}
	case TypeScore:
		if m.Score == nil {
			return Message{}, fmt.Errorf("%w: score without payload", ErrMalformed)
		}
	case TypeLeave, TypePlaying, TypePlayers, TypeScores, TypeLeaderboard:
	case "":
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, m.Type)
	}
	return m, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
