package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps the score log in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts...)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorage, err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := fmt.Sprintf("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = %d;", o.busyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: setting pragmas: %v", ErrStorage, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", ErrStorage, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts one row.
func (s *SQLiteStore) Append(ctx context.Context, sc model.Score) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (player_id, player_name, game, score, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, sc.PlayerID, sc.PlayerName, string(sc.Game), sc.Score, sc.Timestamp)
	return observe("append", start, err)
}

// Recent returns the newest rows first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.Score, error) {
	start := time.Now()
	out, err := s.latest(ctx, orDefault(limit, DefaultRecentLimit))
	return out, observe("recent", start, err)
}

// ForAggregation returns the newest rows first; callers must not rely on order.
func (s *SQLiteStore) ForAggregation(ctx context.Context, limit int) ([]model.Score, error) {
	start := time.Now()
	out, err := s.latest(ctx, orDefault(limit, DefaultAggregationLimit))
	return out, observe("aggregation", start, err)
}

func (s *SQLiteStore) latest(ctx context.Context, limit int) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, player_name, game, score, timestamp
		FROM scores
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Score, 0, limit)
	for rows.Next() {
		var sc model.Score
		var game string
		if err := rows.Scan(&sc.PlayerID, &sc.PlayerName, &game, &sc.Score, &sc.Timestamp); err != nil {
			return nil, err
		}
		sc.Game = model.Game(game)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Count returns the total number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scores").Scan(&n)
	return n, observe("count", start, err)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
