package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vancomm/minesweeper/internal/game"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const sqliteSessionColumns = `game_session_id, difficulty, width, height,
	mine_count, dead, won, started_at, ended_at, state, created_at, updated_at`

// SQLite stores sessions in a single database file. Timestamps are kept as
// unix milliseconds.
type SQLite struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// ping to find out whether the file could be opened
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect sqlite db: %w", err)
	}
	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite creates the tables if needed.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row scanner) (*GameSession, error) {
	var (
		gs                   GameSession
		startedAt, endedAt   sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&gs.GameSessionID, &gs.Difficulty, &gs.Width, &gs.Height,
		&gs.MineCount, &gs.Dead, &gs.Won, &startedAt, &endedAt, &gs.State,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	gs.StartedAt = fromMillis(startedAt)
	gs.EndedAt = fromMillis(endedAt)
	gs.CreatedAt = time.UnixMilli(createdAt).UTC()
	gs.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &gs, nil
}

func (s *SQLite) CreateGameSession(ctx context.Context, session *game.Session) (*GameSession, error) {
	row, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO game_session (
	difficulty, width, height, mine_count, dead, won,
	started_at, ended_at, state, created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		row.Difficulty, row.Width, row.Height, row.MineCount, row.Dead, row.Won,
		toMillis(row.StartedAt), toMillis(row.EndedAt), row.State, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.FetchGameSession(ctx, id)
}

func (s *SQLite) FetchGameSession(ctx context.Context, gameSessionID int64) (*GameSession, error) {
	return scanSQLiteSession(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSessionColumns+` FROM game_session WHERE game_session_id = ?;`,
		gameSessionID,
	))
}

func (s *SQLite) UpdateGameSession(
	ctx context.Context, gameSessionID int64, session *game.Session,
) (*GameSession, error) {
	row, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
UPDATE game_session
SET dead = ?, won = ?, started_at = ?, ended_at = ?, state = ?, updated_at = ?
WHERE game_session_id = ?;`,
		row.Dead, row.Won, toMillis(row.StartedAt), toMillis(row.EndedAt),
		row.State, s.now().UnixMilli(), gameSessionID,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.FetchGameSession(ctx, gameSessionID)
}

func (s *SQLite) RecordHighscore(ctx context.Context, h Highscore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO highscore (
	game_session_id, difficulty, width, height, mine_count,
	playtime_ms, recorded_at
)
SELECT ?, ?, ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM game_session WHERE game_session_id = ?);`,
		h.GameSessionID, h.Difficulty, h.Width, h.Height, h.MineCount,
		h.PlaytimeMs, h.RecordedAt.UnixMilli(), h.GameSessionID,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) GetHighscores(ctx context.Context, filter HighscoreFilter) ([]Highscore, error) {
	query := `
SELECT game_session_id, difficulty, width, height, mine_count,
	playtime_ms, recorded_at
FROM highscore`

	clauses := make([]string, 0)
	args := make([]any, 0)
	if filter.Difficulty != nil {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, *filter.Difficulty)
	}
	if filter.GameParams != nil {
		clauses = append(clauses, "width = ?", "height = ?", "mine_count = ?")
		args = append(args,
			filter.GameParams.Cols, filter.GameParams.Rows, filter.GameParams.MineCount)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY playtime_ms, recorded_at, game_session_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]Highscore, 0)
	for rows.Next() {
		var (
			h          Highscore
			recordedAt int64
		)
		if err := rows.Scan(
			&h.GameSessionID, &h.Difficulty, &h.Width, &h.Height,
			&h.MineCount, &h.PlaytimeMs, &recordedAt,
		); err != nil {
			return nil, err
		}
		h.RecordedAt = time.UnixMilli(recordedAt).UTC()
		scores = append(scores, h)
	}
	return scores, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
