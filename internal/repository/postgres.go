package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vancomm/minesweeper/internal/game"
)

// DBTX is satisfied by [pgxpool.Pool], [pgx.Conn] and [pgx.Tx].
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db    DBTX
	close func()
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// NewPostgres owns pool and closes it together with the repository.
func NewPostgres(pool *pgxpool.Pool) *Queries {
	return &Queries{db: pool, close: pool.Close}
}

// mapError translates driver errors into the repository errors.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrDuplicate
		case pgerrcode.ForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

func (q *Queries) CreateGameSession(ctx context.Context, session *game.Session) (*GameSession, error) {
	row, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO game_session (
			difficulty, width, height, mine_count, dead, won,
			started_at, ended_at, state
		)
		VALUES (
			@difficulty, @width, @height, @mine_count, @dead, @won,
			@started_at, @ended_at, @state
		)
		RETURNING *;`,
		pgx.NamedArgs{
			"difficulty": row.Difficulty,
			"width":      row.Width,
			"height":     row.Height,
			"mine_count": row.MineCount,
			"dead":       row.Dead,
			"won":        row.Won,
			"started_at": row.StartedAt,
			"ended_at":   row.EndedAt,
			"state":      row.State,
		},
	)
	gs, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameSession])
	return gs, mapError(err)
}

func (q *Queries) FetchGameSession(ctx context.Context, gameSessionID int64) (*GameSession, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM game_session WHERE game_session_id = $1",
		gameSessionID,
	)
	gs, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameSession])
	return gs, mapError(err)
}

func (q *Queries) UpdateGameSession(
	ctx context.Context, gameSessionID int64, session *game.Session,
) (*GameSession, error) {
	row, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}
	rows, _ := q.db.Query(
		ctx,
		`UPDATE game_session
		SET dead = @dead, won = @won, started_at = @started_at,
			ended_at = @ended_at, state = @state, updated_at = now()
		WHERE game_session_id = @game_session_id
		RETURNING *;`,
		pgx.NamedArgs{
			"game_session_id": gameSessionID,
			"dead":            row.Dead,
			"won":             row.Won,
			"started_at":      row.StartedAt,
			"ended_at":        row.EndedAt,
			"state":           row.State,
		},
	)
	gs, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameSession])
	return gs, mapError(err)
}

func (q *Queries) RecordHighscore(ctx context.Context, h Highscore) error {
	_, err := q.db.Exec(
		ctx,
		`INSERT INTO highscore (
			game_session_id, difficulty, width, height, mine_count,
			playtime_ms, recorded_at
		)
		VALUES (
			@game_session_id, @difficulty, @width, @height, @mine_count,
			@playtime_ms, @recorded_at
		);`,
		pgx.NamedArgs{
			"game_session_id": h.GameSessionID,
			"difficulty":      h.Difficulty,
			"width":           h.Width,
			"height":          h.Height,
			"mine_count":      h.MineCount,
			"playtime_ms":     h.PlaytimeMs,
			"recorded_at":     h.RecordedAt,
		},
	)
	return mapError(err)
}

func (f HighscoreFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.Difficulty != nil {
		clauses = append(clauses, "difficulty = @difficulty")
		args["difficulty"] = *f.Difficulty
	}
	if f.GameParams != nil {
		clauses = append(
			clauses,
			"width = @width",
			"height = @height",
			"mine_count = @mine_count",
		)
		args["width"] = f.GameParams.Cols
		args["height"] = f.GameParams.Rows
		args["mine_count"] = f.GameParams.MineCount
	}
	return strings.Join(clauses, " AND "), args
}

func (q *Queries) GetHighscores(ctx context.Context, filter HighscoreFilter) ([]Highscore, error) {
	query := `
	SELECT
		game_session_id,
		difficulty,
		width,
		height,
		mine_count,
		playtime_ms,
		recorded_at
	FROM highscore`

	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	query += " ORDER BY playtime_ms, recorded_at, game_session_id"
	if filter.Limit > 0 {
		query += " LIMIT @limit"
		args["limit"] = filter.Limit
	}

	rows, err := q.db.Query(ctx, query+";", args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Highscore])
}

func (q *Queries) Close() error {
	if q.close != nil {
		q.close()
	}
	return nil
}
