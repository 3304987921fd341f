package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/vancomm/minesweeper/internal/game"
	"github.com/vancomm/minesweeper/internal/mines"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type GameSession struct {
	GameSessionID int64      `db:"game_session_id"`
	Difficulty    string     `db:"difficulty"`
	Width         int        `db:"width"`
	Height        int        `db:"height"`
	MineCount     int        `db:"mine_count"`
	Dead          bool       `db:"dead"`
	Won           bool       `db:"won"`
	StartedAt     *time.Time `db:"started_at"`
	EndedAt       *time.Time `db:"ended_at"`
	State         []byte     `db:"state"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Session decodes the stored game.
func (gs GameSession) Session(r *rand.Rand, now func() time.Time) (*game.Session, error) {
	return game.Decode(gs.State, r, now)
}

type Highscore struct {
	GameSessionID int64     `db:"game_session_id" json:"game_session_id,string"`
	Difficulty    string    `db:"difficulty" json:"difficulty"`
	Width         int       `db:"width" json:"width"`
	Height        int       `db:"height" json:"height"`
	MineCount     int       `db:"mine_count" json:"mine_count"`
	PlaytimeMs    int64     `db:"playtime_ms" json:"playtime_ms"`
	RecordedAt    time.Time `db:"recorded_at" json:"recorded_at"`
}

func (h Highscore) Params() mines.GameParams {
	return mines.GameParams{Cols: h.Width, Rows: h.Height, MineCount: h.MineCount}
}

type HighscoreFilter struct {
	Difficulty *string
	GameParams *mines.GameParams
	Limit      int
}

func (f HighscoreFilter) match(h Highscore) bool {
	if f.Difficulty != nil && *f.Difficulty != h.Difficulty {
		return false
	}
	if f.GameParams != nil && *f.GameParams != h.Params() {
		return false
	}
	return true
}

type Repository interface {
	CreateGameSession(ctx context.Context, s *game.Session) (*GameSession, error)
	FetchGameSession(ctx context.Context, gameSessionID int64) (*GameSession, error)
	UpdateGameSession(ctx context.Context, gameSessionID int64, s *game.Session) (*GameSession, error)
	// RecordHighscore stores a won game once; a second attempt for the same
	// session returns [ErrDuplicate].
	RecordHighscore(ctx context.Context, h Highscore) error
	// GetHighscores returns the matching scores, fastest first.
	GetHighscores(ctx context.Context, filter HighscoreFilter) ([]Highscore, error)
	Close() error
}

// sessionColumns extracts the indexed columns and the encoded state.
func sessionColumns(s *game.Session) (GameSession, error) {
	state, err := s.Bytes()
	if err != nil {
		return GameSession{}, err
	}
	params := s.Params()
	return GameSession{
		Difficulty: s.Difficulty,
		Width:      params.Cols,
		Height:     params.Rows,
		MineCount:  params.MineCount,
		Dead:       s.Dead(),
		Won:        s.Won(),
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		State:      state,
	}, nil
}

// NewHighscore turns a finished winning session into a score. ok is false
// for anything else.
func NewHighscore(gameSessionID int64, s *game.Session) (h Highscore, ok bool) {
	if !s.Won() || s.StartedAt == nil || s.EndedAt == nil {
		return Highscore{}, false
	}
	params := s.Params()
	return Highscore{
		GameSessionID: gameSessionID,
		Difficulty:    s.Difficulty,
		Width:         params.Cols,
		Height:        params.Rows,
		MineCount:     params.MineCount,
		PlaytimeMs:    s.Elapsed().Milliseconds(),
		RecordedAt:    *s.EndedAt,
	}, true
}

// BestTime returns the fastest score matching filter.
func BestTime(ctx context.Context, repo Repository, filter HighscoreFilter) (*Highscore, error) {
	filter.Limit = 1
	scores, err := repo.GetHighscores(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrNotFound
	}
	return &scores[0], nil
}
