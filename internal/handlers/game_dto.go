package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/game"
	"github.com/vancomm/minesweeper/internal/mines"
)

const customDifficulty = "Custom"

type NewGameDTO struct {
	Difficulty string `schema:"difficulty"`
	Cols       *int   `schema:"cols"`
	Rows       *int   `schema:"rows"`
	MineCount  *int   `schema:"mine_count"`
}

// Resolve picks the preset named by Difficulty, a custom board when all
// three dimensions are given, or the default preset when nothing is.
func (dto NewGameDTO) Resolve(difficulties *config.Difficulties) (config.Difficulty, error) {
	custom := dto.Cols != nil || dto.Rows != nil || dto.MineCount != nil
	switch {
	case dto.Difficulty != "" && custom:
		return config.Difficulty{}, fmt.Errorf(
			"%w: difficulty and board size are mutually exclusive", ErrBadQuery)
	case dto.Difficulty != "":
		d, err := difficulties.Lookup(dto.Difficulty)
		if err != nil {
			return config.Difficulty{}, fmt.Errorf("%w: %w", ErrBadQuery, err)
		}
		return d, nil
	case custom:
		if dto.Cols == nil || dto.Rows == nil || dto.MineCount == nil {
			return config.Difficulty{}, fmt.Errorf(
				"%w: cols, rows and mine_count are all required", ErrBadQuery)
		}
		params := mines.GameParams{Cols: *dto.Cols, Rows: *dto.Rows, MineCount: *dto.MineCount}
		if err := params.Validate(); err != nil {
			return config.Difficulty{}, err
		}
		return config.Difficulty{Name: customDifficulty, GameParams: params}, nil
	default:
		return difficulties.DefaultDifficulty(), nil
	}
}

type Move uint8

const (
	Reveal Move = iota + 1
	Flag
	Chord
)

func (m Move) String() string {
	switch m {
	case Reveal:
		return "reveal"
	case Flag:
		return "flag"
	case Chord:
		return "chord"
	default:
		return "unknown"
	}
}

func ParseMove(s string) (Move, error) {
	switch strings.ToLower(s) {
	case "reveal", "open":
		return Reveal, nil
	case "flag":
		return Flag, nil
	case "chord":
		return Chord, nil
	default:
		return 0, fmt.Errorf("%w: move must be one of 'reveal', 'flag', 'chord'", ErrBadQuery)
	}
}

// Apply plays m on s.
func (m Move) Apply(s *game.Session, col, row int) error {
	if !s.Params().PointInBounds(col, row) {
		return fmt.Errorf("%w: cell %d:%d is outside the board", ErrBadQuery, col, row)
	}
	switch m {
	case Reveal:
		return s.Reveal(col, row)
	case Flag:
		return s.Flag(col, row)
	case Chord:
		return s.Chord(col, row)
	}
	return fmt.Errorf("%w: unknown move", ErrBadQuery)
}

type MoveDTO struct {
	Move string `schema:"move,required"`
	Col  int    `schema:"col,required"`
	Row  int    `schema:"row,required"`
}

type HighscoresDTO struct {
	Difficulty string `schema:"difficulty"`
	Seed       string `schema:"seed"`
	Limit      int    `schema:"limit"`
}

type PointDTO struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

type GameSessionDTO struct {
	GameSessionID  string     `json:"game_session_id"`
	Difficulty     string     `json:"difficulty"`
	Seed           string     `json:"seed"`
	Cols           int        `json:"cols"`
	Rows           int        `json:"rows"`
	MineCount      int        `json:"mine_count"`
	Grid           mines.Grid `json:"grid"`
	MinesPlaced    bool       `json:"mines_placed"`
	RemainingMines int        `json:"remaining_mines"`
	HintsLeft      int        `json:"hints_left"`
	Dead           bool       `json:"dead"`
	Won            bool       `json:"won"`
	StartedAt      *int64     `json:"started_at,omitempty"`
	EndedAt        *int64     `json:"ended_at,omitempty"`
	ElapsedMs      int64      `json:"elapsed_ms"`
	Token          string     `json:"token,omitempty"`
	Hint           *PointDTO  `json:"hint,omitempty"`
}

func NewGameSessionDTO(gameSessionID int64, s *game.Session) *GameSessionDTO {
	params := s.Params()
	dto := &GameSessionDTO{
		GameSessionID:  strconv.FormatInt(gameSessionID, 10),
		Difficulty:     s.Difficulty,
		Seed:           params.Seed(),
		Cols:           params.Cols,
		Rows:           params.Rows,
		MineCount:      params.MineCount,
		Grid:           s.Board.Grid(),
		MinesPlaced:    s.Board.MinesPlaced(),
		RemainingMines: s.RemainingMines(),
		HintsLeft:      s.HintsLeft,
		Dead:           s.Dead(),
		Won:            s.Won(),
		ElapsedMs:      s.Elapsed().Milliseconds(),
	}
	if s.StartedAt != nil {
		ms := s.StartedAt.UnixMilli()
		dto.StartedAt = &ms
	}
	if s.EndedAt != nil {
		ms := s.EndedAt.UnixMilli()
		dto.EndedAt = &ms
	}
	return dto
}
