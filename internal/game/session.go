package game

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/vancomm/minesweeper/internal/mines"
)

const HintsPerGame = 3

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrNoHints      = errors.New("no hints left")
)

// Session is one game played on one board: the board itself plus the clock
// and the hint budget around it.
type Session struct {
	Difficulty string
	Board      *mines.Board
	HintsLeft  int
	StartedAt  *time.Time
	EndedAt    *time.Time

	rnd *rand.Rand
	now func() time.Time
}

// New creates a session with a fresh board. difficulty is only a label, the
// board is built from params. A nil now uses time.Now.
func New(
	difficulty string, params mines.GameParams,
	r *rand.Rand, now func() time.Time,
) (*Session, error) {
	board, err := params.NewBoard(r)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Difficulty: difficulty,
		Board:      board,
		HintsLeft:  HintsPerGame,
		rnd:        r,
	}
	s.SetClock(now)
	return s, nil
}

// SetClock replaces the time source, a nil now restores time.Now.
func (s *Session) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

func (s *Session) Params() mines.GameParams { return s.Board.Params() }
func (s *Session) Won() bool                { return s.Board.Won() }
func (s *Session) Dead() bool               { return s.Board.GameOver() }
func (s *Session) Finished() bool           { return s.Won() || s.Dead() }
func (s *Session) Started() bool            { return s.StartedAt != nil }

// RemainingMines is the header counter: mines minus flags, never negative.
func (s *Session) RemainingMines() int {
	return max(0, s.Board.MineCount()-s.Board.FlaggedCount())
}

// Elapsed is zero before the first move and frozen once the game ends.
func (s *Session) Elapsed() time.Duration {
	switch {
	case s.StartedAt == nil:
		return 0
	case s.EndedAt != nil:
		return s.EndedAt.Sub(*s.StartedAt)
	default:
		return s.now().Sub(*s.StartedAt)
	}
}

func (s *Session) start() {
	if s.StartedAt == nil {
		t := s.now().UTC()
		s.StartedAt = &t
	}
}

func (s *Session) settle() {
	if s.Finished() && s.EndedAt == nil {
		t := s.now().UTC()
		if s.StartedAt == nil {
			s.StartedAt = &t
		}
		s.EndedAt = &t
	}
}

func (s *Session) Reveal(col, row int) error {
	if s.Finished() {
		return ErrGameFinished
	}
	if err := s.Board.Reveal(col, row); err != nil {
		return err
	}
	if s.Board.MinesPlaced() {
		s.start()
	}
	s.settle()
	return nil
}

func (s *Session) Flag(col, row int) error {
	if s.Finished() {
		return ErrGameFinished
	}
	s.Board.ToggleFlag(col, row)
	return nil
}

func (s *Session) Chord(col, row int) error {
	if s.Finished() {
		return ErrGameFinished
	}
	s.Board.Chord(col, row)
	s.settle()
	return nil
}

// Hint reveals a random safe hidden cell and returns it. Before the first
// reveal the hint picks the cell that anchors mine placement.
func (s *Session) Hint() (mines.Point, error) {
	if s.Finished() {
		return mines.Point{}, ErrGameFinished
	}
	if s.HintsLeft <= 0 {
		return mines.Point{}, ErrNoHints
	}

	candidates := s.Board.SafeUnrevealed()
	if !s.Board.MinesPlaced() {
		// every hidden cell counts as safe now, but a crowded anchor may
		// not leave room for the mines
		candidates = s.placeableAnchors(candidates)
	}
	if len(candidates) == 0 {
		return mines.Point{}, ErrNoHints
	}

	p := candidates[s.intN(len(candidates))]
	if err := s.Board.Reveal(p.Col, p.Row); err != nil {
		return mines.Point{}, err
	}
	s.HintsLeft--
	s.start()
	s.settle()
	return p, nil
}

func (s *Session) placeableAnchors(points []mines.Point) []mines.Point {
	total := s.Board.Cols() * s.Board.Rows()
	result := make([]mines.Point, 0, len(points))
	for _, p := range points {
		zone := len(s.Board.Neighbors(p.Col, p.Row)) + 1
		if s.Board.MineCount() <= total-zone {
			result = append(result, p)
		}
	}
	return result
}

func (s *Session) intN(n int) int {
	if s.rnd != nil {
		return s.rnd.IntN(n)
	}
	return rand.IntN(n)
}

// Forfeit gives up a running game.
func (s *Session) Forfeit() error {
	if s.Finished() {
		return ErrGameFinished
	}
	s.Board.Forfeit()
	s.settle()
	return nil
}

type sessionState struct {
	Difficulty string
	Board      *mines.Board
	HintsLeft  int
	StartedAt  *time.Time
	EndedAt    *time.Time
}

func (s *Session) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(sessionState{
		Difficulty: s.Difficulty,
		Board:      s.Board,
		HintsLeft:  s.HintsLeft,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode restores a session stored with [Session.Bytes]. The restored
// session draws from r and reads the clock from now.
func Decode(buf []byte, r *rand.Rand, now func() time.Time) (*Session, error) {
	var state sessionState
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&state); err != nil {
		return nil, err
	}
	if state.Board == nil {
		return nil, errors.New("session has no board")
	}
	state.Board.SetRand(r)
	s := &Session{
		Difficulty: state.Difficulty,
		Board:      state.Board,
		HintsLeft:  state.HintsLeft,
		StartedAt:  state.StartedAt,
		EndedAt:    state.EndedAt,
		rnd:        r,
	}
	s.SetClock(now)
	return s, nil
}
