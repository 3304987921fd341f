package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

type boardState struct {
	Cols, Rows, MineCount int
	Cells                 []CellState
	Phase                 Phase
	RevealedCount         int
	GameOver, Win         bool
	Exploded              int
}

// [Board] implements [gob.GobEncoder]
func (b *Board) GobEncode() ([]byte, error) {
	state := boardState{
		Cols:          b.cols,
		Rows:          b.rows,
		MineCount:     b.mineCount,
		Cells:         make([]CellState, len(b.cells)),
		Phase:         b.phase,
		RevealedCount: b.revealedCount,
		GameOver:      b.gameOver,
		Win:           b.win,
		Exploded:      b.exploded,
	}
	for i, cell := range b.cells {
		state.Cells[i] = cell.State
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// [Board] implements [gob.GobDecoder]
func (b *Board) GobDecode(data []byte) error {
	var state boardState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}
	if state.Cols <= 0 || state.Rows <= 0 || len(state.Cells) != state.Cols*state.Rows {
		return fmt.Errorf("%w: decoded %dx%d board with %d cells",
			ErrBadParams, state.Cols, state.Rows, len(state.Cells))
	}

	b.cols, b.rows, b.mineCount = state.Cols, state.Rows, state.MineCount
	b.phase = state.Phase
	b.revealedCount = state.RevealedCount
	b.gameOver, b.win = state.GameOver, state.Win
	b.exploded = state.Exploded
	b.cells = make([]Cell, len(state.Cells))
	for i, s := range state.Cells {
		b.cells[i] = Cell{Col: i % state.Cols, Row: i / state.Cols, State: s}
	}
	return nil
}

func (b *Board) Bytes() ([]byte, error) {
	return b.GobEncode()
}

func DecodeBoard(buf []byte) (*Board, error) {
	b := &Board{}
	if err := b.GobDecode(buf); err != nil {
		return nil, err
	}
	return b, nil
}
