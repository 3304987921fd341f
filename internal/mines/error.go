package mines

import (
	"errors"
	"fmt"
)

var (
	ErrBadParams    = errors.New("invalid board parameters")
	ErrTooManyMines = errors.New("too many mines")
)

// PlacementError is returned by the first reveal when the mines do not fit
// outside the safe zone around the clicked cell.
type PlacementError struct {
	Col, Row  int
	MineCount int
	Capacity  int
}

// [PlacementError] implements [error]
func (e *PlacementError) Error() string {
	return fmt.Sprintf(
		"cannot place %d mines around first click at %d:%d (room for %d)",
		e.MineCount, e.Col, e.Row, e.Capacity,
	)
}

func (e *PlacementError) Unwrap() error {
	return ErrTooManyMines
}
