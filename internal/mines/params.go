package mines

import (
	"fmt"
	"strings"
)

type GameParams struct {
	Cols      int `json:"cols" yaml:"cols"`
	Rows      int `json:"rows" yaml:"rows"`
	MineCount int `json:"mine_count" yaml:"mine_count"`
}

func (p GameParams) Seed() string {
	return fmt.Sprintf("%d:%d:%d", p.Cols, p.Rows, p.MineCount)
}

func ParseSeed(seed string) (*GameParams, error) {
	p := &GameParams{}
	sseed := strings.ReplaceAll(seed, ":", " ")
	n, err := fmt.Sscanf(sseed, "%d %d %d", &p.Cols, &p.Rows, &p.MineCount)
	if n != 3 || err != nil {
		return nil, fmt.Errorf(
			`invalid game params seed (sseed = "%s", n = %d, err = %w)`,
			sseed, n, err,
		)
	}
	return p, nil
}

func (p GameParams) PointInBounds(col, row int) bool {
	return 0 <= col && col < p.Cols && 0 <= row && row < p.Rows
}

// minSafeZone is the smallest first-click safe zone the board can have: a
// corner cell plus its in-bounds neighbors.
func (p GameParams) minSafeZone() int {
	return min(p.Cols, 2) * min(p.Rows, 2)
}

// Validate reports whether a board with these params can be played at all.
// Whether a particular first click leaves enough room for every mine is only
// known at placement time.
func (p GameParams) Validate() error {
	if p.Cols <= 0 || p.Rows <= 0 {
		return fmt.Errorf("%w: board must be at least 1x1, got %dx%d",
			ErrBadParams, p.Cols, p.Rows)
	}
	if p.MineCount < 0 {
		return fmt.Errorf("%w: negative mine count %d", ErrBadParams, p.MineCount)
	}
	if capacity := p.Cols*p.Rows - p.minSafeZone(); p.MineCount > capacity {
		return fmt.Errorf("%w: %d mines do not fit a %dx%d board (at most %d)",
			ErrTooManyMines, p.MineCount, p.Cols, p.Rows, capacity)
	}
	return nil
}
