package mines

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plantedBoard skips the random placement and puts mines exactly where the
// test wants them.
func plantedBoard(t *testing.T, cols, rows int, mines ...Point) *Board {
	t.Helper()
	b, err := NewBoard(cols, rows, len(mines), nil)
	require.NoError(t, err)
	for _, m := range mines {
		b.cells[b.index(m.Col, m.Row)].State.IsMine = true
	}
	b.computeAdjacency()
	b.phase = Placed
	return b
}

func revealedSet(b *Board) map[Point]bool {
	set := make(map[Point]bool)
	for _, cell := range b.cells {
		if cell.State.IsRevealed {
			set[Point{cell.Col, cell.Row}] = true
		}
	}
	return set
}

func TestNewBoard(t *testing.T) {
	tests := []struct {
		name                  string
		cols, rows, mineCount int
		err                   error
	}{
		{name: "9x9(10)", cols: 9, rows: 9, mineCount: 10},
		{name: "1x1(0)", cols: 1, rows: 1, mineCount: 0},
		{name: "3x3(5)", cols: 3, rows: 3, mineCount: 5},
		{name: "zero cols", cols: 0, rows: 3, mineCount: 0, err: ErrBadParams},
		{name: "negative rows", cols: 3, rows: -1, mineCount: 0, err: ErrBadParams},
		{name: "negative mines", cols: 3, rows: 3, mineCount: -1, err: ErrBadParams},
		{name: "3x3(6)", cols: 3, rows: 3, mineCount: 6, err: ErrTooManyMines},
		{name: "full board", cols: 9, rows: 9, mineCount: 81, err: ErrTooManyMines},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := NewBoard(test.cols, test.rows, test.mineCount, nil)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Unplaced, b.Phase())
			assert.Len(t, b.Cells(), test.cols*test.rows)
			for i, cell := range b.Cells() {
				assert.Equal(t, i, b.index(cell.Col, cell.Row))
				assert.Equal(t, CellState{}, cell.State)
			}
			assert.False(t, b.GameOver())
			assert.False(t, b.Won())
			assert.Zero(t, b.RevealedCount())
		})
	}
}

func TestNeighbors(t *testing.T) {
	b, err := NewBoard(3, 3, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, []Point{{1, 0}, {0, 1}, {1, 1}}, b.Neighbors(0, 0))
	assert.Equal(t, []Point{
		{0, 0}, {1, 0}, {2, 0},
		{0, 1}, {2, 1},
		{0, 2}, {1, 2}, {2, 2},
	}, b.Neighbors(1, 1))
	assert.Equal(t, []Point{{1, 1}, {2, 1}, {1, 2}}, b.Neighbors(2, 2))
	assert.Len(t, b.Neighbors(1, 0), 5)

	single, err := NewBoard(1, 1, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, single.Neighbors(0, 0))
}

func TestFirstRevealIsSafe(t *testing.T) {
	tests := []GameParams{
		{Cols: 9, Rows: 9, MineCount: 10},
		{Cols: 9, Rows: 9, MineCount: 72},
		{Cols: 16, Rows: 16, MineCount: 40},
		{Cols: 30, Rows: 20, MineCount: 99},
		{Cols: 30, Rows: 16, MineCount: 170},
		{Cols: 5, Rows: 1, MineCount: 2},
	}

	for _, params := range tests {
		t.Run(params.Seed(), func(t *testing.T) {
			t.Parallel()
			r := rand.New(rand.NewPCG(1, 2))
			for sc := range params.Cols {
				for sr := range params.Rows {
					b, err := params.NewBoard(r)
					require.NoError(t, err)
					require.NoError(t, b.Reveal(sc, sr), "first click at %d:%d", sc, sr)
					require.Equal(t, Placed, b.Phase())

					assert.False(t, b.cells[b.index(sc, sr)].State.IsMine)
					for _, n := range b.Neighbors(sc, sr) {
						assert.False(t, b.cells[b.index(n.Col, n.Row)].State.IsMine,
							"mine next to first click %d:%d at %d:%d", sc, sr, n.Col, n.Row)
					}

					mines := 0
					for _, cell := range b.cells {
						if cell.State.IsMine {
							mines++
						}
					}
					assert.Equal(t, params.MineCount, mines)
					assert.False(t, b.GameOver())
				}
			}
		})
	}
}

func TestAdjacencyMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for range 20 {
		b, err := NewBoard(16, 16, 60, r)
		require.NoError(t, err)
		require.NoError(t, b.Reveal(r.IntN(16), r.IntN(16)))

		for _, cell := range b.cells {
			if cell.State.IsMine {
				assert.Zero(t, cell.State.Adjacent)
				continue
			}
			expected := 0
			for dc := -1; dc <= 1; dc++ {
				for dr := -1; dr <= 1; dr++ {
					c, rr := cell.Col+dc, cell.Row+dr
					if (dc != 0 || dr != 0) && 0 <= c && c < 16 && 0 <= rr && rr < 16 &&
						b.cells[rr*16+c].State.IsMine {
						expected++
					}
				}
			}
			assert.Equal(t, expected, cell.State.Adjacent, "cell %d:%d", cell.Col, cell.Row)
		}
	}
}

func TestPlacementIsUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	const trials = 3000
	hits := make(map[int]int)
	for range trials {
		b, err := NewBoard(5, 1, 1, r)
		require.NoError(t, err)
		require.NoError(t, b.Reveal(0, 0))
		for i, cell := range b.cells {
			if cell.State.IsMine {
				hits[i]++
			}
		}
	}

	assert.Zero(t, hits[0])
	assert.Zero(t, hits[1])
	for _, i := range []int{2, 3, 4} {
		assert.InDelta(t, trials/3, hits[i], trials/3*0.15, "candidate %d", i)
	}
}

func TestPlacementRejectsCrowdedAnchor(t *testing.T) {
	b, err := NewBoard(3, 3, 1, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	err = b.Reveal(1, 1)
	require.ErrorIs(t, err, ErrTooManyMines)
	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Capacity)
	assert.Equal(t, 1, pe.MineCount)

	assert.Equal(t, Unplaced, b.Phase())
	assert.Zero(t, b.RevealedCount())
	for _, cell := range b.cells {
		assert.Equal(t, CellState{}, cell.State)
	}

	// a corner click leaves room for the mine
	require.NoError(t, b.Reveal(0, 0))
	assert.Equal(t, Placed, b.Phase())
	for _, p := range append(b.Neighbors(0, 0), Point{0, 0}) {
		assert.False(t, b.cells[b.index(p.Col, p.Row)].State.IsMine)
	}
}

func TestZeroMinesRevealsEverything(t *testing.T) {
	for _, start := range []Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		t.Run(fmt.Sprintf("%d:%d", start.Col, start.Row), func(t *testing.T) {
			b, err := NewBoard(2, 2, 0, nil)
			require.NoError(t, err)
			require.NoError(t, b.Reveal(start.Col, start.Row))

			assert.True(t, b.Won())
			assert.False(t, b.GameOver())
			assert.Equal(t, 4, b.RevealedCount())
			assert.Len(t, revealedSet(b), 4)
		})
	}
}

func TestFloodStopsAtNumberedBorder(t *testing.T) {
	b := plantedBoard(t, 5, 5,
		Point{2, 0}, Point{2, 1}, Point{2, 2}, Point{2, 3}, Point{2, 4},
	)
	require.NoError(t, b.Reveal(0, 0))

	revealed := revealedSet(b)
	assert.Len(t, revealed, 10)
	for row := range 5 {
		assert.True(t, revealed[Point{0, row}])
		assert.True(t, revealed[Point{1, row}])
		assert.False(t, revealed[Point{3, row}])
		assert.False(t, revealed[Point{4, row}])
	}
	assert.Equal(t, 10, b.RevealedCount())
	assert.False(t, b.Won())
	assert.False(t, b.GameOver())
}

// expectedFlood computes the reveal set of a zero cell recursively.
func expectedFlood(b *Board, p Point, seen map[Point]bool) {
	if seen[p] {
		return
	}
	state := b.cells[b.index(p.Col, p.Row)].State
	if state.IsFlagged || state.IsMine {
		return
	}
	seen[p] = true
	if state.Adjacent != 0 {
		return
	}
	for _, n := range b.Neighbors(p.Col, p.Row) {
		expectedFlood(b, n, seen)
	}
}

func TestFloodCompleteness(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	checked := 0
	for range 200 {
		b, err := NewBoard(12, 10, 18, r)
		require.NoError(t, err)
		require.NoError(t, b.Reveal(r.IntN(12), r.IntN(10)))
		if b.Won() {
			continue
		}

		// pick a hidden zero cell and compare against the recursive reference
		var start *Point
		for _, cell := range b.cells {
			if !cell.State.IsRevealed && !cell.State.IsMine && cell.State.Adjacent == 0 {
				start = &Point{cell.Col, cell.Row}
				break
			}
		}
		if start == nil {
			continue
		}

		expected := revealedSet(b)
		expectedFlood(b, *start, expected)
		require.NoError(t, b.Reveal(start.Col, start.Row))
		if b.Won() {
			continue
		}
		assert.Equal(t, expected, revealedSet(b))
		assert.Equal(t, len(expected), b.RevealedCount())
		checked++
	}
	assert.NotZero(t, checked)
}

func TestFloodSkipsFlaggedCells(t *testing.T) {
	b := plantedBoard(t, 4, 4, Point{3, 3})
	b.ToggleFlag(0, 3)
	require.NoError(t, b.Reveal(0, 0))

	revealed := revealedSet(b)
	assert.False(t, revealed[Point{0, 3}])
	assert.True(t, b.cells[b.index(0, 3)].State.IsFlagged)
	assert.Len(t, revealed, 14)
	assert.False(t, b.Won())

	b.ToggleFlag(0, 3)
	require.NoError(t, b.Reveal(0, 3))
	assert.True(t, b.Won())
	assert.Equal(t, 15, b.RevealedCount())
}

func TestRevealMineEndsGame(t *testing.T) {
	b := plantedBoard(t, 4, 4, Point{3, 3}, Point{0, 3})
	b.ToggleFlag(1, 1)
	require.NoError(t, b.Reveal(3, 0))
	require.False(t, b.GameOver())

	before := b.Cells()
	revealedBefore := b.RevealedCount()
	require.NoError(t, b.Reveal(3, 3))

	assert.True(t, b.GameOver())
	assert.False(t, b.Won())
	assert.Equal(t, revealedBefore+1, b.RevealedCount())
	for i, cell := range b.Cells() {
		if cell.State.IsMine {
			assert.True(t, cell.State.IsRevealed, "mine %d:%d", cell.Col, cell.Row)
			continue
		}
		assert.Equal(t, before[i], cell, "safe cell %d:%d changed", cell.Col, cell.Row)
	}
	assert.Equal(t, ExplodedMine, b.Grid()[b.index(3, 3)])
	assert.Equal(t, Mine, b.Grid()[b.index(0, 3)])
	assert.Equal(t, WrongFlag, b.Grid()[b.index(1, 1)])

	// the other mine is already exposed, revealing it again changes nothing
	require.NoError(t, b.Reveal(0, 3))
	assert.Equal(t, revealedBefore+1, b.RevealedCount())
}

func TestWinRequiresEverySafeCell(t *testing.T) {
	b := plantedBoard(t, 3, 3, Point{0, 0})
	b.ToggleFlag(1, 1)
	require.NoError(t, b.Reveal(2, 2))
	assert.False(t, b.Won())
	assert.Equal(t, 7, b.RevealedCount())

	b.ToggleFlag(1, 1)
	require.NoError(t, b.Reveal(1, 1))
	assert.True(t, b.Won())
	assert.False(t, b.GameOver())
	assert.Equal(t, 8, b.RevealedCount())
	for _, cell := range b.Cells() {
		assert.Equal(t, !cell.State.IsMine, cell.State.IsRevealed)
	}
	assert.Equal(t, Mine, b.Grid()[0])
}

func TestFlagLock(t *testing.T) {
	b, err := NewBoard(4, 4, 2, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	b.ToggleFlag(1, 1)
	require.NoError(t, b.Reveal(1, 1))
	assert.Equal(t, Unplaced, b.Phase(), "flagged reveal must not place mines")
	assert.Zero(t, b.RevealedCount())
	assert.Equal(t, 1, b.FlaggedCount())

	b.ToggleFlag(1, 1)
	assert.Zero(t, b.FlaggedCount())
	require.NoError(t, b.Reveal(1, 1))
	require.True(t, b.cells[b.index(1, 1)].State.IsRevealed)

	b.ToggleFlag(1, 1)
	assert.False(t, b.cells[b.index(1, 1)].State.IsFlagged)
	assert.Zero(t, b.FlaggedCount())
}

func TestOutOfBoundsIsNoop(t *testing.T) {
	b, err := NewBoard(3, 3, 0, nil)
	require.NoError(t, err)

	for _, p := range []Point{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {100, 100}} {
		assert.NoError(t, b.Reveal(p.Col, p.Row))
		b.ToggleFlag(p.Col, p.Row)
		b.Chord(p.Col, p.Row)
		_, ok := b.Cell(p.Col, p.Row)
		assert.False(t, ok)
	}
	assert.Equal(t, Unplaced, b.Phase())
	assert.Zero(t, b.FlaggedCount())
}

func TestFlagsAreUnlimited(t *testing.T) {
	b, err := NewBoard(3, 3, 1, nil)
	require.NoError(t, err)
	for row := range 3 {
		for col := range 3 {
			b.ToggleFlag(col, row)
		}
	}
	assert.Equal(t, 9, b.FlaggedCount())
}

func TestChord(t *testing.T) {
	b := plantedBoard(t, 3, 3, Point{0, 0})
	require.NoError(t, b.Reveal(1, 1))
	require.Equal(t, 1, b.RevealedCount())

	// no flags yet
	b.Chord(1, 1)
	assert.Equal(t, 1, b.RevealedCount())

	b.ToggleFlag(0, 0)
	b.Chord(1, 1)
	assert.True(t, b.Won())
	assert.Equal(t, 8, b.RevealedCount())
	assert.Equal(t, CorrectFlag, b.Grid()[0])
}

func TestChordOnWrongFlagLoses(t *testing.T) {
	b := plantedBoard(t, 3, 3, Point{0, 0})
	require.NoError(t, b.Reveal(1, 1))

	b.ToggleFlag(2, 2)
	b.Chord(1, 1)
	assert.True(t, b.GameOver())
	assert.False(t, b.Won())
}

func TestForfeit(t *testing.T) {
	b := plantedBoard(t, 3, 3, Point{0, 0})
	b.Forfeit()
	assert.True(t, b.GameOver())
	assert.True(t, b.cells[0].State.IsRevealed)
	assert.Zero(t, b.RevealedCount())

	won := plantedBoard(t, 2, 2)
	require.NoError(t, won.Reveal(0, 0))
	require.True(t, won.Won())
	won.Forfeit()
	assert.False(t, won.GameOver())
}

func TestGridHidesMines(t *testing.T) {
	b := plantedBoard(t, 3, 3, Point{0, 0})
	b.ToggleFlag(2, 0)
	require.NoError(t, b.Reveal(2, 2))

	assert.Equal(t, ". 1 F\n1 1 0\n0 0 0\n", b.String())
}

func TestParseSeed(t *testing.T) {
	p, err := ParseSeed("16:16:40")
	require.NoError(t, err)
	assert.Equal(t, GameParams{Cols: 16, Rows: 16, MineCount: 40}, *p)
	assert.Equal(t, "16:16:40", p.Seed())

	_, err = ParseSeed("16:16")
	assert.Error(t, err)
	_, err = ParseSeed("a:b:c")
	assert.Error(t, err)
}
