package mines

import (
	"log/slog"
	"math/rand/v2"

	"github.com/gammazero/deque"
)

var Log *slog.Logger = slog.Default()

type Point struct {
	Col, Row int
}

type CellState struct {
	IsMine     bool
	IsRevealed bool
	IsFlagged  bool
	Adjacent   int // mined neighbors, only meaningful for non-mine cells
}

type Cell struct {
	Col, Row int
	State    CellState
}

// Phase tracks the lazy mine placement. A board is created Unplaced and the
// first successful reveal moves it to Placed.
type Phase uint8

const (
	Unplaced Phase = iota
	Placed
)

func (p Phase) String() string {
	switch p {
	case Unplaced:
		return "unplaced"
	case Placed:
		return "placed"
	default:
		return "unknown"
	}
}

// neighborOffsets enumerates the Moore neighborhood row by row.
var neighborOffsets = [8]Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Board holds the cells of one game and enforces the rules. It is not safe
// for concurrent use.
type Board struct {
	cols, rows, mineCount int

	cells         []Cell // row-major
	phase         Phase
	revealedCount int
	gameOver, win bool
	exploded      int // index of the mine that ended the game, -1 if none

	rnd *rand.Rand
}

// NewBoard allocates a cols x rows board with every cell hidden and empty.
// Mines are placed by the first call to [Board.Reveal]. A nil r uses the
// package-level generator of math/rand/v2.
func NewBoard(cols, rows, mineCount int, r *rand.Rand) (*Board, error) {
	params := GameParams{Cols: cols, Rows: rows, MineCount: mineCount}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, cols*rows)
	for row := range rows {
		for col := range cols {
			cells = append(cells, Cell{Col: col, Row: row})
		}
	}

	return &Board{
		cols:      cols,
		rows:      rows,
		mineCount: mineCount,
		cells:     cells,
		exploded:  -1,
		rnd:       r,
	}, nil
}

func (p GameParams) NewBoard(r *rand.Rand) (*Board, error) {
	return NewBoard(p.Cols, p.Rows, p.MineCount, r)
}

func (b *Board) Cols() int          { return b.cols }
func (b *Board) Rows() int          { return b.rows }
func (b *Board) MineCount() int     { return b.mineCount }
func (b *Board) Phase() Phase       { return b.phase }
func (b *Board) MinesPlaced() bool  { return b.phase == Placed }
func (b *Board) RevealedCount() int { return b.revealedCount }
func (b *Board) GameOver() bool     { return b.gameOver }
func (b *Board) Won() bool          { return b.win }

func (b *Board) Params() GameParams {
	return GameParams{Cols: b.cols, Rows: b.rows, MineCount: b.mineCount}
}

// Cells returns a row-major copy of the board cells.
func (b *Board) Cells() []Cell {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return cells
}

func (b *Board) Cell(col, row int) (Cell, bool) {
	if !b.InBounds(col, row) {
		return Cell{}, false
	}
	return b.cells[b.index(col, row)], true
}

func (b *Board) index(col, row int) int {
	return row*b.cols + col
}

func (b *Board) InBounds(col, row int) bool {
	return 0 <= col && col < b.cols && 0 <= row && row < b.rows
}

// Neighbors returns the in-bounds cells around col:row in a fixed order.
func (b *Board) Neighbors(col, row int) []Point {
	result := make([]Point, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nc, nr := col+d.Col, row+d.Row
		if b.InBounds(nc, nr) {
			result = append(result, Point{nc, nr})
		}
	}
	return result
}

// SetRand replaces the generator used by mine placement, e.g. after the
// board has been decoded.
func (b *Board) SetRand(r *rand.Rand) {
	b.rnd = r
}

func (b *Board) shuffle(n int, swap func(i, j int)) {
	if b.rnd != nil {
		b.rnd.Shuffle(n, swap)
	} else {
		rand.Shuffle(n, swap)
	}
}

// placeMines puts mineCount mines anywhere except safeCol:safeRow and its
// neighbors, then computes adjacency for every safe cell. On error the board
// is left untouched.
func (b *Board) placeMines(safeCol, safeRow int) error {
	forbidden := make([]bool, len(b.cells))
	forbidden[b.index(safeCol, safeRow)] = true
	for _, p := range b.Neighbors(safeCol, safeRow) {
		forbidden[b.index(p.Col, p.Row)] = true
	}

	pool := make([]int, 0, len(b.cells))
	for i := range b.cells {
		if !forbidden[i] {
			pool = append(pool, i)
		}
	}

	if b.mineCount > len(pool) {
		return &PlacementError{
			Col: safeCol, Row: safeRow,
			MineCount: b.mineCount,
			Capacity:  len(pool),
		}
	}

	b.shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for _, i := range pool[:b.mineCount] {
		b.cells[i].State.IsMine = true
	}

	b.computeAdjacency()

	b.phase = Placed
	Log.Debug("mines placed",
		slog.Int("cols", b.cols), slog.Int("rows", b.rows),
		slog.Int("mines", b.mineCount),
		slog.Int("safeCol", safeCol), slog.Int("safeRow", safeRow))
	return nil
}

func (b *Board) computeAdjacency() {
	for i := range b.cells {
		cell := &b.cells[i]
		if cell.State.IsMine {
			continue
		}
		count := 0
		for _, p := range b.Neighbors(cell.Col, cell.Row) {
			if b.cells[b.index(p.Col, p.Row)].State.IsMine {
				count++
			}
		}
		cell.State.Adjacent = count
	}
}

// Reveal opens col:row. Out-of-bounds, revealed and flagged cells are
// ignored. The first reveal places the mines around col:row and only fails
// when they do not fit; the board is then left unplaced.
func (b *Board) Reveal(col, row int) error {
	if !b.InBounds(col, row) {
		return nil
	}
	state := b.cells[b.index(col, row)].State
	if state.IsRevealed || state.IsFlagged {
		return nil
	}

	if b.phase == Unplaced {
		if err := b.placeMines(col, row); err != nil {
			return err
		}
	}

	var work deque.Deque[Point]
	work.PushBack(Point{col, row})
	for work.Len() != 0 {
		p := work.PopBack()

		i := b.index(p.Col, p.Row)
		current := &b.cells[i].State
		if current.IsRevealed || current.IsFlagged {
			continue
		}
		current.IsRevealed = true
		b.revealedCount++

		if current.IsMine {
			b.gameOver = true
			b.exploded = i
			b.revealAllMines()
			return nil
		}

		if current.Adjacent == 0 {
			for _, n := range b.Neighbors(p.Col, p.Row) {
				ns := b.cells[b.index(n.Col, n.Row)].State
				if !ns.IsRevealed && !ns.IsFlagged {
					work.PushBack(n)
				}
			}
		}
	}

	b.checkWin()
	return nil
}

// revealAllMines exposes every mine without touching revealedCount.
func (b *Board) revealAllMines() {
	for i := range b.cells {
		if b.cells[i].State.IsMine {
			b.cells[i].State.IsRevealed = true
		}
	}
}

func (b *Board) checkWin() {
	if b.gameOver || b.revealedCount != b.cols*b.rows-b.mineCount {
		return
	}
	b.win = true
	for i := range b.cells {
		state := &b.cells[i].State
		if !state.IsRevealed && !state.IsMine {
			state.IsRevealed = true
		}
	}
}

// ToggleFlag flips the flag on a hidden cell. The number of flags is not
// limited by the mine count.
func (b *Board) ToggleFlag(col, row int) {
	if !b.InBounds(col, row) {
		return
	}
	state := &b.cells[b.index(col, row)].State
	if state.IsRevealed {
		return
	}
	state.IsFlagged = !state.IsFlagged
}

func (b *Board) FlaggedCount() int {
	count := 0
	for _, cell := range b.cells {
		if cell.State.IsFlagged {
			count++
		}
	}
	return count
}

// Chord reveals the hidden unflagged neighbors of a revealed number once the
// player has flagged as many neighbors as the number says.
func (b *Board) Chord(col, row int) {
	if !b.InBounds(col, row) || b.phase == Unplaced {
		return
	}
	state := b.cells[b.index(col, row)].State
	if !state.IsRevealed || state.IsMine || state.Adjacent == 0 {
		return
	}

	flags := 0
	targets := make([]Point, 0, 8)
	for _, n := range b.Neighbors(col, row) {
		ns := b.cells[b.index(n.Col, n.Row)].State
		if ns.IsFlagged {
			flags++
		} else if !ns.IsRevealed {
			targets = append(targets, n)
		}
	}
	if flags != state.Adjacent {
		return
	}

	for _, t := range targets {
		// mines are placed, so Reveal cannot fail here
		_ = b.Reveal(t.Col, t.Row)
		if b.gameOver || b.win {
			return
		}
	}
}

// Forfeit ends a game that is still in progress as a loss.
func (b *Board) Forfeit() {
	if b.gameOver || b.win {
		return
	}
	b.gameOver = true
	b.revealAllMines()
}

// SafeUnrevealed lists the hidden cells without a mine. Before placement
// that is every hidden cell.
func (b *Board) SafeUnrevealed() []Point {
	result := make([]Point, 0)
	for _, cell := range b.cells {
		if !cell.State.IsMine && !cell.State.IsRevealed {
			result = append(result, Point{cell.Col, cell.Row})
		}
	}
	return result
}
