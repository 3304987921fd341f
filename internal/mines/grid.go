package mines

import (
	"fmt"
	"strconv"
	"strings"
)

// CellStatus is what the player gets to see of a cell.
type CellStatus int8

const (
	Unknown      CellStatus = -2
	Flag         CellStatus = -1
	CorrectFlag  CellStatus = 64 // post-game
	ExplodedMine CellStatus = 65
	WrongFlag    CellStatus = 66
	Mine         CellStatus = 67
	// 0-8 for a revealed cell with given number of mined neighbors
)

func (s CellStatus) String() string {
	switch {
	case s == Unknown:
		return "."
	case s == Flag:
		return "F"
	case s == CorrectFlag:
		return "f"
	case s == ExplodedMine:
		return "X"
	case s == WrongFlag:
		return "x"
	case s == Mine:
		return "*"
	case 0 <= s && s <= 8:
		return strconv.Itoa(int(s))
	default:
		return "?"
	}
}

type Grid []CellStatus

func (g Grid) String(width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	for y := range len(g) / width {
		for x := range width {
			if x > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprint(&b, g[y*width+x].String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (b *Board) status(i int) CellStatus {
	state := b.cells[i].State
	ended := b.gameOver || b.win
	switch {
	case i == b.exploded:
		return ExplodedMine
	case state.IsFlagged && ended && state.IsMine:
		return CorrectFlag
	case state.IsFlagged && b.gameOver:
		return WrongFlag
	case state.IsFlagged:
		return Flag
	case state.IsMine && (state.IsRevealed || ended):
		return Mine
	case state.IsRevealed:
		return CellStatus(state.Adjacent)
	default:
		return Unknown
	}
}

// Grid returns the player's view of the board. Mines stay hidden until the
// game ends.
func (b *Board) Grid() Grid {
	grid := make(Grid, len(b.cells))
	for i := range b.cells {
		grid[i] = b.status(i)
	}
	return grid
}

func (b *Board) String() string {
	return b.Grid().String(b.cols)
}
