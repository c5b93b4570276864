// Package board implements the Battleship grid: ship placement, shot
// resolution, and the rendered views sent to a board's owner and to
// spectators.
package board

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// cellState is the hidden-grid truth for one cell.
type cellState int

const (
	cellEmpty cellState = iota
	cellShip
	cellHit
	cellMiss
)

// FireResult reports the outcome of a shot.
type FireResult int

const (
	ResultMiss FireResult = iota
	ResultHit
	ResultSunk
	ResultAlreadyShot
)

func (r FireResult) String() string {
	switch r {
	case ResultMiss:
		return "miss"
	case ResultHit:
		return "hit"
	case ResultSunk:
		return "sunk"
	case ResultAlreadyShot:
		return "already_shot"
	default:
		return "unknown"
	}
}

// ErrOccupied is returned by Place when the requested cells overlap an
// existing ship or run off the grid.
var ErrOccupied = errors.New("board: cells occupied or out of bounds")

// Board is one player's 10x10 grid: the hidden truth (ship positions,
// hits, misses) and the bookkeeping needed to answer AllSunk.
type Board struct {
	cells [Size][Size]cellState
	ships []*ship
}

// NewBoard returns an empty board with no ships placed.
func NewBoard() *Board {
	return &Board{}
}

// CanPlace reports whether a ship of length shipLen fits at (row, col)
// in the given orientation without running off the grid or overlapping
// another ship.
func (b *Board) CanPlace(row, col, shipLen int, o Orientation) bool {
	cells, ok := shipCells(row, col, shipLen, o)
	if !ok {
		return false
	}
	for _, c := range cells {
		if b.cells[c.Row][c.Col] != cellEmpty {
			return false
		}
	}
	return true
}

func shipCells(row, col, shipLen int, o Orientation) ([]Coord, bool) {
	cells := make([]Coord, 0, shipLen)
	if o == Horizontal {
		if col+shipLen > Size || row < 0 || row >= Size {
			return nil, false
		}
		for c := col; c < col+shipLen; c++ {
			cells = append(cells, Coord{Row: row, Col: c})
		}
	} else {
		if row+shipLen > Size || col < 0 || col >= Size {
			return nil, false
		}
		for r := row; r < row+shipLen; r++ {
			cells = append(cells, Coord{Row: r, Col: col})
		}
	}
	return cells, true
}

// Place installs a ship of class sc at (row, col) in orientation o.
// Returns ErrOccupied if it doesn't fit.
func (b *Board) Place(sc ShipClass, row, col int, o Orientation) error {
	cells, ok := shipCells(row, col, sc.Len, o)
	if !ok {
		return ErrOccupied
	}
	for _, c := range cells {
		if b.cells[c.Row][c.Col] != cellEmpty {
			return ErrOccupied
		}
	}

	remaining := make(map[Coord]struct{}, len(cells))
	for _, c := range cells {
		b.cells[c.Row][c.Col] = cellShip
		remaining[c] = struct{}{}
	}
	b.ships = append(b.ships, &ship{class: sc, remaining: remaining})
	return nil
}

// PlaceRandom scatters the full Fleet across the board using random
// positions and orientations, retrying until every ship fits. Intended
// for players who skip manual placement or for filling an AI/disconnected
// seat.
func (b *Board) PlaceRandom(rng *rand.Rand) {
	b.PlaceRemainingRandom(rng)
}

// PlaceRemainingRandom randomly places whichever Fleet ships aren't
// already on the board, leaving any manually-placed ships untouched.
// Used when a setup timer expires mid-manual-placement.
func (b *Board) PlaceRemainingRandom(rng *rand.Rand) {
	placed := make(map[string]bool, len(b.ships))
	for _, s := range b.ships {
		placed[s.class.Name] = true
	}
	for _, sc := range Fleet {
		if placed[sc.Name] {
			continue
		}
		for {
			o := Orientation(rng.Intn(2))
			row := rng.Intn(Size)
			col := rng.Intn(Size)
			if b.CanPlace(row, col, sc.Len, o) {
				_ = b.Place(sc, row, col, o)
				break
			}
		}
	}
}

// FireAt resolves a shot at (row, col): marks the cell, checks whether
// it sank a ship, and reports which. sunkName is only meaningful when
// result is ResultSunk.
func (b *Board) FireAt(row, col int) (result FireResult, sunkName string) {
	switch b.cells[row][col] {
	case cellShip:
		b.cells[row][col] = cellHit
		name := b.markHitAndCheckSunk(Coord{Row: row, Col: col})
		if name != "" {
			return ResultSunk, name
		}
		return ResultHit, ""
	case cellEmpty:
		b.cells[row][col] = cellMiss
		return ResultMiss, ""
	default:
		return ResultAlreadyShot, ""
	}
}

func (b *Board) markHitAndCheckSunk(c Coord) string {
	for _, s := range b.ships {
		if _, ok := s.remaining[c]; ok {
			delete(s.remaining, c)
			if s.sunk() {
				return s.class.Name
			}
			return ""
		}
	}
	return ""
}

// IsShot reports whether (row, col) has already been fired at.
func (b *Board) IsShot(row, col int) bool {
	switch b.cells[row][col] {
	case cellHit, cellMiss:
		return true
	default:
		return false
	}
}

// AllSunk reports whether every placed ship has been fully hit.
func (b *Board) AllSunk() bool {
	for _, s := range b.ships {
		if !s.sunk() {
			return false
		}
	}
	return len(b.ships) > 0
}

// ShipCount reports how many ships have been placed so far, used by
// tests to confirm a full fleet was placed.
func (b *Board) ShipCount() int {
	return len(b.ships)
}

// Render draws the grid as the line-oriented text the client expects:
// a two-character column header row, then one row per A-J label. When
// hideShips is true (the view sent to an opponent or spectator before
// a ship is sunk), unhit ship cells are rendered as water so the
// fleet's layout stays secret. The grid is followed by a blank line,
// the sentinel the client's reader uses to know a board view is complete.
func (b *Board) Render(hideShips bool) string {
	var sb strings.Builder

	sb.WriteString("  ")
	for i := 1; i <= Size; i++ {
		fmt.Fprintf(&sb, "%2d", i)
	}
	sb.WriteByte('\n')

	for r := 0; r < Size; r++ {
		fmt.Fprintf(&sb, "%c ", 'A'+rune(r))
		for c := 0; c < Size; c++ {
			sb.WriteByte(' ')
			sb.WriteByte(b.glyph(r, c, hideShips))
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (b *Board) glyph(row, col int, hideShips bool) byte {
	switch b.cells[row][col] {
	case cellHit:
		return 'X'
	case cellMiss:
		return 'o'
	case cellShip:
		if hideShips {
			return '.'
		}
		return 'S'
	default:
		return '.'
	}
}
