package entity

import (
	"fmt"
	"strings"
)

// Cell is the content of one grid position.
type Cell string

const (
	Empty Cell = ""
	X     Cell = "X"
	O     Cell = "O"
)

// BoardSize is the number of cells on the grid.
const BoardSize = 9

// WinCombos are checked in this order; the first completed line decides the winner.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

func (that Cell) IsValid() bool {
	return that == Empty || that == X || that == O
}

// Board is a row-major snapshot of the grid. It is a value: copying a Board copies every cell.
type Board [BoardSize]Cell

// CalculateWinner returns the mark that completed a line, or Empty.
func CalculateWinner(board Board) Cell {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != Empty && a == b && b == c {
			return a
		}
	}

	return Empty
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == Empty {
			return false
		}
	}

	return true
}

// Place returns a copy of the board with mark at index.
func (that Board) Place(index int, mark Cell) Board {
	that[index] = mark
	return that
}

func (that Board) Validate() error {
	for i, cell := range that {
		if !cell.IsValid() {
			return fmt.Errorf("cell %d has unknown mark %q", i, string(cell))
		}
	}

	return nil
}

// String renders the board as three rows separated by '/', with '.' for empty cells.
func (that Board) String() string {
	var sb strings.Builder

	for i, cell := range that {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('/')
		}

		if cell == Empty {
			sb.WriteByte('.')
			continue
		}

		sb.WriteString(string(cell))
	}

	return sb.String()
}
