// Package board holds the two minesweeper matrices and the pure geometry
// predicates over them.
//
// The ground-truth board uses -1 for a mine and 0..8 for the adjacent-mine
// count. The visible board uses 0..8 for an opened number, 10 for an
// unopened cell, 11 for a flag and 16 for a mine revealed after a loss.
package board

// Cell values shared by the ground-truth and visible boards.
const (
	Mine      = -1
	Unopened  = 10
	Flagged   = 11
	MineShown = 16
)

// Cell is a (row, column) position.
type Cell struct {
	Row int
	Col int
}

// New returns a height x width ground-truth board of zeros.
func New(height, width int) [][]int {
	b := make([][]int, height)
	for i := range b {
		b[i] = make([]int, width)
	}
	return b
}

// NewGameBoard returns a height x width visible board with every cell unopened.
func NewGameBoard(height, width int) [][]int {
	gb := make([][]int, height)
	for i := range gb {
		gb[i] = make([]int, width)
		for j := range gb[i] {
			gb[i][j] = Unopened
		}
	}
	return gb
}

// Clone deep-copies a board matrix.
func Clone(b [][]int) [][]int {
	c := make([][]int, len(b))
	for i := range b {
		c[i] = make([]int, len(b[i]))
		copy(c[i], b[i])
	}
	return c
}

// CalNumbers fills in the numeric cells of a board that has only mines set,
// by summing mine flags over each cell's 8-neighborhood.
func CalNumbers(b [][]int) {
	height := len(b)
	if height == 0 {
		return
	}
	width := len(b[0])
	for x := 0; x < height; x++ {
		for y := 0; y < width; y++ {
			if b[x][y] != Mine {
				continue
			}
			for i := max(1, x) - 1; i < min(height, x+2); i++ {
				for j := max(1, y) - 1; j < min(width, y+2); j++ {
					if b[i][j] >= 0 {
						b[i][j]++
					}
				}
			}
		}
	}
}

// IsOpeningRoot reports whether the numbered cell at (x, y) counts toward
// 3BV: a cell greater than zero with no zero-count cell in its neighborhood.
// Zero cells themselves never count (the opening they belong to counts once).
func IsOpeningRoot(b [][]int, x, y int) bool {
	if b[x][y] <= 0 {
		return false
	}
	for i := max(1, x) - 1; i < min(len(b), x+2); i++ {
		for j := max(1, y) - 1; j < min(len(b[0]), y+2); j++ {
			if b[i][j] == 0 {
				return false
			}
		}
	}
	return true
}
