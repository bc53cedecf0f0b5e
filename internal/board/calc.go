package board

import "github.com/gammazero/deque"

// Open reveals the given clicked cells on the visible board in place. A
// revealed cell takes its ground-truth value; a revealed zero floods its
// whole connected region, including the numbered boundary. Flagged cells
// block the flood.
func Open(b, gb [][]int, cells []Cell) {
	height := len(b)
	width := len(b[0])
	var q deque.Deque[Cell]
	for _, c := range cells {
		gb[c.Row][c.Col] = b[c.Row][c.Col]
		if b[c.Row][c.Col] == 0 {
			q.PushBack(c)
		}
	}
	for q.Len() > 0 {
		c := q.PopFront()
		for i := max(1, c.Row) - 1; i < min(height, c.Row+2); i++ {
			for j := max(1, c.Col) - 1; j < min(width, c.Col+2); j++ {
				if gb[i][j] != Unopened {
					continue
				}
				gb[i][j] = b[i][j]
				if b[i][j] == 0 {
					q.PushBack(Cell{Row: i, Col: j})
				}
			}
		}
	}
}

// CalOp returns the number of openings: connected regions of zero cells.
func CalOp(b [][]int) int {
	return countRegions(b, func(v int) bool { return v == 0 })
}

// CalIsl returns the number of islands: connected regions of numbered cells
// that do not touch any opening.
func CalIsl(b [][]int) int {
	return countRegions(b, func(v int) bool { return v > 0 }, isolatedOnly(b))
}

// CalBBBV returns the board's 3BV: one per opening plus one per numbered
// cell with no zero neighbor.
func CalBBBV(b [][]int) int {
	bbbv := CalOp(b)
	for x := range b {
		for y := range b[x] {
			if IsOpeningRoot(b, x, y) {
				bbbv++
			}
		}
	}
	return bbbv
}

// CalCellNums returns the per-digit cell-count histogram of a ground-truth
// board. Mines are not counted.
func CalCellNums(b [][]int) [9]int {
	var nums [9]int
	for x := range b {
		for y := range b[x] {
			if b[x][y] >= 0 {
				nums[b[x][y]]++
			}
		}
	}
	return nums
}

// MineNum returns the number of mines on a ground-truth board.
func MineNum(b [][]int) int {
	n := 0
	for x := range b {
		for y := range b[x] {
			if b[x][y] == Mine {
				n++
			}
		}
	}
	return n
}

// countRegions labels 8-connected components of cells accepted by member,
// optionally restricted by extra filters, and returns the component count.
func countRegions(b [][]int, member func(int) bool, filters ...func(x, y int) bool) int {
	height := len(b)
	if height == 0 {
		return 0
	}
	width := len(b[0])
	accept := func(x, y int) bool {
		if !member(b[x][y]) {
			return false
		}
		for _, f := range filters {
			if !f(x, y) {
				return false
			}
		}
		return true
	}

	seen := make([][]bool, height)
	for i := range seen {
		seen[i] = make([]bool, width)
	}
	regions := 0
	var q deque.Deque[Cell]
	for x := 0; x < height; x++ {
		for y := 0; y < width; y++ {
			if seen[x][y] || !accept(x, y) {
				continue
			}
			regions++
			seen[x][y] = true
			q.PushBack(Cell{Row: x, Col: y})
			for q.Len() > 0 {
				c := q.PopFront()
				for i := max(1, c.Row) - 1; i < min(height, c.Row+2); i++ {
					for j := max(1, c.Col) - 1; j < min(width, c.Col+2); j++ {
						if !seen[i][j] && accept(i, j) {
							seen[i][j] = true
							q.PushBack(Cell{Row: i, Col: j})
						}
					}
				}
			}
		}
	}
	return regions
}

// isolatedOnly accepts numbered cells with no zero cell in their neighborhood.
func isolatedOnly(b [][]int) func(x, y int) bool {
	return func(x, y int) bool {
		return IsOpeningRoot(b, x, y)
	}
}
