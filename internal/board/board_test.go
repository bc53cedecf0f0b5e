package board

import "testing"

// boardFromMines builds a ground-truth board from 0-based mine positions.
func boardFromMines(height, width int, mines []Cell) [][]int {
	b := New(height, width)
	for _, m := range mines {
		b[m.Row][m.Col] = Mine
	}
	CalNumbers(b)
	return b
}

func TestCalNumbers(t *testing.T) {
	b := boardFromMines(3, 3, []Cell{{Row: 1, Col: 1}})

	want := [][]int{
		{1, 1, 1},
		{1, Mine, 1},
		{1, 1, 1},
	}
	for x := range want {
		for y := range want[x] {
			if b[x][y] != want[x][y] {
				t.Errorf("cell (%d,%d) = %d, want %d", x, y, b[x][y], want[x][y])
			}
		}
	}
}

func TestStaticMetrics(t *testing.T) {
	tests := []struct {
		name   string
		height int
		width  int
		mines  []Cell
		bbbv   int
		op     int
		isl    int
	}{
		{
			name:   "corner mines one opening",
			height: 5, width: 5,
			mines: []Cell{{Row: 0, Col: 0}, {Row: 4, Col: 4}},
			bbbv:  1, op: 1, isl: 0,
		},
		{
			name:   "mine row splits board",
			height: 4, width: 4,
			mines: []Cell{{Row: 0, Col: 0}, {Row: 0, Col: 3}},
			// Cells (0,1) and (0,2) have no zero neighbor and count on
			// their own, plus the single opening below.
			bbbv: 3, op: 1, isl: 1,
		},
		{
			name:   "no mines single opening",
			height: 3, width: 3,
			mines: nil,
			bbbv:  1, op: 1, isl: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := boardFromMines(tt.height, tt.width, tt.mines)
			if got := CalBBBV(b); got != tt.bbbv {
				t.Errorf("CalBBBV() = %d, want %d", got, tt.bbbv)
			}
			if got := CalOp(b); got != tt.op {
				t.Errorf("CalOp() = %d, want %d", got, tt.op)
			}
			if got := CalIsl(b); got != tt.isl {
				t.Errorf("CalIsl() = %d, want %d", got, tt.isl)
			}
		})
	}
}

func TestOpenFloodsOpening(t *testing.T) {
	b := boardFromMines(4, 4, []Cell{{Row: 0, Col: 0}})
	gb := NewGameBoard(4, 4)

	Open(b, gb, []Cell{{Row: 3, Col: 3}})

	// The single opening covers every non-mine cell; only the mine stays
	// closed.
	for x := range gb {
		for y := range gb[x] {
			if x == 0 && y == 0 {
				if gb[x][y] != Unopened {
					t.Errorf("mine cell opened: %d", gb[x][y])
				}
				continue
			}
			if gb[x][y] != b[x][y] {
				t.Errorf("cell (%d,%d) = %d, want %d", x, y, gb[x][y], b[x][y])
			}
		}
	}
}

func TestOpenFlaggedCellBlocksFlood(t *testing.T) {
	b := boardFromMines(4, 4, []Cell{{Row: 0, Col: 0}})
	gb := NewGameBoard(4, 4)
	gb[2][2] = Flagged

	Open(b, gb, []Cell{{Row: 3, Col: 3}})

	if gb[2][2] != Flagged {
		t.Errorf("flagged cell = %d, want %d", gb[2][2], Flagged)
	}
}

func TestOpenNumberDoesNotFlood(t *testing.T) {
	b := boardFromMines(4, 4, []Cell{{Row: 0, Col: 0}})
	gb := NewGameBoard(4, 4)

	Open(b, gb, []Cell{{Row: 0, Col: 1}})

	if gb[0][1] != 1 {
		t.Errorf("clicked cell = %d, want 1", gb[0][1])
	}
	if gb[0][2] != Unopened {
		t.Errorf("neighbor opened by a number click: %d", gb[0][2])
	}
}

func TestMineNumAndCellNums(t *testing.T) {
	b := boardFromMines(4, 4, []Cell{{Row: 0, Col: 0}, {Row: 0, Col: 3}})

	if got := MineNum(b); got != 2 {
		t.Errorf("MineNum() = %d, want 2", got)
	}
	nums := CalCellNums(b)
	total := 0
	for _, n := range nums {
		total += n
	}
	if total != 14 {
		t.Errorf("cell count = %d, want 14", total)
	}
	if nums[0] != 8 {
		t.Errorf("zero cells = %d, want 8", nums[0])
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := boardFromMines(3, 3, []Cell{{Row: 1, Col: 1}})
	c := Clone(b)
	c[0][0] = 9
	if b[0][0] == 9 {
		t.Error("Clone shares backing storage")
	}
}
