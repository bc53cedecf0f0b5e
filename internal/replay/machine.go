package replay

import (
	"errors"
	"fmt"

	"github.com/Minesweeper-World/msreplay/internal/board"
)

// ErrImpossibleTransition reports a (state, action) pair that cannot occur
// on physically coherent two-button hardware. It signals a corrupt
// recording.
var ErrImpossibleTransition = errors.New("impossible mouse state transition")

// Machine replays one button event at a time against the two board
// matrices. It has no notion of time or pixels; callers divide pixel
// coordinates down to cells first. The machine counts left, right and
// chord clicks, effective clicks, flags and solved 3BV online, so the same
// type serves live play and batch replay with identical trajectories.
//
// Flagging the same mine twice is a single effective click: mines that were
// ever flagged are remembered and repeats are free.
type Machine struct {
	// Board is the immutable ground truth.
	Board [][]int
	// GameBoard is the player-visible board, mutated only by Step.
	GameBoard [][]int
	Rows      int
	Cols      int

	// Running counters.
	Left       int
	Right      int
	Double     int
	CE         int
	Flag       int
	BBBVSolved int

	Mouse MouseState
	Phase Phase

	flagged    []board.Cell // mines that have ever been flagged
	pointerX   int          // win-scan cursor, only ever advances
	pointerY   int
	preFlagNum int
	middleHold bool
}

// NewMachine builds a machine over a ground-truth board with an all-unopened
// visible board.
func NewMachine(b [][]int) *Machine {
	rows := len(b)
	cols := len(b[0])
	return &Machine{
		Board:     b,
		GameBoard: board.NewGameBoard(rows, cols),
		Rows:      rows,
		Cols:      cols,
		Mouse:     StateUpUp,
		Phase:     PhaseReady,
	}
}

// Reset restores the visible board, button state and counters to their
// initial values. The ground truth and dimensions stay fixed.
func (m *Machine) Reset() {
	m.GameBoard = board.NewGameBoard(m.Rows, m.Cols)
	m.flagged = nil
	m.Left = 0
	m.Right = 0
	m.Double = 0
	m.CE = 0
	m.Flag = 0
	m.BBBVSolved = 0
	m.Mouse = StateUpUp
	m.Phase = PhaseReady
	m.pointerX = 0
	m.pointerY = 0
	m.preFlagNum = 0
	m.middleHold = false
}

// outside reports the designated outside-the-board sentinel cell.
func (m *Machine) outside(pos board.Cell) bool {
	return pos.Row == m.Rows && pos.Col == m.Cols
}

// Step applies one action at a logical cell and returns the effect level.
// Cell (Rows, Cols) is the outside-the-board sentinel. Undefined
// (state, action) pairs return ErrImpossibleTransition.
func (m *Machine) Step(e Action, pos board.Cell) (int, error) {
	if m.outside(pos) && (e == ActionRightDown || e == ActionLeftDown || e == ActionChordDown) {
		// Presses outside the board never reach the machine from a real UI.
		return LevelNone, nil
	}
	switch m.Phase {
	case PhaseReady:
		return m.stepReady(e, pos)
	case PhasePreFlagging:
		done, level, err := m.stepPreFlagging(e, pos)
		if done {
			return level, err
		}
	case PhasePlaying:
	default:
		// Win, Loss and Display absorb everything.
		return LevelNone, nil
	}
	return m.stepPlaying(e, pos)
}

// stepReady handles the phase before any click bookkeeping has started.
// Every arm resolves here; nothing falls through to the playing table.
func (m *Machine) stepReady(e Action, pos board.Cell) (int, error) {
	switch e {
	case ActionMove:
		return LevelNone, nil
	case ActionLeftDown:
		switch m.Mouse {
		case StateUpUp:
			m.Phase = PhasePreFlagging
			m.Mouse = StateDownUp
		case StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		default:
			return LevelNone, ErrImpossibleTransition
		}
		return LevelNone, nil
	case ActionPreFlag:
		if m.GameBoard[pos.Row][pos.Col] != board.Unopened {
			return LevelNone, fmt.Errorf("pre-flag on a non-flaggable cell: %w", ErrImpossibleTransition)
		}
		m.preFlagNum++
		m.Phase = PhasePreFlagging
		return m.rightClick(pos.Row, pos.Col)
	case ActionRightDown:
		switch m.Mouse {
		case StateUpUp:
			m.preFlagNum = 1
			m.Phase = PhasePreFlagging
			m.Mouse = StateUpDown
			return m.rightClick(pos.Row, pos.Col)
		case StateDownUpAfterChording:
			m.Mouse = StateChording
			return LevelNone, nil
		default:
			return LevelNone, ErrImpossibleTransition
		}
	case ActionLeftUp:
		switch m.Mouse {
		case StateChording, StateChordingNotFlag:
			m.Mouse = StateUpDown
			return LevelNone, nil
		case StateDownUpAfterChording:
			m.Mouse = StateUpUp
			return LevelNone, nil
		default:
			return LevelNone, ErrImpossibleTransition
		}
	case ActionRightUp:
		switch m.Mouse {
		case StateUpDown:
			m.Mouse = StateUpUp
			return LevelNone, nil
		case StateChording:
			m.Mouse = StateDownUpAfterChording
			return LevelNone, nil
		default:
			return LevelNone, ErrImpossibleTransition
		}
	case ActionChordDown:
		switch m.Mouse {
		case StateDownUp, StateDownUpAfterChording, StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		default:
			return LevelNone, ErrImpossibleTransition
		}
		return LevelNone, nil
	default:
		return LevelNone, ErrImpossibleTransition
	}
}

// stepPreFlagging handles flag bookkeeping before the first open. When done
// is false the action still has to run through the playing table (possibly
// after a state update here), matching live-play behavior exactly.
func (m *Machine) stepPreFlagging(e Action, pos board.Cell) (done bool, level int, err error) {
	switch e {
	case ActionLeftDown, ActionRightUp, ActionMove:
		// Same as the playing table; only the click counting matters.
		return false, 0, nil
	case ActionLeftUp:
		switch m.Mouse {
		case StateDownUp:
			if m.outside(pos) {
				m.Mouse = StateUpUp
				if m.preFlagNum == 0 {
					m.Phase = PhaseReady
					m.clearClickNum()
				}
				return true, LevelNone, nil
			}
			if m.GameBoard[pos.Row][pos.Col] == board.Unopened {
				m.Phase = PhasePlaying
			} else {
				return true, LevelNone, nil
			}
		case StateChording, StateDownUpAfterChording, StateChordingNotFlag, StateUpUp, StateUndefined:
		default:
			return true, LevelNone, ErrImpossibleTransition
		}
		return false, 0, nil
	case ActionPreFlag:
		if m.GameBoard[pos.Row][pos.Col] != board.Unopened {
			return true, LevelNone, fmt.Errorf("pre-flag on a non-flaggable cell: %w", ErrImpossibleTransition)
		}
		m.preFlagNum++
		level, err = m.rightClick(pos.Row, pos.Col)
		return true, level, err
	case ActionRightDown:
		switch m.Mouse {
		case StateUpUp:
			m.Mouse = StateUpDown
			if m.GameBoard[pos.Row][pos.Col] == board.Unopened {
				m.preFlagNum++
				m.Phase = PhasePreFlagging
				level, err = m.rightClick(pos.Row, pos.Col)
				return true, level, err
			}
			m.preFlagNum--
			if m.preFlagNum == 0 {
				// The last pre-flag was taken back: the game never started.
				m.Phase = PhaseReady
				m.clearClickNum()
				m.GameBoard[pos.Row][pos.Col] = board.Unopened
				return true, LevelNone, nil
			}
			level, err = m.rightClick(pos.Row, pos.Col)
			return true, level, err
		case StateDownUp:
			if m.preFlagNum == 0 {
				m.Phase = PhaseReady
			}
			m.Mouse = StateChording
		case StateDownUpAfterChording:
			m.Mouse = StateChording
		default:
			return true, LevelNone, ErrImpossibleTransition
		}
		return false, 0, nil
	case ActionChordDown:
		switch m.Mouse {
		case StateDownUp:
			if m.preFlagNum == 0 {
				m.Phase = PhaseReady
			}
			m.Mouse = StateChording
		case StateDownUpAfterChording, StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		default:
			return true, LevelNone, ErrImpossibleTransition
		}
		return true, LevelNone, nil
	default:
		return true, LevelNone, ErrImpossibleTransition
	}
}

// stepPlaying is the full transition table over the low-level tags. Arms
// marked as unreachable keep the original live-play tolerance: states that
// cannot arise from coherent hardware are absorbed rather than rejected
// once the game is underway.
func (m *Machine) stepPlaying(e Action, pos board.Cell) (int, error) {
	switch e {
	case ActionLeftDown:
		switch m.Mouse {
		case StateUpUp:
			m.Mouse = StateDownUp
		case StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		case StateUndefined:
			m.Mouse = StateDownUp
		}
	case ActionLeftUp:
		switch m.Mouse {
		case StateDownUp:
			m.Mouse = StateUpUp
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.leftClick(pos.Row, pos.Col)
		case StateChording:
			m.Mouse = StateUpDown
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateDownUpAfterChording:
			m.Mouse = StateUpUp
		case StateChordingNotFlag:
			m.Mouse = StateUpDown
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateUpUp, StateUndefined:
			m.Mouse = StateUpUp
		}
	case ActionLeft:
		switch m.Mouse {
		case StateDownUp:
			m.Mouse = StateUpUp
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.leftClick(pos.Row, pos.Col)
		case StateChording:
			m.Mouse = StateUpDown
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateDownUpAfterChording:
			m.Mouse = StateUpUp
		case StateChordingNotFlag:
			m.Mouse = StateUpDown
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateUpUp:
			m.Mouse = StateDownUp
		case StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		case StateUndefined:
			m.Mouse = StateUpUp
		}
	case ActionRightDown:
		switch m.Mouse {
		case StateUpUp:
			if m.GameBoard[pos.Row][pos.Col] < board.Unopened {
				m.Mouse = StateUpDownNotFlag
			} else {
				m.Mouse = StateUpDown
			}
			return m.rightClick(pos.Row, pos.Col)
		case StateDownUp, StateDownUpAfterChording:
			m.Mouse = StateChording
		case StateUndefined:
			m.Mouse = StateUpDown
		}
	case ActionRightUp:
		switch m.Mouse {
		case StateUpDown, StateUpDownNotFlag:
			m.Mouse = StateUpUp
		case StateChording:
			m.Mouse = StateDownUpAfterChording
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateChordingNotFlag:
			m.Mouse = StateDownUpAfterChording
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateUpUp, StateUndefined:
			m.Mouse = StateUpUp
		}
	case ActionRight:
		switch m.Mouse {
		case StateUpDown, StateUpDownNotFlag:
			m.Mouse = StateUpUp
		case StateChording:
			m.Mouse = StateDownUpAfterChording
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateChordingNotFlag:
			m.Mouse = StateDownUpAfterChording
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateUpUp:
			if m.GameBoard[pos.Row][pos.Col] < board.Unopened {
				m.Mouse = StateUpDownNotFlag
			} else {
				m.Mouse = StateUpDown
			}
			return m.rightClick(pos.Row, pos.Col)
		case StateDownUp, StateDownUpAfterChording:
			m.Mouse = StateChording
		case StateUndefined:
			m.Mouse = StateUpUp
		}
	case ActionMove:
	case ActionMiddleDown:
		m.middleHold = true
	case ActionMiddleUp:
		m.middleHold = false
		return m.chordingClick(pos.Row, pos.Col)
	case ActionMiddle:
		m.middleHold = !m.middleHold
		if !m.middleHold {
			return m.chordingClick(pos.Row, pos.Col)
		}
	case ActionChordDown:
		switch m.Mouse {
		case StateDownUp, StateDownUpAfterChording, StateUpDown:
			m.Mouse = StateChording
		case StateUpDownNotFlag:
			m.Mouse = StateChordingNotFlag
		default:
			return LevelNone, ErrImpossibleTransition
		}
	case ActionChordUpL:
		switch m.Mouse {
		case StateChording:
			m.Mouse = StateUpDown
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateChordingNotFlag:
			m.Mouse = StateUpDown
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		default:
			return LevelNone, ErrImpossibleTransition
		}
	case ActionChordUpR:
		switch m.Mouse {
		case StateChording:
			m.Mouse = StateDownUpAfterChording
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		case StateChordingNotFlag:
			m.Mouse = StateDownUpAfterChording
			m.Right--
			if m.outside(pos) {
				return LevelNone, nil
			}
			return m.chordingClick(pos.Row, pos.Col)
		default:
			return LevelNone, ErrImpossibleTransition
		}
	default:
		return LevelNone, ErrImpossibleTransition
	}
	return LevelNone, nil
}

// leftClick resolves a completed left click on a cell.
func (m *Machine) leftClick(x, y int) (int, error) {
	m.Left++
	if m.GameBoard[x][y] != board.Unopened {
		return LevelNone, nil
	}
	board.Open(m.Board, m.GameBoard, []board.Cell{{Row: x, Col: y}})
	switch m.Board[x][y] {
	case 0:
		m.BBBVSolved++
		m.CE++
		if m.isWin() {
			m.Phase = PhaseWin
		}
		return LevelOpen, nil
	case board.Mine:
		m.Phase = PhaseLoss
		return LevelNone, nil
	default:
		if board.IsOpeningRoot(m.Board, x, y) {
			m.BBBVSolved++
		}
		m.CE++
		if m.isWin() {
			m.Phase = PhaseWin
		}
		return LevelOpen, nil
	}
}

// rightClick resolves a completed right click: toggles a flag on unopened
// cells only. Flagging a true mine counts toward CE once, ever.
func (m *Machine) rightClick(x, y int) (int, error) {
	m.Right++
	if m.GameBoard[x][y] < board.Unopened {
		return LevelNone, nil
	}
	if m.Board[x][y] != board.Mine {
		switch m.GameBoard[x][y] {
		case board.Unopened:
			m.GameBoard[x][y] = board.Flagged
			m.Flag++
		case board.Flagged:
			m.GameBoard[x][y] = board.Unopened
			m.Flag--
		default:
			return LevelNone, ErrImpossibleTransition
		}
	} else {
		switch m.GameBoard[x][y] {
		case board.Unopened:
			m.GameBoard[x][y] = board.Flagged
			m.Flag++
			if !m.wasFlagged(x, y) {
				m.CE++
			}
			m.flagged = append(m.flagged, board.Cell{Row: x, Col: y})
		case board.Flagged:
			m.GameBoard[x][y] = board.Unopened
			m.Flag--
		default:
			return LevelNone, ErrImpossibleTransition
		}
	}
	return LevelFlag, nil
}

// chordingClick resolves a completed chord on a cell. Valid only on an
// opened number 1..7 whose flagged-neighbor count equals that number; on
// success every other closed neighbor opens at once.
func (m *Machine) chordingClick(x, y int) (int, error) {
	m.Double++
	if m.GameBoard[x][y] == 0 || m.GameBoard[x][y] >= 8 {
		return LevelNone, nil
	}
	var (
		chordingCells []board.Cell
		useful        bool // at least one closed neighbor to open
		flaggedNum    int
		surround3BV   int
		openedOpening bool // a chord opens at most one zero region
	)
	for i := max(1, x) - 1; i < min(m.Rows, x+2); i++ {
		for j := max(1, y) - 1; j < min(m.Cols, y+2); j++ {
			if i == x && j == y {
				continue
			}
			if m.GameBoard[i][j] == board.Flagged {
				flaggedNum++
			}
			if m.GameBoard[i][j] == board.Unopened {
				chordingCells = append(chordingCells, board.Cell{Row: i, Col: j})
				useful = true
				if m.Board[i][j] > 0 {
					if board.IsOpeningRoot(m.Board, i, j) {
						surround3BV++
					}
				} else if m.Board[i][j] == 0 {
					openedOpening = true
				}
			}
		}
	}
	if flaggedNum != m.GameBoard[x][y] || !useful {
		return LevelNone, nil
	}
	m.CE++
	m.BBBVSolved += surround3BV
	if openedOpening {
		m.BBBVSolved++
	}
	for _, c := range chordingCells {
		if m.Board[c.Row][c.Col] == board.Mine {
			m.Phase = PhaseLoss
		}
	}
	board.Open(m.Board, m.GameBoard, chordingCells)
	if m.isWin() {
		m.Phase = PhaseWin
	}
	return LevelChord, nil
}

func (m *Machine) wasFlagged(x, y int) bool {
	for _, c := range m.flagged {
		if c.Row == x && c.Col == y {
			return true
		}
	}
	return false
}

// isWin scans forward from the persisted cursor for the first still-closed
// non-mine cell. The cursor only advances, so the total win-check cost over
// a game is O(cells).
func (m *Machine) isWin() bool {
	for j := m.pointerY; j < m.Cols; j++ {
		if m.GameBoard[m.pointerX][j] >= board.Unopened && m.Board[m.pointerX][j] != board.Mine {
			m.pointerY = j
			return false
		}
	}
	for i := m.pointerX + 1; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if m.GameBoard[i][j] >= board.Unopened && m.Board[i][j] != board.Mine {
				m.pointerX = i
				m.pointerY = j
				return false
			}
		}
	}
	return true
}

func (m *Machine) clearClickNum() {
	m.Flag = 0
	m.flagged = nil
	m.Double = 0
	m.Left = 0
	m.Right = 0
}
