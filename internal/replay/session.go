package replay

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/logger"
)

// Clock supplies timestamps to the live recorder. Batch replay never reads
// it, so decoded sessions and tests can run without wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used by live recording.
var SystemClock Clock = systemClock{}

// KeyDynamicParams is the counter snapshot stored on every event, taken
// after the event was applied.
type KeyDynamicParams struct {
	Left       int
	Right      int
	Double     int
	CE         int
	Flag       int
	BBBVSolved int
	OpSolved   int
	IslSolved  int
}

// Event is one recorded input sample, immutable once appended. The derived
// fields (Level, snapshot indices, Key, Path) are filled in by replay.
type Event struct {
	// Time is seconds since the recording started.
	Time float64
	// Action is the low-level button tag.
	Action Action
	// X is the pixel distance from the left edge, Y from the top.
	X uint16
	Y uint16
	// Level is the derived effect level (0..3).
	Level int
	// PriorSnapshot and NextSnapshot index the session's snapshot store for
	// the board immediately before and after the event.
	PriorSnapshot int
	NextSnapshot  int
	// Mouse is the button state after the event.
	Mouse MouseState
	// Key is the counter state after the event.
	Key KeyDynamicParams
	// Path is the accumulated mouse path in 16px-normalized pixels.
	Path float64
	// Comments is free-form space for downstream analyzers.
	Comments string
}

// StaticParams are properties of the board itself.
type StaticParams struct {
	BBBV     int
	Op       int
	Isl      int
	CellNums [9]int
}

// GameDynamicParams are the final click-family results of a game.
type GameDynamicParams struct {
	// RTime is the time result in seconds; RTimeMS the same in milliseconds.
	RTime   float64
	RTimeMS uint32
	Left    int
	Right   int
	Double  int
	Cl      int
	Flag    int
	LeftS   float64
	RightS  float64
	DoubleS float64
	ClS     float64
	FlagS   float64
}

// VideoDynamicParams are the final derived metrics of a replay.
type VideoDynamicParams struct {
	ETime      float64
	BBBVS      float64
	BBBVSolved int
	STNB       float64
	RQP        float64
	QG         float64
	CE         int
	CES        float64
	IOE        float64
	Corr       float64
	Thrp       float64
}

// Session is a full replay: header, ground-truth board, ordered event list,
// deduplicated snapshot store and derived statistics. Codecs populate it
// from files; the live recorder populates it from input events.
type Session struct {
	Software             []byte
	PlayerDesignator     []byte
	RaceDesignator       []byte
	UniquenessDesignator []byte
	StartTime            []byte
	EndTime              []byte
	Country              []byte

	Width         int
	Height        int
	MineNum       int
	IsCompleted   bool
	IsOfficial    bool
	IsFair        bool
	Mode          uint16
	Level         uint8
	CellPixelSize uint8

	// Board is the ground truth, fixed once decoded or supplied.
	Board [][]int
	// Events is the ordered recording, appended during decode or live play.
	Events []*Event
	// Snapshots is the append-only store of distinct visible boards. Index 0
	// is the all-unopened board, so every event resolves to a valid index.
	Snapshots [][][]int

	Checksum []byte

	Static       StaticParams
	GameDynamic  GameDynamicParams
	VideoDynamic VideoDynamicParams

	// CanAnalyse is set by the codecs once a parse completed.
	CanAnalyse bool

	machine        *Machine
	phase          Phase
	clock          Clock
	videoStart     time.Time
	gameStart      time.Time
	deltaTime      float64
	currentEventID int
	currentTime    float64
	allowSetRTime  bool
}

// NewParsedSession returns an empty session ready to be populated by a
// decoder. The time result may be set exactly once.
func NewParsedSession() *Session {
	return &Session{
		CellPixelSize: 16,
		phase:         PhaseDisplay,
		allowSetRTime: true,
	}
}

// NewRecorder returns a session recording live play on the given
// ground-truth board. The injected clock timestamps events.
func NewRecorder(b [][]int, cellPixelSize uint8, clock Clock) *Session {
	if clock == nil {
		clock = SystemClock
	}
	now := clock.Now()
	return &Session{
		Width:                len(b[0]),
		Height:               len(b),
		MineNum:              board.MineNum(b),
		CellPixelSize:        cellPixelSize,
		Board:                b,
		UniquenessDesignator: []byte(uuid.NewString()),
		Static:               StaticParams{BBBV: board.CalBBBV(b)},
		machine:              NewMachine(board.Clone(b)),
		phase:                PhaseReady,
		clock:                clock,
		videoStart:           now,
		gameStart:            now,
	}
}

// Phase returns the session phase.
func (s *Session) Phase() Phase { return s.phase }

// SetRTime records the final time result. It may be called once, by the
// decoding codec.
func (s *Session) SetRTime(t float64) error {
	if !s.allowSetRTime {
		return errors.New("time result already set")
	}
	s.GameDynamic.RTime = t
	s.GameDynamic.RTimeMS = secToMS(t)
	s.allowSetRTime = false
	return nil
}

// GameBoardAt returns the visible board after the event at index i. Before
// any board mutation this resolves to the all-unopened board.
func (s *Session) GameBoardAt(i int) [][]int {
	return s.Snapshots[s.Events[i].NextSnapshot]
}

// Analyse replays the whole event list through a fresh state machine,
// deriving per-event effect levels, snapshot indices, counter snapshots and
// path, then the aggregate statistics. It fails on the first event the
// machine rejects; counters past a misapplied event would be meaningless.
func (s *Session) Analyse() error {
	if !s.CanAnalyse {
		return errors.New("session has not been parsed")
	}
	m := NewMachine(board.Clone(s.Board))
	s.Snapshots = append(s.Snapshots, board.NewGameBoard(s.Height, s.Width))
	pix := int(s.CellPixelSize)
	for i, ev := range s.Events {
		ev.PriorSnapshot = len(s.Snapshots) - 1
		if ev.Action != ActionMove {
			oldPhase := m.Phase
			level, err := m.Step(ev.Action, board.Cell{
				Row: int(ev.Y) / pix,
				Col: int(ev.X) / pix,
			})
			if err != nil {
				return fmt.Errorf("event %d (%s at %.3fs): %w", i, ev.Action, ev.Time, err)
			}
			ev.Level = level
			if level >= LevelFlag {
				s.Snapshots = append(s.Snapshots, board.Clone(m.GameBoard))
				if oldPhase != PhasePlaying {
					s.deltaTime = ev.Time
				}
			}
		}
		ev.NextSnapshot = len(s.Snapshots) - 1
		ev.Mouse = m.Mouse
		ev.Key = KeyDynamicParams{
			Left:       m.Left,
			Right:      m.Right,
			Double:     m.Double,
			CE:         m.CE,
			Flag:       m.Flag,
			BBBVSolved: m.BBBVSolved,
		}
		s.accumulatePath(i, m.Phase)
	}
	s.phase = PhaseDisplay
	if len(s.Events) > 0 {
		// Leave the playback cursor on the last event; SetCurrentTime rewinds.
		s.currentEventID = len(s.Events) - 1
		s.currentTime = s.Events[s.currentEventID].Time
	}
	s.gatherAfterReplay(m)
	logger.Debug().
		Int("events", len(s.Events)).
		Int("snapshots", len(s.Snapshots)).
		Int("bbbv_solved", s.VideoDynamic.BBBVSolved).
		Msg("Replay analysed")
	return nil
}

// accumulatePath extends the mouse path at event i. Samples with both
// coordinates outside the board rectangle inherit the previous path; the
// previous in-board sample is found by skipping backward over outside
// samples. Distances are normalized to a 16-pixel cell edge.
func (s *Session) accumulatePath(i int, phase Phase) {
	if phase != PhasePlaying && phase != PhaseWin && phase != PhaseLoss {
		return
	}
	ev := s.Events[i]
	maxY := uint16(s.Height) * uint16(s.CellPixelSize)
	maxX := uint16(s.Width) * uint16(s.CellPixelSize)
	if ev.Y >= maxY && ev.X >= maxX {
		ev.Path = s.Events[i-1].Path
		return
	}
	skip := 1
	for {
		prev := s.Events[i-skip]
		if prev.Y >= maxY && prev.X >= maxX {
			skip++
			continue
		}
		ev.Path = prev.Path + pixelDistance(ev.X, ev.Y, prev.X, prev.Y)*16.0/float64(s.CellPixelSize)
		return
	}
}

// gatherAfterReplay computes the aggregate statistics from the terminal
// machine state and the decoded time result.
func (s *Session) gatherAfterReplay(m *Machine) {
	s.IsCompleted = m.Phase == PhaseWin
	rtime := s.GameDynamic.RTime
	g := &s.GameDynamic
	v := &s.VideoDynamic

	g.Left = m.Left
	g.Right = m.Right
	g.Double = m.Double
	g.Flag = m.Flag
	g.Cl = m.Left + m.Right + m.Double
	g.LeftS = float64(m.Left) / rtime
	g.RightS = float64(m.Right) / rtime
	g.DoubleS = float64(m.Double) / rtime
	g.ClS = float64(g.Cl) / rtime

	v.BBBVSolved = m.BBBVSolved
	v.CE = m.CE
	v.CES = float64(m.CE) / rtime
	v.BBBVS = float64(s.Static.BBBV) / rtime
	v.RQP = rtime * rtime / float64(s.Static.BBBV)
	v.QG = math.Pow(rtime, 1.7) / float64(s.Static.BBBV)
	if c, ok := stnbConstant(s.Height, s.Width, s.MineNum); ok {
		v.STNB = c / (math.Pow(rtime, 1.7) / float64(s.Static.BBBV)) *
			math.Sqrt(float64(m.BBBVSolved)/float64(s.Static.BBBV))
	}
	v.IOE = float64(m.BBBVSolved) / float64(g.Cl)
	v.Corr = float64(m.CE) / float64(g.Cl)
	v.Thrp = float64(m.BBBVSolved) / float64(m.CE)

	s.Static.CellNums = board.CalCellNums(s.Board)
	s.Static.Op = board.CalOp(s.Board)
	s.Static.Isl = board.CalIsl(s.Board)
}

// stnbConstant returns the calibrated STNB constant for the three canonical
// board sizes. Any other size scores zero.
func stnbConstant(height, width, mineNum int) (float64, bool) {
	switch {
	case height == 8 && width == 8 && mineNum == 10:
		return 47.22, true
	case height == 16 && width == 16 && mineNum == 40:
		return 153.73, true
	case height == 16 && width == 30 && mineNum == 99:
		return 435.001, true
	default:
		return 0, false
	}
}

// Step records and applies one live input event at a pixel position
// (x from the left, y from the top). Used by the live-input driver only;
// decoded sessions go through Analyse.
func (s *Session) Step(e Action, x, y int) error {
	now := s.clock.Now()
	timeS := now.Sub(s.videoStart).Seconds()
	oldPhase := s.machine.Phase
	if oldPhase == PhaseLoss || oldPhase == PhaseWin || oldPhase == PhaseDisplay {
		return nil
	}
	pix := int(s.CellPixelSize)
	level, err := s.machine.Step(e, board.Cell{Row: y / pix, Col: x / pix})
	if err != nil {
		return err
	}
	s.phase = s.machine.Phase
	switch s.phase {
	case PhaseReady:
		// Pre-flags were all taken back; the recording starts over.
		s.Snapshots = nil
		s.Events = nil
		return nil
	case PhasePreFlagging:
		if oldPhase != PhasePreFlagging {
			s.videoStart = now
			timeS = 0
		}
	case PhasePlaying:
		if oldPhase != PhasePlaying {
			if oldPhase == PhaseReady {
				s.videoStart = now
				timeS = 0
			}
			s.gameStart = now
			s.StartTime = []byte(strconv.FormatInt(now.UnixMicro(), 10))
		}
	case PhaseLoss, PhaseWin:
		s.finishLiveGame(now, s.phase == PhaseWin)
	}

	path := 0.0
	if oldPhase == PhasePlaying {
		maxY := s.Height * pix
		maxX := s.Width * pix
		for i := len(s.Events) - 1; ; i-- {
			p := s.Events[i]
			if int(p.Y) >= maxY || int(p.X) >= maxX {
				continue
			}
			path = p.Path + pixelDistance(uint16(x), uint16(y), p.X, p.Y)*16.0/float64(s.CellPixelSize)
			break
		}
	} else if len(s.Snapshots) == 0 && s.phase != PhaseReady {
		// First effective action: seed the store with the untouched board.
		s.Snapshots = append(s.Snapshots, board.NewGameBoard(s.Height, s.Width))
	}

	prior := len(s.Snapshots) - 1
	if level >= LevelFlag {
		s.Snapshots = append(s.Snapshots, board.Clone(s.machine.GameBoard))
	}
	s.Events = append(s.Events, &Event{
		Time:          timeS,
		Action:        e,
		X:             uint16(x),
		Y:             uint16(y),
		Level:         level,
		PriorSnapshot: prior,
		NextSnapshot:  len(s.Snapshots) - 1,
		Mouse:         s.machine.Mouse,
		Key: KeyDynamicParams{
			Left:       s.machine.Left,
			Right:      s.machine.Right,
			Double:     s.machine.Double,
			CE:         s.machine.CE,
			Flag:       s.machine.Flag,
			BBBVSolved: s.machine.BBBVSolved,
		},
		Path: path,
	})
	return nil
}

// finishLiveGame closes out a live game and gathers the final statistics.
func (s *Session) finishLiveGame(now time.Time, won bool) {
	tMS := uint32(now.Sub(s.gameStart).Milliseconds())
	t := float64(tMS) / 1000.0
	s.EndTime = []byte(strconv.FormatInt(now.UnixMicro(), 10))
	s.IsCompleted = won
	s.Static.BBBV = board.CalBBBV(s.Board)
	s.GameDynamic.RTime = t
	s.GameDynamic.RTimeMS = tMS
	if won {
		s.VideoDynamic.ETime = t
	} else if s.machine.BBBVSolved > 0 {
		s.VideoDynamic.ETime = t / float64(s.machine.BBBVSolved) * float64(s.Static.BBBV)
	}
	s.CanAnalyse = true
	s.gatherAfterReplay(s.machine)
}

// WinThenFlagAllMine flags every remaining closed cell after a win.
func (s *Session) WinThenFlagAllMine() {
	if s.machine == nil || s.machine.Phase != PhaseWin {
		return
	}
	for _, row := range s.machine.GameBoard {
		for j, v := range row {
			if v == board.Unopened {
				row[j] = board.Flagged
			}
		}
	}
}

// LossThenOpenAllMine reveals every untouched mine after a loss. The state
// machine never does this on its own; some game modes hide mines on loss.
func (s *Session) LossThenOpenAllMine() {
	if s.machine == nil || s.machine.Phase != PhaseLoss {
		return
	}
	for i := range s.machine.Board {
		for j := range s.machine.Board[i] {
			if s.machine.Board[i][j] == board.Mine && s.machine.GameBoard[i][j] == board.Unopened {
				s.machine.GameBoard[i][j] = board.MineShown
			}
		}
	}
}

func pixelDistance(x1, y1, x2, y2 uint16) float64 {
	dx := float64(x1) - float64(x2)
	dy := float64(y1) - float64(y2)
	return math.Hypot(dx, dy)
}

func secToMS(t float64) uint32 {
	return uint32(t*1000.0 + 0.5)
}
