package replay

import (
	"reflect"
	"testing"
	"time"

	"github.com/Minesweeper-World/msreplay/internal/board"
)

// parsedSession builds a decoded-looking session over a 4x4 board with the
// given mines and events, ready for Analyse.
func parsedSession(t *testing.T, mines []board.Cell, events []*Event) *Session {
	t.Helper()
	s := NewParsedSession()
	s.Width, s.Height = 4, 4
	s.MineNum = len(mines)
	s.Board = testBoard(4, 4, mines)
	s.Static.BBBV = board.CalBBBV(s.Board)
	if err := s.SetRTime(8.0); err != nil {
		t.Fatal(err)
	}
	s.Events = events
	s.CanAnalyse = true
	return s
}

// px returns the pixel center of a cell at the default 16px cell size.
func px(cell int) uint16 {
	return uint16(cell*16 + 8)
}

func winEvents() []*Event {
	return []*Event{
		{Time: 0.0, Action: ActionMove, X: 100, Y: 100},
		{Time: 0.5, Action: ActionLeftDown, X: px(3), Y: px(3)},
		{Time: 0.8, Action: ActionMove, X: px(2), Y: px(3)},
		{Time: 1.0, Action: ActionLeftUp, X: px(3), Y: px(3)},
	}
}

func TestAnalyseWin(t *testing.T) {
	s := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())

	if err := s.Analyse(); err != nil {
		t.Fatalf("Analyse: %v", err)
	}

	if !s.IsCompleted {
		t.Error("session not completed")
	}
	if s.VideoDynamic.BBBVSolved != s.Static.BBBV {
		t.Errorf("3BV solved = %d, want %d", s.VideoDynamic.BBBVSolved, s.Static.BBBV)
	}
	if got, want := s.VideoDynamic.BBBVS, float64(s.Static.BBBV)/8.0; got != want {
		t.Errorf("3BV/s = %v, want %v", got, want)
	}
	if got := s.ETime(); got != 8.0 {
		t.Errorf("ETime = %v, want 8.0 on a completed game", got)
	}
	if s.GameDynamic.Left != 1 || s.GameDynamic.Cl != 1 {
		t.Errorf("clicks = L%d total %d, want 1/1", s.GameDynamic.Left, s.GameDynamic.Cl)
	}
	// STNB is calibrated for the canonical sizes only.
	if s.VideoDynamic.STNB != 0 {
		t.Errorf("STNB = %v, want 0 on a 4x4 board", s.VideoDynamic.STNB)
	}
}

func TestAnalyseSnapshots(t *testing.T) {
	s := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())

	if err := s.Analyse(); err != nil {
		t.Fatalf("Analyse: %v", err)
	}

	// Only the final left release changes the board: the seed snapshot plus
	// one more.
	if len(s.Snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(s.Snapshots))
	}
	if s.Events[0].PriorSnapshot != 0 || s.Events[0].NextSnapshot != 0 {
		t.Errorf("first event snapshots = (%d,%d), want (0,0)",
			s.Events[0].PriorSnapshot, s.Events[0].NextSnapshot)
	}
	last := s.Events[len(s.Events)-1]
	if last.PriorSnapshot != 0 || last.NextSnapshot != 1 {
		t.Errorf("last event snapshots = (%d,%d), want (0,1)",
			last.PriorSnapshot, last.NextSnapshot)
	}
	if gb := s.GameBoardAt(len(s.Events) - 1); gb[3][3] != 0 {
		t.Errorf("final board at (3,3) = %d, want 0", gb[3][3])
	}
	if gb := s.GameBoardAt(0); gb[3][3] != board.Unopened {
		t.Errorf("initial board at (3,3) = %d, want unopened", gb[3][3])
	}
}

func TestAnalysePath(t *testing.T) {
	s := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())

	if err := s.Analyse(); err != nil {
		t.Fatalf("Analyse: %v", err)
	}

	// Path only accumulates once the game is underway: the release at
	// (px(3), px(3)) moved 16 pixels from the preceding in-board sample.
	if got := s.Path(); got != 16.0 {
		t.Errorf("path = %v, want 16", got)
	}
}

func TestAnalyseDeterministic(t *testing.T) {
	a := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())
	b := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())

	if err := a.Analyse(); err != nil {
		t.Fatal(err)
	}
	if err := b.Analyse(); err != nil {
		t.Fatal(err)
	}

	if a.VideoDynamic != b.VideoDynamic {
		t.Errorf("video stats diverge: %+v vs %+v", a.VideoDynamic, b.VideoDynamic)
	}
	if a.GameDynamic != b.GameDynamic {
		t.Errorf("game stats diverge: %+v vs %+v", a.GameDynamic, b.GameDynamic)
	}
	if !reflect.DeepEqual(a.Snapshots, b.Snapshots) {
		t.Error("snapshot stores diverge")
	}
	for i := range a.Events {
		if a.Events[i].Key != b.Events[i].Key {
			t.Errorf("event %d counter snapshots diverge", i)
		}
	}
}

func TestAnalyseRejectsCorruptEvents(t *testing.T) {
	s := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, []*Event{
		{Time: 0.1, Action: ActionRightUp, X: px(0), Y: px(0)},
	})

	if err := s.Analyse(); err == nil {
		t.Error("Analyse accepted a release with no press")
	}
}

func TestAnalyseRequiresParse(t *testing.T) {
	s := NewParsedSession()
	if err := s.Analyse(); err == nil {
		t.Error("Analyse ran on an unparsed session")
	}
}

func TestPlaybackCursor(t *testing.T) {
	s := parsedSession(t, []board.Cell{{Row: 0, Col: 0}}, winEvents())
	if err := s.Analyse(); err != nil {
		t.Fatal(err)
	}

	s.SetCurrentTime(0.6)
	if s.CurrentEvent().Time != 0.5 {
		t.Errorf("cursor at %v, want 0.5", s.CurrentEvent().Time)
	}
	if gb := s.CurrentGameBoard(); gb[3][3] != board.Unopened {
		t.Errorf("board at 0.6s already opened: %d", gb[3][3])
	}

	s.SetCurrentTime(100)
	if s.CurrentEvent() != s.Events[len(s.Events)-1] {
		t.Error("cursor did not clamp to the last event")
	}
	if gb := s.CurrentGameBoard(); gb[3][3] != 0 {
		t.Errorf("final board at (3,3) = %d, want 0", gb[3][3])
	}

	if err := s.SetCurrentEventID(1); err != nil {
		t.Fatal(err)
	}
	if s.CurrentEvent() != s.Events[1] {
		t.Error("SetCurrentEventID did not move the cursor")
	}
	if err := s.SetCurrentEventID(99); err == nil {
		t.Error("out-of-range event index accepted")
	}

	vt, err := s.VideoTime()
	if err != nil {
		t.Fatal(err)
	}
	if vt != 1.0 {
		t.Errorf("video time = %v, want 1.0", vt)
	}
}

// fakeClock advances a fixed amount on every reading.
type fakeClock struct {
	now  time.Time
	tick time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.tick)
	return c.now
}

func TestLiveRecorder(t *testing.T) {
	b := testBoard(4, 4, []board.Cell{{Row: 0, Col: 0}})
	clock := &fakeClock{now: time.Unix(1700000000, 0), tick: 500 * time.Millisecond}
	s := NewRecorder(b, 16, clock)

	if len(s.UniquenessDesignator) == 0 {
		t.Error("recorder has no uniqueness designator")
	}
	if s.Static.BBBV != 1 {
		t.Errorf("3BV = %d, want 1", s.Static.BBBV)
	}

	if err := s.Step(ActionLeftDown, int(px(3)), int(px(3))); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(ActionLeftUp, int(px(3)), int(px(3))); err != nil {
		t.Fatal(err)
	}

	if s.Phase() != PhaseWin {
		t.Fatalf("phase = %s, want Win", s.Phase())
	}
	if !s.IsCompleted {
		t.Error("live win not recorded as completed")
	}
	if s.GameDynamic.RTime <= 0 {
		t.Errorf("rtime = %v, want > 0", s.GameDynamic.RTime)
	}
	if len(s.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.Events))
	}
	if s.Events[0].Time != 0 {
		t.Errorf("first event time = %v, want 0", s.Events[0].Time)
	}
	if len(s.EndTime) == 0 {
		t.Error("end timestamp not recorded")
	}
}

func TestLiveRecorderPreFlagRevertClearsRecording(t *testing.T) {
	b := testBoard(4, 4, []board.Cell{{Row: 0, Col: 0}})
	clock := &fakeClock{now: time.Unix(1700000000, 0), tick: 100 * time.Millisecond}
	s := NewRecorder(b, 16, clock)

	// Flag and unflag before any open: the game never started and the
	// recording resets.
	steps := []Action{ActionRightDown, ActionRightUp, ActionRightDown}
	for _, a := range steps {
		if err := s.Step(a, int(px(0)), int(px(0))); err != nil {
			t.Fatal(err)
		}
	}

	if s.Phase() != PhaseReady {
		t.Errorf("phase = %s, want Ready", s.Phase())
	}
	if len(s.Events) != 0 || len(s.Snapshots) != 0 {
		t.Errorf("recording survived revert: %d events, %d snapshots",
			len(s.Events), len(s.Snapshots))
	}
}
