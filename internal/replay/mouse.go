package replay

// Action is one low-level recorded input event. The vocabulary matches the
// tags found in replay files and live input drivers.
type Action string

// Recognized actions.
const (
	ActionMove       Action = "mv"  // mouse move
	ActionLeftDown   Action = "lc"  // left button pressed
	ActionLeftUp     Action = "lr"  // left button released
	ActionRightDown  Action = "rc"  // right button pressed
	ActionRightUp    Action = "rr"  // right button released
	ActionMiddleDown Action = "mc"  // middle button pressed
	ActionMiddleUp   Action = "mr"  // middle button released
	ActionChordDown  Action = "cc"  // both buttons down, order unknown
	ActionChordUpL   Action = "crl" // chord released via the left button
	ActionChordUpR   Action = "crr" // chord released via the right button
	ActionLeft       Action = "l"   // left press-or-release (toggle)
	ActionRight      Action = "r"   // right press-or-release (toggle)
	ActionMiddle     Action = "m"   // middle press-or-release (toggle)
	ActionPreFlag    Action = "pf"  // flag recorded before the first open
	ActionUnknown    Action = "ub"  // unrecognized tag tolerated by the open format
)

// MouseState is the button state of the two-button machine. A chord can be
// entered with either button first; ChordingNotFlag distinguishes a chord
// whose right press landed on a cell that could not be flagged, so the right
// counter can be corrected when the chord resolves.
type MouseState int

// Button states.
const (
	StateUndefined MouseState = iota
	StateUpUp
	StateUpDown
	StateUpDownNotFlag
	StateDownUp
	StateChording
	StateChordingNotFlag
	StateDownUpAfterChording
)

func (s MouseState) String() string {
	switch s {
	case StateUpUp:
		return "UpUp"
	case StateUpDown:
		return "UpDown"
	case StateUpDownNotFlag:
		return "UpDownNotFlag"
	case StateDownUp:
		return "DownUp"
	case StateChording:
		return "Chording"
	case StateChordingNotFlag:
		return "ChordingNotFlag"
	case StateDownUpAfterChording:
		return "DownUpAfterChording"
	default:
		return "Undefined"
	}
}

// Phase is the session phase. Ready and PreFlagging precede the first
// accepted open; Win and Loss are absorbing; Display is used only when a
// fully decoded recording is being played back.
type Phase int

// Session phases.
const (
	PhaseReady Phase = iota
	PhasePreFlagging
	PhasePlaying
	PhaseLoss
	PhaseWin
	PhaseDisplay
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "Ready"
	case PhasePreFlagging:
		return "PreFlagging"
	case PhasePlaying:
		return "Playing"
	case PhaseLoss:
		return "Loss"
	case PhaseWin:
		return "Win"
	default:
		return "Display"
	}
}

// Effect levels returned by Machine.Step.
const (
	// LevelNone is an operation with no effect on the board.
	LevelNone = 0
	// LevelFlag advanced bookkeeping only: a flag or unflag.
	LevelFlag = 1
	// LevelOpen opened one or more cells with a plain left click.
	LevelOpen = 2
	// LevelChord is a successful chord that opened at least one cell.
	LevelChord = 3
)
