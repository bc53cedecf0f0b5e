package codec

import (
	"math"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/logger"
	"github.com/Minesweeper-World/msreplay/internal/replay"
)

// Flag bits of the EVF header flags byte.
const (
	evfFlagCompleted = 0b1000_0000
	evfFlagOfficial  = 0b0100_0000
	evfFlagFair      = 0b0010_0000
)

// Event tag bytes of the EVF event stream. Tag 0 terminates the stream and
// is followed by a 32-byte checksum; tag 255 terminates without one.
var evfTags = map[uint8]replay.Action{
	1: replay.ActionMove,
	2: replay.ActionLeftDown,
	3: replay.ActionLeftUp,
	4: replay.ActionRightDown,
	5: replay.ActionRightUp,
	6: replay.ActionMiddleDown,
	7: replay.ActionMiddleUp,
	8: replay.ActionPreFlag,
	9: replay.ActionChordDown,
}

var evfTagOf = func() map[replay.Action]uint8 {
	m := make(map[replay.Action]uint8, len(evfTags))
	for tag, a := range evfTags {
		m[a] = tag
	}
	return m
}()

// DecodeEVF parses an open-format (EVF v0) recording.
func DecodeEVF(data []byte) (*replay.Session, error) {
	c := &cursor{data: data}
	s := replay.NewParsedSession()

	if _, err := c.u8(); err != nil { // version byte, ignored
		return nil, ErrFileEmpty
	}
	flags, err := c.u8()
	if err != nil {
		return nil, err
	}
	s.IsCompleted = flags&evfFlagCompleted != 0
	s.IsOfficial = flags&evfFlagOfficial != 0
	s.IsFair = flags&evfFlagFair != 0

	h, err := c.u8()
	if err != nil {
		return nil, err
	}
	w, err := c.u8()
	if err != nil {
		return nil, err
	}
	s.Height, s.Width = int(h), int(w)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	s.MineNum = int(n)
	if s.CellPixelSize, err = c.u8(); err != nil {
		return nil, err
	}
	if s.Mode, err = c.u16(); err != nil {
		return nil, err
	}
	bbbv, err := c.u16()
	if err != nil {
		return nil, err
	}
	s.Static.BBBV = int(bbbv)
	tMS, err := c.u24()
	if err != nil {
		return nil, err
	}
	if err := s.SetRTime(float64(tMS) / 1000.0); err != nil {
		return nil, err
	}

	for _, dst := range []*[]byte{
		&s.Software, &s.PlayerDesignator, &s.RaceDesignator,
		&s.UniquenessDesignator, &s.StartTime, &s.EndTime, &s.Country,
	} {
		if *dst, err = readUntil(c, 0); err != nil {
			return nil, err
		}
	}

	// Mine bitmap: row-major, MSB first.
	s.Board = board.New(s.Height, s.Width)
	var byteVal uint8
	bit := 0
	for i := 0; i < s.Height; i++ {
		for j := 0; j < s.Width; j++ {
			bit--
			if bit < 0 {
				if byteVal, err = c.u8(); err != nil {
					return nil, err
				}
				bit = 7
			}
			if byteVal&(1<<bit) != 0 {
				s.Board[i][j] = board.Mine
			}
		}
	}
	board.CalNumbers(s.Board)

	haveChecksum := false
events:
	for {
		tag, err := c.u8()
		if err != nil {
			return nil, err
		}
		var action replay.Action
		switch tag {
		case 0:
			haveChecksum = true
			break events
		case 255:
			break events
		default:
			var ok bool
			if action, ok = evfTags[tag]; !ok {
				// Unrecognized tags are carried through; the replay driver
				// rejects them if they ever resolve against the machine.
				action = replay.ActionUnknown
			}
		}
		t, err := c.u24()
		if err != nil {
			return nil, err
		}
		x, err := c.u16()
		if err != nil {
			return nil, err
		}
		y, err := c.u16()
		if err != nil {
			return nil, err
		}
		s.Events = append(s.Events, &replay.Event{
			Time:   float64(t) / 1000.0,
			Action: action,
			X:      x,
			Y:      y,
		})
	}
	if haveChecksum {
		s.Checksum = make([]byte, 32)
		for i := range s.Checksum {
			if s.Checksum[i], err = c.u8(); err != nil {
				return nil, err
			}
		}
	}
	s.CanAnalyse = true
	logger.Debug().
		Int("width", s.Width).
		Int("height", s.Height).
		Int("mines", s.MineNum).
		Int("events", len(s.Events)).
		Bool("checksum", haveChecksum).
		Msg("Decoded EVF recording")
	return s, nil
}

// EncodeEVF serializes a session as EVF v0, the exact structural inverse of
// DecodeEVF. The only failure is a board that contradicts the declared
// dimensions; nothing is emitted in that case.
func EncodeEVF(s *replay.Session) ([]byte, error) {
	if len(s.Board) != s.Height {
		return nil, ErrInvalidBoardSize
	}
	for _, row := range s.Board {
		if len(row) != s.Width {
			return nil, ErrInvalidBoardSize
		}
	}

	out := []byte{0, 0}
	if s.IsCompleted {
		out[1] |= evfFlagCompleted
	}
	if s.IsOfficial {
		out[1] |= evfFlagOfficial
	}
	if s.IsFair {
		out[1] |= evfFlagFair
	}
	out = append(out, uint8(s.Height), uint8(s.Width))
	out = appendU16(out, uint16(s.MineNum))
	out = append(out, s.CellPixelSize)
	out = appendU16(out, s.Mode)
	out = appendU16(out, uint16(s.Static.BBBV))
	out = appendU24(out, s.GameDynamic.RTimeMS)

	for _, str := range [][]byte{
		s.Software, s.PlayerDesignator, s.RaceDesignator,
		s.UniquenessDesignator, s.StartTime, s.EndTime, s.Country,
	} {
		out = append(out, str...)
		out = append(out, 0)
	}

	var byteVal uint8
	bit := 0
	for i := 0; i < s.Height; i++ {
		for j := 0; j < s.Width; j++ {
			byteVal <<= 1
			if s.Board[i][j] == board.Mine {
				byteVal |= 1
			}
			bit++
			if bit == 8 {
				out = append(out, byteVal)
				bit = 0
				byteVal = 0
			}
		}
	}
	if bit > 0 {
		out = append(out, byteVal<<(8-bit))
	}

	for _, ev := range s.Events {
		tag, ok := evfTagOf[ev.Action]
		if !ok {
			tag = 99
		}
		out = append(out, tag)
		out = appendU24(out, uint32(math.Round(ev.Time*1000.0)))
		out = appendU16(out, ev.X)
		out = appendU16(out, ev.Y)
	}
	if len(s.Checksum) > 0 {
		out = append(out, 0)
		out = append(out, s.Checksum...)
	} else {
		out = append(out, 255)
	}
	return out, nil
}

func appendU16(b []byte, v uint16) []byte {
	return append(b, uint8(v>>8), uint8(v))
}

func appendU24(b []byte, v uint32) []byte {
	return append(b, uint8(v>>16), uint8(v>>8), uint8(v))
}
