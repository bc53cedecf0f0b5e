package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/logger"
	"github.com/Minesweeper-World/msreplay/internal/replay"
)

// avfButton maps the legacy button-code byte to an action tag. Codes 145
// and 193 are the releases Arbiter emits when a chord resolves.
func avfButton(code uint8) (replay.Action, error) {
	switch code {
	case 1:
		return replay.ActionMove, nil
	case 3:
		return replay.ActionLeftDown, nil
	case 5, 21:
		return replay.ActionLeftUp, nil
	case 9:
		return replay.ActionRightDown, nil
	case 17, 145:
		return replay.ActionRightUp, nil
	case 33:
		return replay.ActionMiddleDown, nil
	case 65, 193:
		return replay.ActionMiddleUp, nil
	case 11:
		return replay.ActionChordDown, nil
	default:
		return "", fmt.Errorf("%w: button code %d", ErrInvalidEvent, code)
	}
}

// DecodeAVF parses a legacy Arbiter recording. The format has no explicit
// section offsets; fields are located by scanning for byte sentinels, and a
// sentinel that never appears exhausts the buffer and fails the parse.
func DecodeAVF(data []byte) (*replay.Session, error) {
	c := &cursor{data: data}
	s := replay.NewParsedSession()

	if _, err := c.u8(); err != nil {
		return nil, ErrFileEmpty
	}
	c.skip(4)
	level, err := c.u8()
	if err != nil {
		return nil, err
	}
	s.Level = level
	switch level {
	case 3:
		s.Width, s.Height, s.MineNum = 8, 8, 10
	case 4:
		s.Width, s.Height, s.MineNum = 16, 16, 40
	case 5:
		s.Width, s.Height, s.MineNum = 30, 16, 99
	case 6:
		w, err := c.u8()
		if err != nil {
			return nil, err
		}
		h, err := c.u8()
		if err != nil {
			return nil, err
		}
		n, err := c.u16()
		if err != nil {
			return nil, err
		}
		s.Width, s.Height, s.MineNum = int(w)+1, int(h)+1, int(n)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	s.Board = board.New(s.Height, s.Width)
	for i := 0; i < s.MineNum; i++ {
		r, err := c.u8()
		if err != nil {
			return nil, err
		}
		col, err := c.u8()
		if err != nil {
			return nil, err
		}
		if int(r) < 1 || int(r) > s.Height || int(col) < 1 || int(col) > s.Width {
			return nil, fmt.Errorf("%w: (%d, %d)", ErrInvalidMinePosition, r, col)
		}
		if s.Board[r-1][col-1] == board.Mine {
			return nil, fmt.Errorf("%w: duplicate (%d, %d)", ErrInvalidMinePosition, r, col)
		}
		s.Board[r-1][col-1] = board.Mine
	}
	board.CalNumbers(s.Board)

	// '[' digit '|' introduces the ASCII parameter block.
	var win [3]byte
	for {
		win[0], win[1], win[2] = win[1], win[2], 0
		if win[2], err = c.char(); err != nil {
			return nil, err
		}
		if win[0] == '[' && win[1] >= '0' && win[1] <= '3' && win[2] == '|' {
			break
		}
	}
	if s.StartTime, err = readUntil(c, '|'); err != nil {
		return nil, err
	}
	if s.EndTime, err = readUntil(c, '|'); err != nil {
		return nil, err
	}

	// Resynchronize on the "|B" marker; the byte in between varies by
	// recorder version.
	var pair [2]byte
	v, err := c.char()
	if err != nil {
		return nil, err
	}
	switch v {
	case '|':
		pair = [2]byte{0, '|'}
	case 'B':
		pair = [2]byte{'|', 'B'}
	default:
		pair = [2]byte{0, 0}
	}
	for pair[0] != '|' || pair[1] != 'B' {
		pair[0] = pair[1]
		if pair[1], err = c.char(); err != nil {
			return nil, err
		}
	}

	bbbvStr, err := readUntil(c, 'T')
	if err != nil {
		return nil, err
	}
	bbbv, err := strconv.Atoi(string(bbbvStr))
	if err != nil {
		return nil, fmt.Errorf("%w: 3BV %q", ErrInvalidParams, bbbvStr)
	}
	s.Static.BBBV = bbbv

	timeStr, err := readUntil(c, ']')
	if err != nil {
		return nil, err
	}
	// Some recorders write the decimal separator as a comma.
	rtime, err := strconv.ParseFloat(strings.ReplaceAll(string(timeStr), ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: time %q", ErrInvalidParams, timeStr)
	}
	if err := s.SetRTime(rtime); err != nil {
		return nil, err
	}

	// Align on the first 8-byte event frame: its third byte holds the
	// low second counter at 1 and its second byte, the x high byte, is
	// at most 1.
	var frame [8]byte
	for frame[2] != 1 || frame[1] > 1 {
		frame[0], frame[1] = frame[1], frame[2]
		if frame[2], err = c.u8(); err != nil {
			return nil, err
		}
	}
	for i := 3; i < 8; i++ {
		if frame[i], err = c.u8(); err != nil {
			return nil, err
		}
	}
	for {
		action, err := avfButton(frame[0])
		if err != nil {
			return nil, err
		}
		s.Events = append(s.Events, &replay.Event{
			Time: float64(uint16(frame[6])<<8|uint16(frame[2])) - 1.0 +
				float64(frame[4])/100.0,
			Action: action,
			X:      uint16(frame[1])<<8 | uint16(frame[3]),
			Y:      uint16(frame[5])<<8 | uint16(frame[7]),
		})
		for i := 0; i < 8; i++ {
			if frame[i], err = c.u8(); err != nil {
				return nil, err
			}
		}
		if frame[2] == 0 && frame[6] == 0 {
			break
		}
	}

	// Trailer: the player name follows the "Skin:" line.
	for _, marker := range []byte("Skin:\r") {
		for {
			v, err := c.char()
			if err != nil {
				return nil, err
			}
			if v == marker {
				break
			}
		}
	}
	if s.PlayerDesignator, err = readUntil(c, '\r'); err != nil {
		return nil, err
	}
	s.Software = []byte("Arbiter")
	s.CanAnalyse = true
	logger.Debug().
		Int("width", s.Width).
		Int("height", s.Height).
		Int("mines", s.MineNum).
		Int("events", len(s.Events)).
		Msg("Decoded AVF recording")
	return s, nil
}

// readUntil consumes bytes up to, but not including, the terminator.
func readUntil(c *cursor, term byte) ([]byte, error) {
	var out []byte
	for {
		v, err := c.char()
		if err != nil {
			return nil, err
		}
		if v == term {
			return out, nil
		}
		out = append(out, v)
	}
}
