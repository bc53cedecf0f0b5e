package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/replay"
)

func sampleSession(t *testing.T) *replay.Session {
	t.Helper()
	s := replay.NewParsedSession()
	s.Height, s.Width, s.MineNum = 4, 4, 2
	s.Mode = 0
	s.Static.BBBV = 3
	s.IsCompleted = true
	s.IsFair = true
	require.NoError(t, s.SetRTime(12.345))

	s.Software = []byte("msreplay")
	s.PlayerDesignator = []byte("Villager")
	s.Country = []byte("XX")

	s.Board = board.New(4, 4)
	s.Board[0][0] = board.Mine
	s.Board[0][3] = board.Mine
	board.CalNumbers(s.Board)

	s.Events = []*replay.Event{
		{Time: 0.25, Action: replay.ActionMove, X: 100, Y: 100},
		{Time: 0.5, Action: replay.ActionLeftDown, X: 8, Y: 56},
		{Time: 1.0, Action: replay.ActionLeftUp, X: 8, Y: 56},
		{Time: 1.75, Action: replay.ActionRightDown, X: 8, Y: 8},
		{Time: 2.0, Action: replay.ActionRightUp, X: 8, Y: 8},
	}
	return s
}

func TestEVFRoundTrip(t *testing.T) {
	s := sampleSession(t)
	s.Checksum = bytes.Repeat([]byte{0xAB}, 32)

	enc, err := EncodeEVF(s)
	require.NoError(t, err)

	dec, err := DecodeEVF(enc)
	require.NoError(t, err)

	assert.Equal(t, s.Height, dec.Height)
	assert.Equal(t, s.Width, dec.Width)
	assert.Equal(t, s.MineNum, dec.MineNum)
	assert.Equal(t, s.Static.BBBV, dec.Static.BBBV)
	assert.Equal(t, s.GameDynamic.RTimeMS, dec.GameDynamic.RTimeMS)
	assert.Equal(t, s.GameDynamic.RTime, dec.GameDynamic.RTime)
	assert.True(t, dec.IsCompleted)
	assert.False(t, dec.IsOfficial)
	assert.True(t, dec.IsFair)
	assert.Equal(t, s.Software, dec.Software)
	assert.Equal(t, s.PlayerDesignator, dec.PlayerDesignator)
	assert.Equal(t, s.Country, dec.Country)
	assert.Equal(t, s.Board, dec.Board)
	assert.Equal(t, s.Checksum, dec.Checksum)
	assert.True(t, dec.CanAnalyse)

	require.Len(t, dec.Events, len(s.Events))
	for i, ev := range s.Events {
		assert.Equal(t, ev.Action, dec.Events[i].Action, "event %d action", i)
		assert.Equal(t, ev.Time, dec.Events[i].Time, "event %d time", i)
		assert.Equal(t, ev.X, dec.Events[i].X, "event %d x", i)
		assert.Equal(t, ev.Y, dec.Events[i].Y, "event %d y", i)
	}

	// Decoding and re-encoding reproduces the file byte for byte.
	enc2, err := EncodeEVF(dec)
	require.NoError(t, err)
	assert.Equal(t, enc, enc2)
}

func TestEVFWithoutChecksum(t *testing.T) {
	s := sampleSession(t)

	enc, err := EncodeEVF(s)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), enc[len(enc)-1])

	dec, err := DecodeEVF(enc)
	require.NoError(t, err)
	assert.Nil(t, dec.Checksum)

	enc2, err := EncodeEVF(dec)
	require.NoError(t, err)
	assert.Equal(t, enc, enc2)
}

func TestEVFAnalysableAfterDecode(t *testing.T) {
	s := sampleSession(t)
	// Open the bottom-left opening, then flag the corner mine.
	enc, err := EncodeEVF(s)
	require.NoError(t, err)

	dec, err := DecodeEVF(enc)
	require.NoError(t, err)
	require.NoError(t, dec.Analyse())

	assert.Equal(t, 1, dec.GameDynamic.Left)
	assert.Equal(t, 1, dec.GameDynamic.Flag)
	assert.Equal(t, 2, dec.VideoDynamic.CE)
}

func TestEncodeEVFRejectsBoardMismatch(t *testing.T) {
	s := sampleSession(t)
	s.Height = 5

	_, err := EncodeEVF(s)
	require.ErrorIs(t, err, ErrInvalidBoardSize)

	s = sampleSession(t)
	s.Board[2] = s.Board[2][:3]
	_, err = EncodeEVF(s)
	require.ErrorIs(t, err, ErrInvalidBoardSize)
}

func TestDecodeEVFTruncated(t *testing.T) {
	s := sampleSession(t)
	enc, err := EncodeEVF(s)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 5, len(enc) / 2, len(enc) - 1} {
		_, err := DecodeEVF(enc[:n])
		assert.Error(t, err, "truncated at %d bytes", n)
	}
}

func TestDecodeEVFUnknownTagTolerated(t *testing.T) {
	s := sampleSession(t)
	enc, err := EncodeEVF(s)
	require.NoError(t, err)

	// Splice an event record with an unrecognized tag in front of the
	// terminator.
	cut := len(enc) - 1
	spliced := append([]byte{}, enc[:cut]...)
	spliced = append(spliced, 42, 0, 0, 100, 0, 8, 0, 8)
	spliced = append(spliced, enc[cut:]...)

	dec, err := DecodeEVF(spliced)
	require.NoError(t, err)
	require.Len(t, dec.Events, len(s.Events)+1)
	assert.Equal(t, replay.ActionUnknown, dec.Events[len(dec.Events)-1].Action)
}
