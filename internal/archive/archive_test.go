package archive

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/replay"
)

func testSession(t *testing.T) *replay.Session {
	t.Helper()
	s := replay.NewParsedSession()
	s.Height, s.Width, s.MineNum = 8, 8, 10
	s.Software = []byte("Arbiter")
	s.PlayerDesignator = []byte("Villager")
	s.Static.BBBV = 12
	s.VideoDynamic.BBBVSolved = 12
	s.VideoDynamic.STNB = 80.5
	s.IsCompleted = true
	require.NoError(t, s.SetRTime(23.4))
	s.Board = board.New(8, 8)
	return s
}

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "replays.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndGet(t *testing.T) {
	store := openStore(t)
	raw := bytes.Repeat([]byte("avf bytes "), 100)

	id, err := store.Add("game.avf", raw, testSession(t))
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "game.avf", rec.FileName)
	assert.Equal(t, "Arbiter", rec.Software)
	assert.Equal(t, "Villager", rec.Player)
	assert.Equal(t, 8, rec.Width)
	assert.Equal(t, 10, rec.MineNum)
	assert.Equal(t, 12, rec.BBBV)
	assert.Equal(t, 23.4, rec.RTime)
	assert.True(t, rec.Completed)
	assert.Equal(t, raw, rec.Raw, "original bytes survive compression")
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.Get(42)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	store := openStore(t)

	for i := 0; i < 3; i++ {
		_, err := store.Add("game.evf", []byte{1, 2, 3}, testSession(t))
		require.NoError(t, err)
	}

	records, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Most recent first.
	assert.Greater(t, records[0].ID, records[2].ID)
	// Listings omit the raw payload.
	assert.Nil(t, records[0].Raw)

	records, err = store.List(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDelete(t *testing.T) {
	store := openStore(t)

	id, err := store.Add("game.evf", []byte{1}, testSession(t))
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.Error(t, err)

	assert.Error(t, store.Delete(id), "double delete reports missing replay")
}
