// Package archive persists analysed replays in a local SQLite database. The
// raw recording bytes are stored zstd-compressed so a replay can always be
// re-decoded and re-analysed from the archive alone.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Minesweeper-World/msreplay/internal/logger"
	"github.com/Minesweeper-World/msreplay/internal/replay"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Record is one archived replay: the identifying header fields, the final
// statistics and the compressed original file.
type Record struct {
	ID         int64
	FileName   string
	Software   string
	Player     string
	Width      int
	Height     int
	MineNum    int
	BBBV       int
	BBBVSolved int
	RTime      float64
	STNB       float64
	Completed  bool
	AddedAt    time.Time
	Raw        []byte
}

// Store defines the interface for replay persistence
type Store interface {
	Add(fileName string, raw []byte, s *replay.Session) (int64, error)
	Get(id int64) (*Record, error)
	List(limit int) ([]*Record, error)
	Delete(id int64) error
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSQLiteStore opens (or creates) a replay archive. An empty path defaults
// to ~/.msreplay/archive/replays.db. The compression level maps onto zstd
// speed levels 1 through 4.
func NewSQLiteStore(dbPath string, compressionLevel int) (*SQLiteStore, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".msreplay", "archive", "replays.db")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if compressionLevel < 1 || compressionLevel > 4 {
		compressionLevel = 2
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(compressionLevel)))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}

	store := &SQLiteStore{
		db:      db,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug().
		Str("path", dbPath).
		Msg("Opened replay archive")

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS replays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		software TEXT,
		player TEXT,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		mine_num INTEGER NOT NULL,
		bbbv INTEGER NOT NULL,
		bbbv_solved INTEGER NOT NULL,
		rtime REAL NOT NULL,
		stnb REAL NOT NULL,
		completed INTEGER NOT NULL,
		added_at INTEGER NOT NULL,
		raw BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_replays_player ON replays(player, rtime);
	CREATE INDEX IF NOT EXISTS idx_replays_added ON replays(added_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Add stores an analysed replay along with its compressed original bytes and
// returns the new record's id.
func (s *SQLiteStore) Add(fileName string, raw []byte, sess *replay.Session) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed := s.encoder.EncodeAll(raw, nil)

	res, err := s.db.Exec(
		`INSERT INTO replays (file_name, software, player, width, height, mine_num,
		 bbbv, bbbv_solved, rtime, stnb, completed, added_at, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileName, string(sess.Software), string(sess.PlayerDesignator),
		sess.Width, sess.Height, sess.MineNum,
		sess.Static.BBBV, sess.VideoDynamic.BBBVSolved,
		sess.GameDynamic.RTime, sess.VideoDynamic.STNB,
		sess.IsCompleted, time.Now().Unix(), compressed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to store replay: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get replay id: %w", err)
	}

	logger.Debug().
		Int64("id", id).
		Str("file", fileName).
		Int("raw_bytes", len(raw)).
		Int("stored_bytes", len(compressed)).
		Msg("Archived replay")

	return id, nil
}

// Get retrieves a replay by id, with the original bytes decompressed.
func (s *SQLiteStore) Get(id int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec Record
	var addedAt int64
	var compressed []byte

	err := s.db.QueryRow(
		`SELECT id, file_name, software, player, width, height, mine_num,
		 bbbv, bbbv_solved, rtime, stnb, completed, added_at, raw
		 FROM replays WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.FileName, &rec.Software, &rec.Player,
		&rec.Width, &rec.Height, &rec.MineNum,
		&rec.BBBV, &rec.BBBVSolved, &rec.RTime, &rec.STNB,
		&rec.Completed, &addedAt, &compressed)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("replay not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get replay: %w", err)
	}

	rec.AddedAt = time.Unix(addedAt, 0)
	if rec.Raw, err = s.decoder.DecodeAll(compressed, nil); err != nil {
		return nil, fmt.Errorf("failed to decompress replay %d: %w", id, err)
	}
	return &rec, nil
}

// List returns the most recently added replays, without their raw bytes.
func (s *SQLiteStore) List(limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, file_name, software, player, width, height, mine_num,
		 bbbv, bbbv_solved, rtime, stnb, completed, added_at
		 FROM replays ORDER BY added_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		var rec Record
		var addedAt int64
		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.Software, &rec.Player,
			&rec.Width, &rec.Height, &rec.MineNum,
			&rec.BBBV, &rec.BBBVSolved, &rec.RTime, &rec.STNB,
			&rec.Completed, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan replay: %w", err)
		}
		rec.AddedAt = time.Unix(addedAt, 0)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Delete removes a replay by id.
func (s *SQLiteStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM replays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete replay: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("replay not found: %d", id)
	}
	return nil
}

// Close releases the database and the compressor state.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}
