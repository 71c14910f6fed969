package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"geoscan/pkg/db"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	BundleStore
	EnergyLedger
	StateStore

	// Ping checks the connection.
	Ping(ctx context.Context) error
	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Bundles ---

// SaveBundle inserts or replaces a bundle. The payload is stored gzip-compressed.
func (s *SQLiteStore) SaveBundle(ctx context.Context, rec *BundleRecord) error {
	payload := rec.Payload
	if compressed, err := compress(payload); err == nil {
		payload = compressed
	}

	query := `INSERT OR REPLACE INTO scan_bundles
		(id, sequence, started, completed, mode, detections, energy_uah, total_energy_uah, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, int64(rec.Sequence), rec.Started.UTC(), rec.Completed.UTC(), rec.Mode,
		rec.Detections, int64(rec.EnergyUAh), int64(rec.TotalEnergyUAh), payload)
	return err
}

// GetBundle returns a bundle by ID, or nil if it is unknown.
func (s *SQLiteStore) GetBundle(ctx context.Context, id string) (*BundleRecord, error) {
	row := s.db.QueryRowContext(ctx, bundleSelect+` WHERE id = ?`, id)
	rec, err := scanBundle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	return rec, err
}

// LatestBundles returns up to limit bundles, newest first.
func (s *SQLiteStore) LatestBundles(ctx context.Context, limit int) ([]*BundleRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, bundleSelect+` ORDER BY sequence DESC, completed DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BundleRecord
	for rows.Next() {
		rec, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const bundleSelect = `SELECT id, sequence, started, completed, mode, detections, energy_uah, total_energy_uah, payload FROM scan_bundles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBundle(row rowScanner) (*BundleRecord, error) {
	var rec BundleRecord
	var seq, energy, total int64
	var mode sql.NullString
	var detections sql.NullInt64
	var payload []byte

	if err := row.Scan(&rec.ID, &seq, &rec.Started, &rec.Completed, &mode, &detections, &energy, &total, &payload); err != nil {
		return nil, err
	}
	rec.Sequence = uint64(seq)
	rec.EnergyUAh = uint64(energy)
	rec.TotalEnergyUAh = uint64(total)
	rec.Mode = mode.String
	rec.Detections = int(detections.Int64)

	// Transparent Decompression
	if len(payload) > 2 && payload[0] == 0x1f && payload[1] == 0x8b {
		if decompressed, err := decompress(payload); err == nil {
			payload = decompressed
		}
	}
	rec.Payload = payload
	return &rec, nil
}

// --- Energy Ledger ---

// AppendEnergy records one scan. A scan ID already in the ledger is ignored.
func (s *SQLiteStore) AppendEnergy(ctx context.Context, e EnergyEntry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	query := `INSERT OR IGNORE INTO energy_ledger (scan_id, technology, energy_uah, recorded_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, e.ScanID, e.Technology, int64(e.EnergyUAh), e.RecordedAt.UTC())
	return err
}

// SumEnergy returns the lifetime total and the number of ledger rows.
func (s *SQLiteStore) SumEnergy(ctx context.Context) (total uint64, scans int, err error) {
	var sum int64
	err = s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(energy_uah), 0), COUNT(*) FROM energy_ledger").Scan(&sum, &scans)
	if err != nil {
		return 0, 0, err
	}
	return uint64(sum), scans, nil
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
