package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/ilias-t/griblet/pkg/logger"
)

// GribRecord is one catalogued GRIB file: where the source lives, where its
// cache artifact lives, and the bookkeeping the UI lists.
type GribRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SourcePath string     `json:"source_path"`
	CachePath  string     `json:"cache_path"`
	RefTime    *time.Time `json:"ref_time,omitempty"`
	SizeBytes  int64      `json:"size_bytes"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RecordStorage handles storage of GRIB file records
type RecordStorage struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger *logger.Logger
}

// NewRecordStorage opens (or creates) the SQLite catalog at dbPath
func NewRecordStorage(dbPath string, clock clockwork.Clock, log *logger.Logger) (*RecordStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	storage := &RecordStorage{
		db:     db,
		clock:  clock,
		logger: log.Named("sqlite-records"),
	}

	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *RecordStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS grib_records (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source_path TEXT NOT NULL,
			cache_path TEXT NOT NULL,
			ref_time TIMESTAMP,
			size_bytes INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create grib_records table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_created_at ON grib_records(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}

// Insert stores a new record. CreatedAt is stamped from the storage clock
// when zero.
func (s *RecordStorage) Insert(record *GribRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.clock.Now().UTC()
	}

	var refTime interface{}
	if record.RefTime != nil {
		refTime = record.RefTime.UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(
		`INSERT INTO grib_records (id, name, source_path, cache_path, ref_time, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Name,
		record.SourcePath,
		record.CachePath,
		refTime,
		record.SizeBytes,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert grib record: %w", err)
	}
	return nil
}

// GetByID returns one record, or nil when it does not exist
func (s *RecordStorage) GetByID(id string) (*GribRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, name, source_path, cache_path, ref_time, size_bytes, created_at
		FROM grib_records WHERE id = ?`, id)

	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grib record: %w", err)
	}
	return record, nil
}

// List returns all records, newest first
func (s *RecordStorage) List() ([]*GribRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, source_path, cache_path, ref_time, size_bytes, created_at
		FROM grib_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query grib records: %w", err)
	}
	defer rows.Close()

	var records []*GribRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grib record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes a record. It reports whether a row was actually deleted.
func (s *RecordStorage) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM grib_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete grib record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteOlderThan removes every record created before the cutoff and returns
// the removed records so the caller can clean up their files.
func (s *RecordStorage) DeleteOlderThan(cutoff time.Time) ([]*GribRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, source_path, cache_path, ref_time, size_bytes, created_at
		FROM grib_records WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired records: %w", err)
	}
	defer rows.Close()

	var expired []*GribRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired record: %w", err)
		}
		expired = append(expired, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, record := range expired {
		if _, err := s.db.Exec(`DELETE FROM grib_records WHERE id = ?`, record.ID); err != nil {
			return nil, fmt.Errorf("failed to delete expired record %s: %w", record.ID, err)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("Expired records removed from catalog",
			logger.Int("count", len(expired)),
			logger.Time("cutoff", cutoff))
	}
	return expired, nil
}

// Close closes the underlying database
func (s *RecordStorage) Close() error {
	return s.db.Close()
}

// GetDB exposes the underlying handle for components sharing the database
func (s *RecordStorage) GetDB() *sql.DB {
	return s.db
}

func scanRecord(scan func(dest ...interface{}) error) (*GribRecord, error) {
	var record GribRecord
	var refTime sql.NullString
	var createdAt string

	if err := scan(
		&record.ID,
		&record.Name,
		&record.SourcePath,
		&record.CachePath,
		&refTime,
		&record.SizeBytes,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if refTime.Valid {
		t, err := time.Parse(time.RFC3339, refTime.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ref_time: %w", err)
		}
		record.RefTime = &t
	}

	return &record, nil
}
