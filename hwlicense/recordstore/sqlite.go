package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements RecordStore on an embedded SQLite database,
// for single-node deployments.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
      CREATE TABLE IF NOT EXISTS license_keys (
          key TEXT PRIMARY KEY,
          hwid TEXT,
          duration_days INTEGER,
          activation_date TEXT
      );
      `
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Find(ctx context.Context, key string) (*Record, error) {
	query := `SELECT key, hwid, duration_days, activation_date FROM license_keys WHERE key = ?`

	var (
		doc        Document
		hwid       sql.NullString
		duration   sql.NullInt64
		activation sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&doc.Key, &hwid, &duration, &activation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}

	if hwid.Valid {
		doc.HWID = &hwid.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		doc.DurationDays = &d
	}
	if activation.Valid {
		doc.ActivationDate = &activation.String
	}
	return doc.Record()
}

func (s *SQLiteStore) UpdateIfFieldEmpty(ctx context.Context, key string, field Field, value string) (bool, error) {
	if value == "" {
		return false, fmt.Errorf("update %s: %w", field, ErrEmptyValue)
	}
	var query string
	switch field {
	case FieldHWID:
		query = `UPDATE license_keys SET hwid = ? WHERE key = ? AND hwid = ''`
	case FieldActivationDate:
		if _, err := ParseDate(value); err != nil {
			return false, err
		}
		query = `UPDATE license_keys SET activation_date = ? WHERE key = ? AND activation_date IS NULL`
	default:
		return false, fmt.Errorf("update %s: unsupported field", field)
	}

	result, err := s.db.ExecContext(ctx, query, value, key)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", field, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: %w", field, err)
	}
	return rows == 1, nil
}

// Insert stores a new record. Issuing keys is outside this package's job;
// Insert exists for seeding and tests.
func (s *SQLiteStore) Insert(ctx context.Context, doc Document) error {
	query := `INSERT INTO license_keys (key, hwid, duration_days, activation_date) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, doc.Key, doc.HWID, doc.DurationDays, doc.ActivationDate)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close(_ context.Context) error {
	return s.db.Close()
}
