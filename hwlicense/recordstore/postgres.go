package recordstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresTable = "license_keys"

// validIdentifier matches safe PostgreSQL identifiers (letters, digits, underscores).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName sets the PostgreSQL table name. Default: "license_keys".
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		s.tableName = name
	}
}

// PostgresStore implements RecordStore using PostgreSQL.
// A NULL hwid is an unrestricted key; an empty string is an open binding.
type PostgresStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresStore creates a new PostgreSQL-backed record store.
// It auto-creates the table on initialization.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:      pool,
		tableName: defaultPostgresTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validIdentifier.MatchString(s.tableName) {
		return nil, fmt.Errorf("invalid table name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", s.tableName)
	}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key             TEXT PRIMARY KEY,
			hwid            TEXT,
			duration_days   INTEGER,
			activation_date DATE
		);
	`, s.tableName)
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Find(ctx context.Context, key string) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT key, hwid, duration_days, to_char(activation_date, 'YYYY-MM-DD')
		FROM %s WHERE key = $1
	`, s.tableName)

	var doc Document
	err := s.pool.QueryRow(ctx, query, key).Scan(&doc.Key, &doc.HWID, &doc.DurationDays, &doc.ActivationDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return doc.Record()
}

func (s *PostgresStore) UpdateIfFieldEmpty(ctx context.Context, key string, field Field, value string) (bool, error) {
	if value == "" {
		return false, fmt.Errorf("update %s: %w", field, ErrEmptyValue)
	}
	var query string
	switch field {
	case FieldHWID:
		query = fmt.Sprintf(`UPDATE %s SET hwid = $2 WHERE key = $1 AND hwid = ''`, s.tableName)
	case FieldActivationDate:
		if _, err := ParseDate(value); err != nil {
			return false, err
		}
		query = fmt.Sprintf(`UPDATE %s SET activation_date = $2::date WHERE key = $1 AND activation_date IS NULL`, s.tableName)
	default:
		return false, fmt.Errorf("update %s: unsupported field", field)
	}

	tag, err := s.pool.Exec(ctx, query, key, value)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", field, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Insert stores a new record. Issuing keys is outside this package's job;
// Insert exists for seeding and tests.
func (s *PostgresStore) Insert(ctx context.Context, doc Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, hwid, duration_days, activation_date)
		VALUES ($1, $2, $3, $4::date)
	`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, doc.Key, doc.HWID, doc.DurationDays, doc.ActivationDate); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	return nil // caller manages the pgxpool.Pool lifecycle
}
