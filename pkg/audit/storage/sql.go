package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"
	// Registers the cgo "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"mercator-hq/lifecycle/pkg/audit"
)

var errClosed = errors.New("storage closed")

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" opens a private in-memory
	// database.
	Path string

	// Driver is the database/sql driver name, "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       "sqlite",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// MySQLConfig contains configuration for the MySQL storage backend.
type MySQLConfig struct {
	// DSN is the go-sql-driver/mysql data source name.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStorage implements audit.Storage over database/sql.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var _ audit.Storage = (*SQLStorage)(nil)

// NewSQLiteStorage opens a SQLite database and creates the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite"
	}

	if config.Path != ":memory:" {
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, audit.NewStorageError("sqlite", "open", err)
			}
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	maxOpen := config.MaxOpenConns
	if config.Path == ":memory:" {
		// Each connection to ":memory:" is a separate database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLStorage{
		db:      db,
		dialect: sqliteDialect,
		logger:  slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initializeSQLite(config); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", maxOpen,
	)
	return s, nil
}

// NewMySQLStorage connects to MySQL and creates the schema.
func NewMySQLStorage(config *MySQLConfig) (*SQLStorage, error) {
	if config == nil || config.DSN == "" {
		return nil, audit.NewStorageError("mysql", "open", errors.New("dsn is required"))
	}

	db, err := sql.Open("mysql", config.DSN)
	if err != nil {
		return nil, audit.NewStorageError("mysql", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	s := &SQLStorage{
		db:      db,
		dialect: mysqlDialect,
		logger:  slog.Default().With("component", "audit.storage.mysql"),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("MySQL storage initialized",
		"max_open_conns", config.MaxOpenConns,
		"conn_max_lifetime", config.ConnMaxLifetime,
	)
	return s, nil
}

// initializeSQLite applies connection pragmas and creates the schema.
func (s *SQLStorage) initializeSQLite(config *SQLiteConfig) error {
	if config.WALMode && config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	return s.createSchema()
}

// createSchema creates the tables and checks the schema version.
func (s *SQLStorage) createSchema() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return audit.NewStorageError(s.dialect.name, "create_schema", err)
		}
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(s.dialect.insertVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return audit.NewStorageError(s.dialect.name, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError(s.dialect.name, "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return audit.NewStorageError(s.dialect.name, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}
	return nil
}

// Store inserts record.
func (s *SQLStorage) Store(ctx context.Context, record *audit.Record) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID,
		record.RequestID,
		record.Kind,
		record.Category,
		record.Code,
		record.Severity,
		record.Message,
		record.Borrowed,
		record.ReleaseFailures,
		record.Aborted,
		int64(record.Duration),
		record.StartedAt.UnixNano(),
	)
	if err != nil {
		return audit.NewStorageError(s.dialect.name, "store", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *SQLStorage) List(ctx context.Context, limit int) ([]*audit.Record, error) {
	query := selectRecords
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, audit.NewStorageError(s.dialect.name, "list", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		var (
			r          audit.Record
			durationNs int64
			startedAt  int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.RequestID,
			&r.Kind,
			&r.Category,
			&r.Code,
			&r.Severity,
			&r.Message,
			&r.Borrowed,
			&r.ReleaseFailures,
			&r.Aborted,
			&durationNs,
			&startedAt,
		); err != nil {
			return nil, audit.NewStorageError(s.dialect.name, "scan", err)
		}
		r.Duration = time.Duration(durationNs)
		r.StartedAt = time.Unix(0, startedAt).UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(s.dialect.name, "list", err)
	}
	return records, nil
}

// DeleteBefore deletes records that started before t.
func (s *SQLStorage) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, deleteBefore, t.UnixNano())
	if err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "delete", err)
	}
	return deleted, nil
}

// DeleteOldest deletes records older than the keep-th newest one.
func (s *SQLStorage) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep <= 0 {
		result, err := s.db.ExecContext(ctx, "DELETE FROM audit_records")
		if err != nil {
			return 0, audit.NewStorageError(s.dialect.name, "delete", err)
		}
		deleted, _ := result.RowsAffected()
		return deleted, nil
	}

	var cutoff int64
	err := s.db.QueryRowContext(ctx, selectKeepCutoff, keep-1).Scan(&cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "delete", err)
	}

	result, err := s.db.ExecContext(ctx, deleteBefore, cutoff)
	if err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "delete", err)
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (s *SQLStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, countRecords).Scan(&count); err != nil {
		return 0, audit.NewStorageError(s.dialect.name, "count", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError(s.dialect.name, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(s.dialect.name, "close", err)
	}
	s.logger.Info("storage closed")
	return nil
}
