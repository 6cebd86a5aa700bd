package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// dialect holds the statements that differ between SQL backends. Statements
// are executed one at a time; the mysql driver rejects multi-statement Exec
// unless the DSN enables it.
type dialect struct {
	name          string
	schema        []string
	insertVersion string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    category TEXT NOT NULL,
    code INTEGER NOT NULL,
    severity TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    borrowed INTEGER NOT NULL DEFAULT 0,
    release_failures INTEGER NOT NULL DEFAULT 0,
    aborted INTEGER NOT NULL DEFAULT 0,
    duration_ns INTEGER NOT NULL,
    started_at INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_started_at ON audit_records(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_category ON audit_records(category)`,
		`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`,
	},
	insertVersion: `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
    id VARCHAR(36) NOT NULL PRIMARY KEY,
    request_id VARCHAR(128) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    category VARCHAR(16) NOT NULL,
    code INT NOT NULL,
    severity VARCHAR(16) NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    borrowed INT NOT NULL DEFAULT 0,
    release_failures INT NOT NULL DEFAULT 0,
    aborted TINYINT(1) NOT NULL DEFAULT 0,
    duration_ns BIGINT NOT NULL,
    started_at BIGINT NOT NULL,
    INDEX idx_audit_started_at (started_at),
    INDEX idx_audit_request_id (request_id),
    INDEX idx_audit_category (category)
)`,
		`CREATE TABLE IF NOT EXISTS schema_version (
    version INT NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`,
	},
	insertVersion: `INSERT IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
}

// Statements shared by every dialect. Times are stored as Unix nanoseconds
// so no driver-specific time parsing is involved.
const (
	insertRecord = `INSERT INTO audit_records (
    id, request_id, kind, category, code, severity, message,
    borrowed, release_failures, aborted, duration_ns, started_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecords = `SELECT id, request_id, kind, category, code, severity, message,
    borrowed, release_failures, aborted, duration_ns, started_at
FROM audit_records
ORDER BY started_at DESC, id DESC`

	deleteBefore = `DELETE FROM audit_records WHERE started_at < ?`

	// selectKeepCutoff finds the start time of the oldest record to keep.
	selectKeepCutoff = `SELECT started_at FROM audit_records
ORDER BY started_at DESC, id DESC
LIMIT 1 OFFSET ?`

	countRecords = `SELECT COUNT(*) FROM audit_records`

	getSchemaVersion = `SELECT MAX(version) FROM schema_version`
)
