// Package storage provides audit record storage backends.
//
// MemoryStorage keeps a bounded number of records in memory and suits tests
// and single-process deployments. SQLStorage persists records through
// database/sql with one of three drivers:
//
//   - "sqlite" (modernc.org/sqlite, pure Go)
//   - "sqlite3" (github.com/mattn/go-sqlite3, cgo)
//   - "mysql" (github.com/go-sql-driver/mysql)
//
// SQLite databases run in WAL mode with a busy timeout. Times are stored as
// Unix nanoseconds.
package storage
