// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. sqlx sits on top of database/sql for struct scanning, and
// golang-migrate applies the embedded schema migrations on startup.
//
// CONNECTION POOL AND PRAGMAS:
// sqlx.DB is a pool, not a connection. A plain `PRAGMA ...` Exec would only
// configure whichever pooled connection happened to run it, so every pragma
// is passed in the DSN and applied by the driver to each new connection:
//
//	data/dashboard.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&...
//
// _txlock=immediate makes BEGIN take the write lock up front, so two
// concurrent read-modify-write transactions queue on busy_timeout instead of
// failing with SQLITE_BUSY on lock upgrade. _time_format=sqlite stores
// time.Time values as "2006-01-02 15:04:05.999999999-07:00", which sorts
// correctly as text.
package sqlite

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB owns the connection pool and hands out the per-table stores.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema version.
//
// dbPath examples:
//   - "data/dashboard.db" → file-based database
//   - ":memory:"          → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate empty database, so the
	// pool is pinned to one connection.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. The health endpoint uses it.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Accounts() *AccountStore             { return &AccountStore{conn: db.conn} }
func (db *DB) Logs() *LogStore                     { return &LogStore{conn: db.conn} }
func (db *DB) Content() *ContentStore              { return &ContentStore{conn: db.conn} }
func (db *DB) Notes() *NoteStore                   { return &NoteStore{conn: db.conn} }
func (db *DB) ImportantDates() *ImportantDateStore { return &ImportantDateStore{conn: db.conn} }

// migrate applies every pending migration under migrations/.
//
// The migrate.Migrate value is not closed: its Close would also close the
// database handle it was given, which is still owned by db.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	defer src.Close()

	driver, err := sqlitemigrate.WithInstance(db.conn.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func dsn(dbPath string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
		"_time_format=sqlite",
	}
	if !isMemory(dbPath) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}
