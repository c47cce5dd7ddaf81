package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultName = "recordkeep"

type Config struct {
	// Name identifies the in-memory database. Connections opened with the
	// same name inside one process see the same data.
	Name string
}

// DSN returns the SQLite URI for an in-memory database. Nothing is written
// to disk; the data is gone once the last connection closes.
func DSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
}

// Open opens the in-memory database on a single connection, which also keeps
// the database alive for as long as conn is open.
func Open(cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", DSN(cfg.Name))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	return conn, nil
}
