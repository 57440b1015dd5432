// Package db opens the sqlite database and applies the schema.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"embed"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqlFiles embed.FS

var (
	instance *sql.DB
	dbErr    error
	dbCreate sync.Once
)

// GetDB opens the database once, creating it if needed. The path comes from
// config, defaulting to the XDG data dir.
func GetDB() *sql.DB {
	dbCreate.Do(func() {
		path := viper.GetString("database.path")
		if path == "" {
			dir := filepath.Join(xdg.DataHome, "hubchat-server")
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Fatalf("error creating data dir (%s): %v", dir, err)
			}
			path = filepath.Join(dir, "hubchat.sqlite")
		}
		instance, dbErr = Open(path)
		if dbErr != nil {
			log.Fatalf("error opening db: %v", dbErr)
		}
	})
	return instance
}

// Open opens (creating if needed) the database at path and applies the
// embedded schema. Tests call this with ":memory:".
//
// journal_mode, busy_timeout and foreign_keys are per-connection state, so
// they ride the DSN and the driver applies them to every connection the
// pool opens; a pool-level Exec would only reach whichever connection
// happened to serve it, and cascade deletes would silently stop working on
// the rest.
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %w", err)
	}

	// SQLite is single-writer; more connections waste FDs and increase
	// lock contention
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)
	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging db: %w", err)
	}

	schema, _ := sqlFiles.ReadFile("schema.sql")
	if _, err := conn.Exec(string(schema)); err != nil {
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return conn, nil
}
