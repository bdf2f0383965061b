// Package meterdb persists readings collected from the EMU-2.
// meter_collector is the only writer; other services may read.
package meterdb

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var (
	shared     *sql.DB
	sharedOnce sync.Once
)

// Open opens the sqlite file at path, creating it if needed, and checks that
// it answers.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open meter db %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reach meter db %s: %w", path, err)
	}
	return conn, nil
}

// GetDB returns the process-wide connection to the meter database in the
// data dir.
func GetDB() *sql.DB {
	sharedOnce.Do(func() {
		conn, err := Open(pathing.GetMeterDbPath())
		if err != nil {
			log.Fatal().Err(err).Msg("meter database unavailable")
		}
		shared = conn
	})
	return shared
}

// InitializeDatabase applies pending migrations. Call once on startup.
func InitializeDatabase() {
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(GetDB(), migrationFS, "migrations")
	log.Info().Str("path", pathing.GetMeterDbPath()).Msg("meter database ready")
}
