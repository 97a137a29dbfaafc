// Package db provides database connection handling
package db

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for PostgreSQL

	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/logx"
)

var dbLogger = logx.GetScope("db")

var baseDB *sql.DB

// Open opens a DB connection using pgx.
func Open(cfg *config.Config) (*sql.DB, func(), error) {
	sqldb, err := sql.Open("pgx", cfg.PG.URL)
	if err != nil {
		return nil, func() {}, err
	}
	sqldb.SetMaxOpenConns(cfg.PG.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.PG.MaxIdleConns)
	baseDB = sqldb

	closer := func() {
		baseDB = nil
		if err := sqldb.Close(); err != nil {
			dbLogger.Sugar().Errorf("close db: %v", err)
		}
	}
	return sqldb, closer, nil
}

// UpdatePool updates DB pool settings at runtime.
func UpdatePool(maxOpen, maxIdle int) {
	if baseDB == nil {
		return
	}
	if maxOpen > 0 {
		baseDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		baseDB.SetMaxIdleConns(maxIdle)
	}
}
