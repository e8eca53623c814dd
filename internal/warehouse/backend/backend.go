// Package backend opens the warehouse selected in the configuration.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mlprep/internal/blob"
	"mlprep/internal/warehouse"
	"mlprep/internal/warehouse/duckdb"
	"mlprep/internal/warehouse/postgres"
	"mlprep/internal/warehouse/snowflake"
	"mlprep/pkg/errors"
	"mlprep/pkg/models"
)

const (
	Snowflake = "snowflake"
	Postgres  = "postgres"
	DuckDB    = "duckdb"
)

// Names lists the supported backends.
var Names = []string{DuckDB, Postgres, Snowflake}

// Ephemeral reports whether cfg selects a warehouse whose tables vanish when
// the process exits.
func Ephemeral(cfg models.Config) bool {
	switch strings.ToLower(cfg.Warehouse.Backend) {
	case DuckDB, "":
		return !(duckdb.Dialect{Dir: cfg.Warehouse.DuckDB.Dir}).Persistent()
	}
	return false
}

// Open connects to the configured backend and wraps it in a warehouse
// service. blobs is used by backends that read the CSV source client side.
func Open(ctx context.Context, cfg models.Config, blobs blob.Opener, log *zap.Logger) (*warehouse.Service, error) {
	var (
		db      *sql.DB
		dialect warehouse.Dialect
		err     error
	)

	name := strings.ToLower(cfg.Warehouse.Backend)
	switch name {
	case Snowflake:
		var d snowflake.Dialect
		db, d, err = snowflake.Open(ctx, snowflake.Config{
			Account:            cfg.Warehouse.Snowflake.Account,
			Username:           cfg.Warehouse.Snowflake.Username,
			Password:           cfg.Warehouse.Snowflake.Password,
			Role:               cfg.Warehouse.Snowflake.Role,
			Warehouse:          cfg.Warehouse.Snowflake.Warehouse,
			StorageIntegration: cfg.Warehouse.Snowflake.StorageIntegration,
			Timeout:            cfg.Warehouse.Timeout,
		})
		dialect = d
	case Postgres:
		var d postgres.Dialect
		db, d, err = postgres.Open(ctx, cfg.Warehouse.Postgres.DSN, blobs)
		dialect = d
	case DuckDB, "":
		name = DuckDB
		var d duckdb.Dialect
		db, d, err = duckdb.Open(ctx, cfg.Warehouse.DuckDB.Dir, blobs)
		dialect = d
	default:
		return nil, errors.New(errors.ErrCodeUnknownBackend, fmt.Sprintf("unknown warehouse backend %q", cfg.Warehouse.Backend)).
			WithContext("field", "warehouse.backend").
			WithSuggestions("Use one of: " + strings.Join(Names, ", "))
	}
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("Connected to warehouse", zap.String("backend", name))
	}
	return warehouse.NewService(db, dialect, warehouse.Config{
		Timeout: cfg.Warehouse.Timeout,
		Logger:  log,
	}), nil
}
