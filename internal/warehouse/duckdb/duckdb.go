// Package duckdb is the embedded warehouse backend. Each project is a DuckDB
// database file attached under the project name, and datasets are schemas
// inside it.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"mlprep/internal/blob"
	"mlprep/internal/common"
	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

// Dialect renders DuckDB SQL.
type Dialect struct {
	// Dir holds one <project>.duckdb file per project. Empty attaches
	// in-memory catalogs.
	Dir string
	// Blobs opens remote sources, which are copied to a local file before
	// loading.
	Blobs blob.Opener
}

var (
	_ warehouse.Dialect         = Dialect{}
	_ warehouse.CatalogPreparer = Dialect{}
)

func (Dialect) Name() string { return "duckdb" }

func (Dialect) Quote(ident string) string { return warehouse.QuoteIdent(ident) }

func (Dialect) TypeName(t warehouse.FieldType) string {
	switch t {
	case warehouse.FieldNumeric:
		return "DECIMAL(38,9)"
	default:
		return "VARCHAR"
	}
}

func (d Dialect) CreateDatasetSQL(ds warehouse.DatasetRef) []string {
	return []string{fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", d.Quote(ds.Project), d.Quote(ds.Dataset))}
}

// BucketExpr hashes a row value built from every column. DuckDB's hash is
// unsigned so no ABS is needed.
func (d Dialect) BucketExpr(alias string, columns warehouse.Schema) string {
	return fmt.Sprintf("hash(row(%s)) %% %d", strings.Join(warehouse.ColumnList(d, alias, columns), ", "), warehouse.BucketCount)
}

func (d Dialect) ReplaceTableSQL(ref warehouse.TableRef, query string) string {
	return warehouse.CreateOrReplaceTableSQL(d, ref, query)
}

// InMemory as Dir keeps every project catalog in memory, as does an empty Dir.
const InMemory = ":memory:"

// Persistent reports whether project catalogs are backed by files.
func (d Dialect) Persistent() bool {
	return d.Dir != "" && d.Dir != InMemory
}

// CatalogPath returns the database file backing project.
func (d Dialect) CatalogPath(project string) string {
	if !d.Persistent() {
		return InMemory
	}
	return filepath.Join(d.Dir, project+".duckdb")
}

// PrepareCatalog attaches the project database, creating the file if needed.
func (d Dialect) PrepareCatalog(ctx context.Context, db *sql.DB, project string) error {
	if d.Persistent() {
		if err := os.MkdirAll(d.Dir, common.DirPermissionNormal); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create DuckDB directory").
				WithContext("dir", d.Dir)
		}
	}

	stmt := fmt.Sprintf("ATTACH IF NOT EXISTS %s AS %s", warehouse.QuoteLiteral(d.CatalogPath(project)), d.Quote(project))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.SQLError("Failed to attach project database", stmt, err)
	}
	return nil
}

// CopyCSV loads a local file with COPY. Remote blobs are downloaded first.
func (d Dialect) CopyCSV(ctx context.Context, db *sql.DB, ref warehouse.TableRef, source string, schema warehouse.Schema, opts warehouse.CSVOptions) error {
	opener := d.Blobs
	if opener == nil {
		opener = blob.NewStore(blob.Config{})
	}
	local, cleanup, err := blob.Localize(ctx, opener, source)
	if err != nil {
		return err
	}
	defer cleanup()

	stmt := d.CopyStatement(ref, local, opts)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.SQLError("COPY failed", stmt, err)
	}
	return nil
}

// CopyStatement renders COPY ... FROM for a local CSV file.
func (d Dialect) CopyStatement(ref warehouse.TableRef, path string, opts warehouse.CSVOptions) string {
	format := "FORMAT csv, HEADER false"
	switch {
	case opts.SkipLeadingRows == 1:
		format = "FORMAT csv, HEADER true"
	case opts.SkipLeadingRows > 1:
		format = fmt.Sprintf("FORMAT csv, HEADER false, SKIP %d", opts.SkipLeadingRows)
	}
	return fmt.Sprintf("COPY %s FROM %s (%s)", warehouse.Qualified(d, ref), warehouse.QuoteLiteral(path), format)
}

// Open starts an in-process DuckDB instance. Project catalogs are attached
// lazily by the service.
func Open(ctx context.Context, dir string, blobs blob.Opener) (*sql.DB, Dialect, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, Dialect{}, errors.ConnectionError("Failed to open DuckDB", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, errors.ConnectionError("Failed to start DuckDB", err)
	}
	// Statements are serialized on one connection.
	db.SetMaxOpenConns(1)
	return db, Dialect{Dir: dir, Blobs: blobs}, nil
}
