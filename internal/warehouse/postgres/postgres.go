// Package postgres is the PostgreSQL warehouse backend. A project is the
// database the DSN connects to and datasets are schemas.
package postgres

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"mlprep/internal/blob"
	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

// Dialect renders PostgreSQL SQL.
type Dialect struct {
	// Blobs opens the CSV source, which is streamed to the server with
	// COPY FROM STDIN.
	Blobs blob.Opener
}

var (
	_ warehouse.Dialect         = Dialect{}
	_ warehouse.CatalogPreparer = Dialect{}
)

func (Dialect) Name() string { return "postgres" }

func (Dialect) Quote(ident string) string { return warehouse.QuoteIdent(ident) }

func (Dialect) TypeName(t warehouse.FieldType) string {
	switch t {
	case warehouse.FieldNumeric:
		return "NUMERIC(38,9)"
	default:
		return "TEXT"
	}
}

// CreateDatasetSQL creates the schema in the connected database. Postgres
// does not accept a database qualifier here.
func (d Dialect) CreateDatasetSQL(ds warehouse.DatasetRef) []string {
	return []string{"CREATE SCHEMA IF NOT EXISTS " + d.Quote(ds.Dataset)}
}

// BucketExpr hashes the JSON text of the whole row.
func (Dialect) BucketExpr(alias string, columns warehouse.Schema) string {
	return fmt.Sprintf("abs(hashtextextended(row_to_json(%s)::text, 0) %% %d)", alias, warehouse.BucketCount)
}

// ReplaceTableSQL drops and recreates the table in one implicit transaction.
// Dependent views are dropped with it.
func (d Dialect) ReplaceTableSQL(ref warehouse.TableRef, query string) string {
	q := warehouse.Qualified(d, ref)
	return "DROP TABLE IF EXISTS " + q + " CASCADE;\nCREATE TABLE " + q + " AS\n" + query
}

// PrepareCatalog checks that the project names the connected database.
func (Dialect) PrepareCatalog(ctx context.Context, db *sql.DB, project string) error {
	const query = "SELECT current_database()"

	var current string
	if err := db.QueryRowContext(ctx, query).Scan(&current); err != nil {
		return errors.SQLError("Failed to read current database", query, err)
	}
	if current != project {
		return errors.ConfigError(
			fmt.Sprintf("project %q does not match the connected database %q", project, current),
			"warehouse.postgres.dsn")
	}
	return nil
}

// CopyStatement renders the COPY FROM STDIN statement for ref.
func (d Dialect) CopyStatement(ref warehouse.TableRef, schema warehouse.Schema) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv)",
		warehouse.Qualified(d, ref), strings.Join(warehouse.ColumnList(d, "", schema), ", "))
}

// CopyCSV streams the blob through the pgx connection underneath db.
func (d Dialect) CopyCSV(ctx context.Context, db *sql.DB, ref warehouse.TableRef, source string, schema warehouse.Schema, opts warehouse.CSVOptions) error {
	opener := d.Blobs
	if opener == nil {
		opener = blob.NewStore(blob.Config{})
	}
	r, err := opener.Open(ctx, source)
	if err != nil {
		return err
	}
	defer r.Close()

	body, err := SkipLines(r, opts.SkipLeadingRows)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBlobAccess, "Failed to read source header").
			WithContext("source", source)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.ConnectionError("Failed to acquire connection", err)
	}
	defer conn.Close()

	stmt := d.CopyStatement(ref, schema)
	return conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return errors.New(errors.ErrCodeInternal, fmt.Sprintf("unexpected driver connection %T", driverConn))
		}
		if _, err := pc.Conn().PgConn().CopyFrom(ctx, body, stmt); err != nil {
			return errors.SQLError("COPY failed", stmt, err)
		}
		return nil
	})
}

// SkipLines returns a reader positioned after the first n lines of r.
func SkipLines(r io.Reader, n int) (io.Reader, error) {
	br := bufio.NewReader(r)
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return br, nil
			}
			return nil, err
		}
	}
	return br, nil
}

// Open connects through the pgx database/sql driver.
func Open(ctx context.Context, dsn string, blobs blob.Opener) (*sql.DB, Dialect, error) {
	if dsn == "" {
		return nil, Dialect{}, errors.ConfigError("postgres dsn is required", "warehouse.postgres.dsn")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, Dialect{}, errors.ConnectionError("Failed to open PostgreSQL connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, errors.ConnectionError("Failed to connect to PostgreSQL", err)
	}
	return db, Dialect{Blobs: blobs}, nil
}
