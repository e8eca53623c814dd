package warehouse

import (
	"context"
	"database/sql"
	"strings"
)

// CSVOptions controls a bulk CSV load.
type CSVOptions struct {
	// SkipLeadingRows is the number of header rows to skip.
	SkipLeadingRows int
}

// Dialect renders backend-specific SQL and performs the bulk CSV load, which
// no two warehouses express the same way.
type Dialect interface {
	Name() string
	// Quote quotes a single identifier.
	Quote(ident string) string
	TypeName(t FieldType) string
	// CreateDatasetSQL returns statements that create the dataset if it is
	// absent. They must succeed when the dataset already exists.
	CreateDatasetSQL(ds DatasetRef) []string
	// BucketExpr returns an expression over the rows of alias evaluating to
	// abs(hash(row content)) mod BucketCount.
	BucketExpr(alias string, columns Schema) string
	// ReplaceTableSQL renders a statement that atomically replaces ref with
	// the result of query.
	ReplaceTableSQL(ref TableRef, query string) string
	// CopyCSV loads source into an existing table in a single attempt.
	CopyCSV(ctx context.Context, db *sql.DB, ref TableRef, source string, schema Schema, opts CSVOptions) error
}

// CatalogPreparer is implemented by dialects that must set up or check the
// project before objects in it can be referenced.
type CatalogPreparer interface {
	PrepareCatalog(ctx context.Context, db *sql.DB, project string) error
}

// QuoteIdent quotes an identifier with ANSI double quotes.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Qualified renders project.dataset.table with each part quoted by d.
func Qualified(d Dialect, ref TableRef) string {
	return d.Quote(ref.Project) + "." + d.Quote(ref.Dataset) + "." + d.Quote(ref.Table)
}

// ColumnList renders the quoted column names, optionally prefixed by alias.
func ColumnList(d Dialect, alias string, schema Schema) []string {
	cols := make([]string, len(schema))
	for i, c := range schema {
		if alias != "" {
			cols[i] = alias + "." + d.Quote(c.Name)
		} else {
			cols[i] = d.Quote(c.Name)
		}
	}
	return cols
}

// CreateTableSQL renders a CREATE TABLE statement for the schema.
func CreateTableSQL(d Dialect, ref TableRef, schema Schema) string {
	defs := make([]string, len(schema))
	for i, c := range schema {
		defs[i] = d.Quote(c.Name) + " " + d.TypeName(c.Type)
	}
	return "CREATE TABLE " + Qualified(d, ref) + " (\n  " + strings.Join(defs, ",\n  ") + "\n)"
}

// CreateOrReplaceTableSQL is the ReplaceTableSQL of warehouses that support
// CREATE OR REPLACE TABLE.
func CreateOrReplaceTableSQL(d Dialect, ref TableRef, query string) string {
	return "CREATE OR REPLACE TABLE " + Qualified(d, ref) + " AS\n" + query
}

// OneLine collapses a multi-line statement for logging.
func OneLine(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
