package steps

import (
	"context"
	"database/sql"
	"strings"

	"mlprep/internal/warehouse"
)

// fakeDialect renders ANSI SQL with a visible bucket expression.
type fakeDialect struct{}

var _ warehouse.Dialect = fakeDialect{}

func (fakeDialect) Name() string              { return "fake" }
func (fakeDialect) Quote(ident string) string { return warehouse.QuoteIdent(ident) }
func (fakeDialect) TypeName(t warehouse.FieldType) string { return string(t) }
func (fakeDialect) CreateDatasetSQL(ds warehouse.DatasetRef) []string { return nil }
func (fakeDialect) BucketExpr(alias string, columns warehouse.Schema) string {
	return "BUCKET(" + alias + ")"
}
func (d fakeDialect) ReplaceTableSQL(ref warehouse.TableRef, query string) string {
	return warehouse.CreateOrReplaceTableSQL(d, ref, query)
}
func (fakeDialect) CopyCSV(ctx context.Context, db *sql.DB, ref warehouse.TableRef, source string, schema warehouse.Schema, opts warehouse.CSVOptions) error {
	return nil
}

// fakeClient records every call and fails the ones named in errs.
type fakeClient struct {
	calls   []string
	queries map[string]string
	errs    map[string]error
	rows    int64
	counts  map[string]int64
	opts    warehouse.CSVOptions
}

func newFakeClient() *fakeClient {
	return &fakeClient{queries: map[string]string{}, errs: map[string]error{}}
}

func (c *fakeClient) record(op string, ref string) error {
	c.calls = append(c.calls, op+" "+ref)
	return c.errs[op]
}

func (c *fakeClient) EnsureDataset(ctx context.Context, ds warehouse.DatasetRef, location string) error {
	return c.record("EnsureDataset", ds.String())
}

func (c *fakeClient) DeleteTable(ctx context.Context, ref warehouse.TableRef) error {
	return c.record("DeleteTable", ref.String())
}

func (c *fakeClient) LoadCSV(ctx context.Context, ref warehouse.TableRef, source string, schema warehouse.Schema, opts warehouse.CSVOptions) error {
	c.opts = opts
	return c.record("LoadCSV", source+" -> "+ref.String())
}

func (c *fakeClient) Query(ctx context.Context, target warehouse.TableRef, query string) error {
	c.queries[target.String()] = query
	return c.record("Query", target.String())
}

func (c *fakeClient) RowCount(ctx context.Context, ref warehouse.TableRef) (int64, error) {
	return c.rows, c.record("RowCount", ref.String())
}

func (c *fakeClient) PartitionCounts(ctx context.Context, ref warehouse.TableRef, column string) (map[string]int64, error) {
	return c.counts, c.record("PartitionCounts", ref.String()+"/"+column)
}

func (c *fakeClient) Dialect() warehouse.Dialect { return fakeDialect{} }
func (c *fakeClient) Close() error               { return nil }

func (c *fakeClient) ops() []string {
	ops := make([]string, len(c.calls))
	for i, call := range c.calls {
		ops[i] = strings.SplitN(call, " ", 2)[0]
	}
	return ops
}
