package steps

import (
	"fmt"
	"strings"

	"mlprep/internal/warehouse"
)

const sourceAlias = "f"

// SplitSelectSQL selects every column of src plus the partition label
// derived from the row content hash.
func SplitSelectSQL(d warehouse.Dialect, src warehouse.TableRef, schema warehouse.Schema) string {
	cols := warehouse.ColumnList(d, sourceAlias, schema)
	return fmt.Sprintf(`SELECT
  %s,
  CASE %s
    WHEN %d THEN '%s'
    WHEN %d THEN '%s'
    ELSE '%s'
  END AS %s
FROM %s %s`,
		strings.Join(cols, ",\n  "),
		d.BucketExpr(sourceAlias, schema),
		warehouse.TestBucket, warehouse.PartitionTest,
		warehouse.ValidateBucket, warehouse.PartitionValidate,
		warehouse.PartitionTrain,
		d.Quote(warehouse.SplitColumn),
		warehouse.Qualified(d, src), sourceAlias)
}

// SplitTableSQL replaces dst with the labelled rows of src.
func SplitTableSQL(d warehouse.Dialect, src, dst warehouse.TableRef, schema warehouse.Schema) string {
	return d.ReplaceTableSQL(dst, SplitSelectSQL(d, src, schema))
}

// TestViewSQL creates or replaces a view over the TEST rows of split.
func TestViewSQL(d warehouse.Dialect, split, view warehouse.TableRef, schema warehouse.Schema) string {
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS
SELECT
  %s
FROM %s %s
WHERE %s.%s = '%s'`,
		warehouse.Qualified(d, view),
		strings.Join(warehouse.ColumnList(d, sourceAlias, schema), ",\n  "),
		warehouse.Qualified(d, split), sourceAlias,
		sourceAlias, d.Quote(warehouse.SplitColumn), warehouse.PartitionTest)
}
