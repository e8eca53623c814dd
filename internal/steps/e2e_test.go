package steps_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mlprep/internal/steps"
	"mlprep/internal/testutil"
	"mlprep/internal/warehouse"
	"mlprep/internal/warehouse/duckdb"
)

const e2eRows = 2000

func openDuckDB(t *testing.T) *warehouse.Service {
	t.Helper()

	db, dialect, err := duckdb.Open(context.Background(), "", nil)
	require.NoError(t, err)
	svc := warehouse.NewService(db, dialect, warehouse.Config{Logger: zap.NewNop()})
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func assignments(t *testing.T, svc *warehouse.Service, ref warehouse.TableRef) map[string]string {
	t.Helper()

	query := fmt.Sprintf(`SELECT CAST("Length" AS VARCHAR), "split_col" FROM %s`, warehouse.Qualified(svc.Dialect(), ref))
	rows, err := svc.DB().QueryContext(context.Background(), query)
	require.NoError(t, err)
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var key, label string
		require.NoError(t, rows.Scan(&key, &label))
		labels[key] = label
	}
	require.NoError(t, rows.Err())
	return labels
}

func TestImportAndSplitOnDuckDB(t *testing.T) {
	ctx := context.Background()
	svc := openDuckDB(t)
	source := testutil.WriteAbaloneCSV(t, e2eRows)

	imported, err := steps.NewImportStep(svc, nil).Run(ctx, steps.ImportConfig{
		Project:  "ml-project",
		Location: "local",
		Dataset:  "ml_data",
		Source:   source,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(e2eRows), imported.RowCount)
	assert.Equal(t, "warehouse://ml-project.ml_data.abalone_raw", imported.URI)

	split := steps.NewSplitStep(svc, nil)
	cfg := steps.SplitConfig{RawDatasetURI: imported.URI, Report: true}

	first, err := split.Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ml-project.ml_data.dataset", first.DatasetURI)
	assert.Equal(t, "ml-project.ml_data.dataset_test", first.TestDatasetURI)

	var total int64
	for _, n := range first.Partitions {
		total += n
	}
	assert.Equal(t, int64(e2eRows), total)

	testRows := first.Partitions[warehouse.PartitionTest]
	assert.Greater(t, testRows, int64(e2eRows*5/100))
	assert.Less(t, testRows, int64(e2eRows*15/100))
	assert.Greater(t, first.Partitions[warehouse.PartitionValidate], int64(0))

	splitRef := imported.Table.Sibling("dataset")
	before := assignments(t, svc, splitRef)
	require.Len(t, before, e2eRows)

	second, err := split.Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, first.Partitions, second.Partitions)
	assert.Equal(t, before, assignments(t, svc, splitRef))

	viewRef := imported.Table.Sibling("dataset_test")
	viewCount, err := svc.RowCount(ctx, viewRef)
	require.NoError(t, err)
	assert.Equal(t, testRows, viewCount)

	rows, err := svc.DB().QueryContext(ctx, "SELECT * FROM "+warehouse.Qualified(svc.Dialect(), viewRef)+" LIMIT 1")
	require.NoError(t, err)
	cols, err := rows.Columns()
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	assert.Equal(t, warehouse.RawSchema.Names(), cols)
}

func TestImportReplacesRawTable(t *testing.T) {
	ctx := context.Background()
	svc := openDuckDB(t)
	step := steps.NewImportStep(svc, nil)
	cfg := steps.ImportConfig{Project: "p", Dataset: "d", Source: testutil.WriteAbaloneCSV(t, 50)}

	_, err := step.Run(ctx, cfg)
	require.NoError(t, err)

	cfg.Source = testutil.WriteAbaloneCSV(t, 20)
	result, err := step.Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.RowCount)
}

func TestImportMalformedRowFails(t *testing.T) {
	ctx := context.Background()
	svc := openDuckDB(t)

	path := testutil.WriteFile(t, t.TempDir(), "bad.csv",
		testutil.AbaloneHeader+"\nM,not-a-number,0.1,0.1,0.1,0.1,0.1,0.1,3\n")

	_, err := steps.NewImportStep(svc, nil).Run(ctx, steps.ImportConfig{Project: "p", Dataset: "d", Source: path})
	require.Error(t, err)
}
