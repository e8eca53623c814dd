package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlprep/pkg/errors"
)

func TestSplitRun(t *testing.T) {
	client := newFakeClient()
	client.counts = map[string]int64{"TRAIN": 3342, "VALIDATE": 418, "TEST": 417}

	result, err := NewSplitStep(client, nil).Run(context.Background(), SplitConfig{
		RawDatasetURI: "warehouse://ml-project.ml_data.abalone_raw",
		Location:      "US",
		Report:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, &SplitResult{
		DatasetURI:          "ml-project.ml_data.dataset",
		DatasetWarehouseURI: "warehouse://ml-project.ml_data.dataset",
		TestDatasetURI:      "ml-project.ml_data.dataset_test",
		Partitions:          map[string]int64{"TRAIN": 3342, "VALIDATE": 418, "TEST": 417},
	}, result)
	assert.Equal(t, []string{
		"Query ml-project.ml_data.dataset",
		"Query ml-project.ml_data.dataset_test",
		"PartitionCounts ml-project.ml_data.dataset/split_col",
	}, client.calls)
	assert.Contains(t, client.queries["ml-project.ml_data.dataset"], `FROM "ml-project"."ml_data"."abalone_raw" f`)
	assert.Contains(t, client.queries["ml-project.ml_data.dataset_test"], `FROM "ml-project"."ml_data"."dataset" f`)
}

func TestSplitRunReadsSourceTableFromURI(t *testing.T) {
	client := newFakeClient()

	result, err := NewSplitStep(client, nil).Run(context.Background(), SplitConfig{
		RawDatasetURI: "other.ds.shellfish_raw",
		Table:         "shellfish",
		TestView:      "shellfish_test",
	})
	require.NoError(t, err)

	assert.Equal(t, "other.ds.shellfish", result.DatasetURI)
	assert.Equal(t, "other.ds.shellfish_test", result.TestDatasetURI)
	assert.Nil(t, result.Partitions)
	assert.Contains(t, client.queries["other.ds.shellfish"], `FROM "other"."ds"."shellfish_raw" f`)
	assert.Equal(t, []string{"Query", "Query"}, client.ops())
}

func TestSplitRunInvalidURI(t *testing.T) {
	tests := []string{
		"",
		"warehouse://project.dataset",
		"project.dataset.table.extra",
		"project..table",
	}

	for _, uri := range tests {
		t.Run(uri, func(t *testing.T) {
			client := newFakeClient()

			_, err := NewSplitStep(client, nil).Run(context.Background(), SplitConfig{RawDatasetURI: uri})

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidURI, errors.GetErrorCode(err))
			assert.Empty(t, client.calls)
		})
	}
}

func TestSplitRunRejectsSplitOverRaw(t *testing.T) {
	client := newFakeClient()

	_, err := NewSplitStep(client, nil).Run(context.Background(), SplitConfig{
		RawDatasetURI: "p.d.dataset",
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
	assert.Empty(t, client.calls)
}

func TestSplitRunRejectsViewCollisions(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SplitConfig
		reason string
	}{
		{
			name:   "view over raw table",
			cfg:    SplitConfig{RawDatasetURI: "p.d.abalone_raw", TestView: "abalone_raw"},
			reason: "must differ from the raw table",
		},
		{
			name:   "view over split table",
			cfg:    SplitConfig{RawDatasetURI: "p.d.abalone_raw", Table: "shellfish", TestView: "shellfish"},
			reason: "must differ from the split table",
		},
		{
			name:   "default view name as table",
			cfg:    SplitConfig{RawDatasetURI: "p.d.abalone_raw", Table: DefaultTestView},
			reason: "must differ from the split table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()

			_, err := NewSplitStep(client, nil).Run(context.Background(), tt.cfg)

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
			assert.Contains(t, err.Error(), "split.test_view")
			assert.Contains(t, err.Error(), tt.reason)
			assert.Empty(t, client.calls)
		})
	}
}

func TestSplitRunTableFailure(t *testing.T) {
	client := newFakeClient()
	client.errs["Query"] = errors.New(errors.ErrCodeSQLPermission, "denied")

	_, err := NewSplitStep(client, nil).Run(context.Background(), SplitConfig{RawDatasetURI: "p.d.abalone_raw"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLPermission, errors.GetErrorCode(err))
	assert.Equal(t, []string{"Query p.d.dataset"}, client.calls)
}
