package steps

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

func validImportConfig() ImportConfig {
	return ImportConfig{
		Project:  "ml-project",
		Location: "US",
		Dataset:  "ml_data",
		Source:   "s3://ml-bucket/abalone.csv",
	}
}

func TestImportConfigRawTable(t *testing.T) {
	cfg := validImportConfig()
	assert.Equal(t, "ml-project.ml_data.abalone_raw", cfg.RawTable().String())

	cfg.TableNamePrefix = "shellfish"
	assert.Equal(t, "ml-project.ml_data.shellfish_raw", cfg.RawTable().String())
}

func TestImportConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ImportConfig)
		code   errors.ErrorCode
	}{
		{name: "valid", mutate: func(c *ImportConfig) {}},
		{name: "missing source", mutate: func(c *ImportConfig) { c.Source = "" }, code: errors.ErrCodeRequiredField},
		{name: "missing project", mutate: func(c *ImportConfig) { c.Project = "" }, code: errors.ErrCodeRequiredField},
		{name: "missing dataset", mutate: func(c *ImportConfig) { c.Dataset = "" }, code: errors.ErrCodeRequiredField},
		{name: "dotted prefix", mutate: func(c *ImportConfig) { c.TableNamePrefix = "a.b" }, code: errors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validImportConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
		})
	}
}

func TestImportRun(t *testing.T) {
	client := newFakeClient()
	client.rows = 4177

	result, err := NewImportStep(client, nil).Run(context.Background(), validImportConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"EnsureDataset ml-project.ml_data",
		"DeleteTable ml-project.ml_data.abalone_raw",
		"LoadCSV s3://ml-bucket/abalone.csv -> ml-project.ml_data.abalone_raw",
		"RowCount ml-project.ml_data.abalone_raw",
	}, client.calls)
	assert.Equal(t, warehouse.CSVOptions{SkipLeadingRows: 1}, client.opts)
	assert.Equal(t, "warehouse://ml-project.ml_data.abalone_raw", result.URI)
	assert.Equal(t, int64(4177), result.RowCount)
	assert.Equal(t, "abalone_raw", result.Table.Table)
}

func TestImportRunStopsOnFailure(t *testing.T) {
	tests := []struct {
		failing  string
		code     errors.ErrorCode
		expected []string
	}{
		{"EnsureDataset", errors.ErrCodeSQLPermission, []string{"EnsureDataset"}},
		{"DeleteTable", errors.ErrCodeSQLPermission, []string{"EnsureDataset", "DeleteTable"}},
		{"LoadCSV", errors.ErrCodeLoadFailed, []string{"EnsureDataset", "DeleteTable", "LoadCSV"}},
		{"RowCount", errors.ErrCodeSQLExecution, []string{"EnsureDataset", "DeleteTable", "LoadCSV", "RowCount"}},
	}

	for _, tt := range tests {
		t.Run(tt.failing, func(t *testing.T) {
			client := newFakeClient()
			client.errs[tt.failing] = errors.New(tt.code, fmt.Sprintf("%s failed", tt.failing))

			result, err := NewImportStep(client, nil).Run(context.Background(), validImportConfig())

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.HasCode(err, tt.code))
			assert.Equal(t, tt.expected, client.ops())
		})
	}
}

func TestImportRunInvalidConfigMakesNoCalls(t *testing.T) {
	client := newFakeClient()

	_, err := NewImportStep(client, nil).Run(context.Background(), ImportConfig{Project: "p", Dataset: "d"})

	require.Error(t, err)
	assert.Empty(t, client.calls)
}
