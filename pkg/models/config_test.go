package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshalYAML(t *testing.T) {
	data := []byte(`
project: ml-project
region: us-central1
table_name_prefix: abalone
warehouse:
  backend: snowflake
  location: US
  dataset: ml_data
  timeout: 5m
  snowflake:
    account: xy12345.us-east-1
    username: loader
    role: LOADER
    warehouse: LOAD_WH
    storage_integration: S3_INT
source:
  uri: s3://bucket/abalone.csv
split:
  table: dataset
  test_view: dataset_test
pipeline:
  target_column: Rings
`)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))

	assert.Equal(t, "ml-project", cfg.Project)
	assert.Equal(t, "snowflake", cfg.Warehouse.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Warehouse.Timeout)
	assert.Equal(t, "S3_INT", cfg.Warehouse.Snowflake.StorageIntegration)
	assert.Equal(t, "s3://bucket/abalone.csv", cfg.Source.URI)
	assert.Equal(t, "dataset_test", cfg.Split.TestView)
	assert.Equal(t, "Rings", cfg.Pipeline.TargetColumn)
}

func TestEmptyPasswordOmitted(t *testing.T) {
	cfg := Config{Warehouse: Warehouse{Snowflake: Snowflake{Account: "acct"}}}

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), "account: acct")
}
