// Package steps implements the two data-preparation steps of the training
// pipeline: importing the raw CSV blob and splitting it into partitions.
package steps

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

// DefaultTableNamePrefix names the raw table when no prefix is configured.
const DefaultTableNamePrefix = "abalone"

// ImportConfig holds the import step inputs.
type ImportConfig struct {
	Project         string
	Location        string
	Dataset         string
	Source          string
	TableNamePrefix string
}

// RawTable returns the table the blob is loaded into.
func (c ImportConfig) RawTable() warehouse.TableRef {
	prefix := c.TableNamePrefix
	if prefix == "" {
		prefix = DefaultTableNamePrefix
	}
	return warehouse.TableRef{Project: c.Project, Dataset: c.Dataset, Table: prefix + "_raw"}
}

// Validate checks that every input the step needs is set.
func (c ImportConfig) Validate() error {
	if c.Source == "" {
		return errors.New(errors.ErrCodeRequiredField, "source blob URI is required").
			WithContext("field", "source.uri")
	}
	return c.RawTable().Validate()
}

// ImportResult describes the loaded raw table.
type ImportResult struct {
	Table    warehouse.TableRef
	URI      string
	RowCount int64
}

// ImportStep loads the raw CSV blob into a freshly created table.
type ImportStep struct {
	client warehouse.Client
	log    *zap.Logger
}

// NewImportStep creates an import step on client.
func NewImportStep(client warehouse.Client, log *zap.Logger) *ImportStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportStep{client: client, log: log.With(zap.String("step", "import"))}
}

// Run creates the dataset if needed, replaces the raw table and loads the
// blob into it with a single load attempt.
func (s *ImportStep) Run(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table := cfg.RawTable()
	log := s.log.With(zap.String("project", table.Project), zap.String("dataset", table.Dataset))

	if err := s.client.EnsureDataset(ctx, table.DatasetRef(), cfg.Location); err != nil {
		return nil, err
	}

	log.Info("Deleting any tables that might have the same name on the dataset", zap.String("table", table.String()))
	if err := s.client.DeleteTable(ctx, table); err != nil {
		return nil, errors.Wrap(err, errors.GetErrorCode(err), "Failed to delete existing raw table").
			WithContext("table", table.String())
	}

	log.Info(fmt.Sprintf("Loading %s into %s", cfg.Source, table))
	if err := s.client.LoadCSV(ctx, table, cfg.Source, warehouse.RawSchema, warehouse.CSVOptions{SkipLeadingRows: 1}); err != nil {
		return nil, err
	}

	n, err := s.client.RowCount(ctx, table)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Loaded %d rows.", n), zap.Int64("rows", n))

	return &ImportResult{Table: table, URI: table.URI(), RowCount: n}, nil
}
