package steps

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

const (
	DefaultSplitTable = "dataset"
	DefaultTestView   = "dataset_test"
)

// SplitConfig holds the split step inputs.
type SplitConfig struct {
	// RawDatasetURI names the imported table, with or without the
	// warehouse:// scheme.
	RawDatasetURI string
	Location      string
	Table         string
	TestView      string
	// Report counts the rows of each partition after the split.
	Report bool
}

// SplitResult names the split table and TEST view.
type SplitResult struct {
	DatasetURI          string
	DatasetWarehouseURI string
	TestDatasetURI      string
	Partitions          map[string]int64
}

// SplitStep labels every raw row TRAIN, VALIDATE or TEST by content hash.
type SplitStep struct {
	client warehouse.Client
	log    *zap.Logger
}

// NewSplitStep creates a split step on client.
func NewSplitStep(client warehouse.Client, log *zap.Logger) *SplitStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &SplitStep{client: client, log: log.With(zap.String("step", "split"))}
}

// Run materializes the split table next to the raw table and creates the
// TEST view over it.
func (s *SplitStep) Run(ctx context.Context, cfg SplitConfig) (*SplitResult, error) {
	src, err := warehouse.ParseURI(cfg.RawDatasetURI)
	if err != nil {
		return nil, err
	}

	tableName := cfg.Table
	if tableName == "" {
		tableName = DefaultSplitTable
	}
	viewName := cfg.TestView
	if viewName == "" {
		viewName = DefaultTestView
	}
	dst := src.Sibling(tableName)
	view := src.Sibling(viewName)
	for _, ref := range []warehouse.TableRef{dst, view} {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
	}
	switch {
	case dst == src:
		return nil, errors.ValidationError("split.table", tableName, "must differ from the raw table")
	case view == src:
		return nil, errors.ValidationError("split.test_view", viewName, "must differ from the raw table")
	case view == dst:
		return nil, errors.ValidationError("split.test_view", viewName, "must differ from the split table")
	}

	log := s.log.With(zap.String("project", src.Project), zap.String("dataset", src.Dataset))
	d := s.client.Dialect()

	query := SplitTableSQL(d, src, dst, warehouse.RawSchema)
	log.Info("Splitting the dataset", zap.String("source", src.String()), zap.String("table", dst.String()))
	log.Debug(warehouse.OneLine(query))
	if err := s.client.Query(ctx, dst, query); err != nil {
		return nil, errors.Wrap(err, errors.GetErrorCode(err), "Failed to create split table").
			WithContext("source", src.String())
	}

	query = TestViewSQL(d, dst, view, warehouse.RawSchema)
	log.Info(fmt.Sprintf("Creating view for --> %s", viewName))
	log.Debug(warehouse.OneLine(query))
	if err := s.client.Query(ctx, view, query); err != nil {
		return nil, errors.Wrap(err, errors.GetErrorCode(err), "Failed to create test view")
	}

	result := &SplitResult{
		DatasetURI:          dst.String(),
		DatasetWarehouseURI: dst.URI(),
		TestDatasetURI:      view.String(),
	}

	if cfg.Report {
		counts, err := s.client.PartitionCounts(ctx, dst, warehouse.SplitColumn)
		if err != nil {
			return nil, err
		}
		result.Partitions = counts
		log.Info("Partition sizes",
			zap.Int64(warehouse.PartitionTrain, counts[warehouse.PartitionTrain]),
			zap.Int64(warehouse.PartitionValidate, counts[warehouse.PartitionValidate]),
			zap.Int64(warehouse.PartitionTest, counts[warehouse.PartitionTest]))
	}

	log.Info(fmt.Sprintf("dataset: %s", result.DatasetURI), zap.String("location", cfg.Location))
	return result, nil
}
