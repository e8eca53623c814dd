package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mlprep/internal/blob"
	"mlprep/internal/config"
	"mlprep/internal/observability"
	"mlprep/internal/steps"
	"mlprep/internal/ui"
	"mlprep/internal/warehouse"
	"mlprep/internal/warehouse/backend"
	"mlprep/pkg/errors"
	"mlprep/pkg/models"
)

// flagBindings maps command flags onto configuration keys. Only the flags a
// command defines are bound.
var flagBindings = map[string]string{
	"project":           "project",
	"dataset":           "warehouse.dataset",
	"location":          "warehouse.location",
	"backend":           "warehouse.backend",
	"duckdb-dir":        "warehouse.duckdb.dir",
	"source":            "source.uri",
	"source-region":     "source.region",
	"table-name-prefix": "table_name_prefix",
	"split-table":       "split.table",
	"test-view":         "split.test_view",
	"pushgateway":       "metrics.pushgateway",
}

// keyringStore resolves passwords missing from the configuration.
var keyringStore config.Keyring = config.SystemKeyring

// runtime carries what a step command needs once configuration is loaded.
type runtime struct {
	cfg     *models.Config
	log     *zap.Logger
	metrics *observability.Metrics
}

func addWarehouseFlags(flags *pflag.FlagSet) {
	flags.String("backend", "", "warehouse backend: duckdb, postgres or snowflake")
	flags.String("location", "", "dataset location")
	flags.String("duckdb-dir", "", "directory of the DuckDB project databases, or :memory: (run only)")
	flags.String("pushgateway", "", "Prometheus Pushgateway URL to push step metrics to")
}

func addImportFlags(flags *pflag.FlagSet) {
	flags.String("project", "", "warehouse project (Snowflake/PostgreSQL database, DuckDB catalog)")
	flags.String("dataset", "", "dataset (schema) holding the raw table")
	flags.String("source", "", "CSV blob to load: local path, file:// or s3:// URI")
	flags.String("source-region", "", "AWS region of the source bucket")
	flags.String("table-name-prefix", "", "raw table name prefix (default: abalone)")
}

func addSplitFlags(flags *pflag.FlagSet) {
	flags.String("split-table", "", "name of the split table (default: dataset)")
	flags.String("test-view", "", "name of the TEST view (default: dataset_test)")
}

func newRuntime(cmd *cobra.Command, opts *globalOptions) (*runtime, error) {
	v := config.New(opts.configFile)
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		v.Set("logging.level", opts.logLevel)
	}
	if opts.logFormat != "" {
		v.Set("logging.format", opts.logFormat)
	}

	cfg, err := config.LoadSecure(v, keyringStore)
	if err != nil {
		return nil, err
	}

	log, err := observability.NewLogger(observability.LoggerConfig{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cmd.ErrOrStderr(),
		Service: "mlprep",
		Version: Version,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Invalid logging configuration")
	}

	ui.Output = cmd.OutOrStdout()
	return &runtime{cfg: cfg, log: log, metrics: observability.NewMetrics()}, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to bind flag").WithContext("flag", name)
		}
	}
	return nil
}

// requirePersistent rejects warehouses whose tables would not survive until
// the next step process.
func (rt *runtime) requirePersistent(step string) error {
	if !backend.Ephemeral(*rt.cfg) {
		return nil
	}
	return errors.ConfigError(fmt.Sprintf("in-memory DuckDB tables do not outlive 'mlprep %s'", step), "warehouse.duckdb.dir").
		WithSuggestions("Set warehouse.duckdb.dir to a directory, or chain the steps with 'mlprep run'")
}

func (rt *runtime) openWarehouse(ctx context.Context) (*warehouse.Service, error) {
	store := blob.NewStore(blob.Config{Region: rt.cfg.Source.Region})
	return backend.Open(ctx, *rt.cfg, store, rt.log)
}

func (rt *runtime) importStep(ctx context.Context, client warehouse.Client) (*steps.ImportResult, error) {
	spin := ui.NewSpinner("Importing " + rt.cfg.Source.URI)
	spin.Start()

	start := time.Now()
	result, err := steps.NewImportStep(client, rt.log).Run(ctx, steps.ImportConfig{
		Project:         rt.cfg.Project,
		Location:        rt.cfg.Warehouse.Location,
		Dataset:         rt.cfg.Warehouse.Dataset,
		Source:          rt.cfg.Source.URI,
		TableNamePrefix: rt.cfg.TableNamePrefix,
	})
	rt.metrics.ObserveStep("import", start, err)
	if err != nil {
		spin.Stop(false, "Import failed")
		return nil, err
	}
	spin.Stop(true, fmt.Sprintf("Imported %s", result.Table))
	rt.metrics.RecordImport(result.RowCount)
	return result, nil
}

func (rt *runtime) splitStep(ctx context.Context, client warehouse.Client, rawURI string, report bool) (*steps.SplitResult, error) {
	spin := ui.NewSpinner("Splitting " + rawURI)
	spin.Start()

	start := time.Now()
	result, err := steps.NewSplitStep(client, rt.log).Run(ctx, steps.SplitConfig{
		RawDatasetURI: rawURI,
		Location:      rt.cfg.Warehouse.Location,
		Table:         rt.cfg.Split.Table,
		TestView:      rt.cfg.Split.TestView,
		Report:        report,
	})
	rt.metrics.ObserveStep("split", start, err)
	if err != nil {
		spin.Stop(false, "Split failed")
		return nil, err
	}
	spin.Stop(true, fmt.Sprintf("Split %s", result.DatasetURI))
	rt.metrics.RecordSplit(result.Partitions)
	return result, nil
}

// finish pushes the run metrics when a Pushgateway is configured. A failed
// push is logged and does not fail the command.
func (rt *runtime) finish(ctx context.Context) {
	defer func() { _ = rt.log.Sync() }()

	if rt.cfg.Metrics.Pushgateway == "" {
		return
	}
	if err := rt.metrics.Push(ctx, rt.cfg.Metrics.Pushgateway, rt.cfg.Metrics.Job); err != nil {
		rt.log.Warn("Failed to push metrics", zap.Error(err))
		return
	}
	rt.log.Debug("Pushed metrics", zap.String("pushgateway", rt.cfg.Metrics.Pushgateway))
}
