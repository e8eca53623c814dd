package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mlprep/internal/artifact"
	"mlprep/internal/steps"
	"mlprep/internal/ui"
	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

// Output parameter names written by split.
const (
	outputDatasetURI          = "dataset_uri"
	outputDatasetWarehouseURI = "dataset_warehouse_uri"
	outputTestDatasetURI      = "test_dataset_uri"
)

type splitOptions struct {
	inputArtifact string
	rawDatasetURI string
	outputDir     string
	report        bool
}

func newSplitCmd(g *globalOptions) *cobra.Command {
	opts := &splitOptions{}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split the raw table into TRAIN, VALIDATE and TEST",
		Long: `Materialize the split table next to the raw table, labelling each row by
abs(hash(row) mod 10): 9 is TEST, 8 is VALIDATE and everything else TRAIN.
A view over the TEST rows is created alongside it. Both are replaced if they
exist, so re-running on unchanged data yields identical partitions.`,
		Example: `  mlprep split --raw-dataset-uri warehouse://ml-project.ml_data.abalone_raw
  mlprep split --input-artifact /tmp/outputs/raw_dataset.json --output-dir /tmp/outputs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURI, err := opts.resolveRawURI()
			if err != nil {
				return err
			}
			if _, err := warehouse.ParseURI(rawURI); err != nil {
				return err
			}

			rt, err := newRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.finish(cmd.Context())
			if err := rt.requirePersistent("split"); err != nil {
				return err
			}

			svc, err := rt.openWarehouse(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := rt.splitStep(cmd.Context(), svc, rawURI, opts.report)
			if err != nil {
				return err
			}
			if opts.outputDir != "" {
				if err := artifact.WriteOutputs(opts.outputDir, splitOutputs(result)); err != nil {
					return err
				}
			}

			showSplitResult(result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.inputArtifact, "input-artifact", "", "raw dataset artifact written by import")
	flags.StringVar(&opts.rawDatasetURI, "raw-dataset-uri", "", "raw table URI, e.g. warehouse://project.dataset.abalone_raw")
	flags.StringVar(&opts.outputDir, "output-dir", "", "write the output parameters to this directory")
	flags.BoolVar(&opts.report, "report", true, "count the rows of each partition after the split")
	addSplitFlags(flags)
	addWarehouseFlags(flags)
	cmd.MarkFlagsMutuallyExclusive("input-artifact", "raw-dataset-uri")
	return cmd
}

func (o *splitOptions) resolveRawURI() (string, error) {
	switch {
	case o.rawDatasetURI != "":
		return o.rawDatasetURI, nil
	case o.inputArtifact != "":
		a, err := artifact.Read(o.inputArtifact)
		if err != nil {
			return "", err
		}
		return a.URI, nil
	default:
		return "", errors.New(errors.ErrCodeRequiredField, "raw dataset is required").
			WithSuggestions("Pass --input-artifact or --raw-dataset-uri")
	}
}

func splitOutputs(result *steps.SplitResult) map[string]string {
	return map[string]string{
		outputDatasetURI:          result.DatasetURI,
		outputDatasetWarehouseURI: result.DatasetWarehouseURI,
		outputTestDatasetURI:      result.TestDatasetURI,
	}
}

func showSplitResult(result *steps.SplitResult) {
	ui.ShowSuccess(fmt.Sprintf("Split dataset created: %s", result.DatasetURI))
	fmt.Fprint(ui.Output, ui.KeyValueTable([][2]string{
		{outputDatasetURI, result.DatasetURI},
		{outputDatasetWarehouseURI, result.DatasetWarehouseURI},
		{outputTestDatasetURI, result.TestDatasetURI},
	}))
	if len(result.Partitions) > 0 {
		fmt.Fprint(ui.Output, ui.PartitionTable(result.Partitions))
	}
}
