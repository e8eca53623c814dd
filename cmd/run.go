package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mlprep/internal/artifact"
	"mlprep/internal/ui"
)

func newRunCmd(g *globalOptions) *cobra.Command {
	var (
		outputArtifact string
		outputDir      string
		report         bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run import and split in one process",
		Long: `Run the import step and pass its raw dataset URI straight to the split
step over the same warehouse connection, then print a summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.finish(ctx)

			svc, err := rt.openWarehouse(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			ui.ShowHeader("mlprep run")
			var rows []ui.StepRow
			defer func() { fmt.Fprint(ui.Output, ui.StepTable(rows)) }()

			start := time.Now()
			imported, err := rt.importStep(ctx, svc)
			if err != nil {
				rows = append(rows, ui.StepRow{Step: "import", Duration: time.Since(start), Err: err})
				return err
			}
			rows = append(rows, ui.StepRow{
				Step:     "import",
				Output:   imported.URI,
				Detail:   fmt.Sprintf("%d rows", imported.RowCount),
				Duration: time.Since(start),
			})
			if outputArtifact != "" {
				a := importArtifact(imported, rt.cfg.Warehouse.Location, svc.Dialect().Name())
				if err := a.Write(outputArtifact); err != nil {
					return err
				}
			}

			start = time.Now()
			split, err := rt.splitStep(ctx, svc, imported.URI, report)
			if err != nil {
				rows = append(rows, ui.StepRow{Step: "split", Duration: time.Since(start), Err: err})
				return err
			}
			rows = append(rows, ui.StepRow{
				Step:     "split",
				Output:   split.DatasetWarehouseURI,
				Detail:   "test view " + split.TestDatasetURI,
				Duration: time.Since(start),
			})
			if outputDir != "" {
				if err := artifact.WriteOutputs(outputDir, splitOutputs(split)); err != nil {
					return err
				}
			}

			if len(split.Partitions) > 0 {
				fmt.Fprint(ui.Output, ui.PartitionTable(split.Partitions))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	addImportFlags(flags)
	addSplitFlags(flags)
	addWarehouseFlags(flags)
	flags.StringVar(&outputArtifact, "output-artifact", "", "write the raw dataset artifact (JSON) to this file")
	flags.StringVar(&outputDir, "output-dir", "", "write the split output parameters to this directory")
	flags.BoolVar(&report, "report", true, "count the rows of each partition after the split")
	return cmd
}
