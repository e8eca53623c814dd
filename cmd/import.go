package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mlprep/internal/artifact"
	"mlprep/internal/steps"
	"mlprep/internal/ui"
)

func newImportCmd(g *globalOptions) *cobra.Command {
	var outputArtifact string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the raw CSV blob into a warehouse table",
		Long: `Create the dataset if it does not exist, drop any previous raw table and
load the CSV blob into <prefix>_raw with the fixed abalone schema. The header
row is skipped and the load is attempted exactly once.`,
		Example: `  mlprep import --project ml-project --dataset ml_data --source s3://bucket/abalone.csv
  mlprep import --source ./abalone.csv --output-artifact /tmp/outputs/raw_dataset.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, g)
			if err != nil {
				return err
			}
			defer rt.finish(cmd.Context())
			if err := rt.requirePersistent("import"); err != nil {
				return err
			}

			svc, err := rt.openWarehouse(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := rt.importStep(cmd.Context(), svc)
			if err != nil {
				return err
			}

			if outputArtifact != "" {
				a := importArtifact(result, rt.cfg.Warehouse.Location, svc.Dialect().Name())
				if err := a.Write(outputArtifact); err != nil {
					return err
				}
			}

			ui.ShowSuccess(fmt.Sprintf("Loaded %d rows into %s", result.RowCount, result.Table))
			fmt.Fprint(ui.Output, ui.KeyValueTable([][2]string{
				{"raw_dataset", result.URI},
				{"rows", fmt.Sprintf("%d", result.RowCount)},
			}))
			return nil
		},
	}

	flags := cmd.Flags()
	addImportFlags(flags)
	addWarehouseFlags(flags)
	flags.StringVar(&outputArtifact, "output-artifact", "", "write the raw dataset artifact (JSON) to this file")
	return cmd
}

func importArtifact(result *steps.ImportResult, location, backendName string) *artifact.Artifact {
	return artifact.New(result.URI).
		With("table", result.Table.String()).
		With("row_count", result.RowCount).
		With("location", location).
		With("backend", backendName)
}
