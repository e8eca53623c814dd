package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mlprep/internal/ui"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "mlprep",
		Short: "Prepare warehouse tables for ML training pipelines",
		Long: `mlprep - Data-preparation steps of a managed ML training pipeline.

It imports a raw CSV blob into a warehouse table and splits that table into
TRAIN, VALIDATE and TEST partitions with a deterministic content hash. Each
step can run as an isolated pipeline container or chained with 'mlprep run'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./mlprep.yaml or $HOME/.mlprep/mlprep.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: json or console")

	cmd.AddCommand(
		newImportCmd(opts),
		newSplitCmd(opts),
		newRunCmd(opts),
		newSetupCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command, canceling it on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Output = rootCmd.ErrOrStderr()
		ui.ShowError(err)
		stop()
		os.Exit(1)
	}
}
