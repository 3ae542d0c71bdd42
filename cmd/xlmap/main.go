// Command xlmap applies saved rule bundles to spreadsheets from the command
// line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javajack/xlmap/config"
	"github.com/javajack/xlmap/logging"
)

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger = zap.NewNop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xlmap",
		Short: "Fill spreadsheet templates from source workbooks",
		Long: `xlmap copies cells and columns from a source workbook into a template
workbook following a saved rule bundle, evaluates row formulas and can
geocode address columns against a local address database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newValidateCmd(),
		newDescribeCmd(),
		newGeocodeCmd(),
		newLogCmd(),
	)
	return root
}
