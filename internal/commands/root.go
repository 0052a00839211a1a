// Package commands implements the wardwatch CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/wardwatch-systems/wardwatch/internal/config"
	"github.com/wardwatch-systems/wardwatch/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wardwatch",
	Short: "WardWatch hospital IoT threat detection",
	Long: `wardwatch ingests activity logs from registered hospital devices
and lab systems, evaluates them against the built-in detection rules,
and persists classified threat alerts for the security console.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
		logging.SetDefault(logger)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults + WARDWATCH_* env)")
}
