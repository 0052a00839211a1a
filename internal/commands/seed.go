package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardwatch-systems/wardwatch/internal/seeder"
)

var (
	seedAddr       string
	seedCredential string
	seedCount      int
	seedSpread     time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Serve a demo log source with generated records",
	Long: `seed starts a local HTTP server that speaks the log source
contract, preloaded with synthetic device activity. Register it with
"wardwatch sources add" to exercise the full pipeline without real
devices.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedAddr, "addr", ":9090", "listen address for the demo source")
	seedCmd.Flags().StringVar(&seedCredential, "credential", "demo-secret", "bearer credential the source requires")
	seedCmd.Flags().IntVar(&seedCount, "count", 200, "number of records to generate")
	seedCmd.Flags().DurationVar(&seedSpread, "spread", 24*time.Hour, "time window the records span, ending now")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	records := seeder.GenerateRecords(seedCount, seedSpread)
	source := seeder.NewSourceServer(seedCredential, records, logger.Logger)

	srv := &http.Server{
		Addr:              seedAddr,
		Handler:           source.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("demo source listening",
		"addr", seedAddr,
		"records", len(records),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("demo source failed: %w", err)
	}
	return nil
}
