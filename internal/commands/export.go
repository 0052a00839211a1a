package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardwatch-systems/wardwatch/internal/export"
	"github.com/wardwatch-systems/wardwatch/internal/models"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
)

var (
	exportOut      string
	exportSeverity string
	exportSystemID string
	exportSince    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored threat alerts as CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportSeverity, "severity", "", "filter by severity (low, medium, high, critical)")
	exportCmd.Flags().StringVar(&exportSystemID, "system", "", "filter by system id")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only alerts at or after this RFC 3339 timestamp")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter := repository.Filter{
		Severity: exportSeverity,
		SystemID: exportSystemID,
	}
	if filter.Severity != "" && !models.IsValidSeverity(filter.Severity) {
		return fmt.Errorf("invalid severity: %s", filter.Severity)
	}
	if exportSince != "" {
		since, err := time.Parse(time.RFC3339, exportSince)
		if err != nil {
			return fmt.Errorf("invalid --since timestamp: %w", err)
		}
		filter.Since = since
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.cleanup()

	alerts, err := p.alerts.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Alerts(out, alerts); err != nil {
		return err
	}

	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "wrote %d alert(s) to %s\n", len(alerts), exportOut)
	}
	return nil
}
