package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/storage"
)

var (
	reportRunID  int64
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a diagnostic run as CSV",
	Long: `Export the report entries of a persisted run as CSV.

Examples:
  netdiag report
  netdiag report --run 3 --output ./run3.csv`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Int64Var(&reportRunID, "run", 0,
		"run ID to export (default: latest)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"output file path (default: stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open run database: %w", err)
	}
	defer db.Close()

	runs := storage.NewRunStorage(db)

	var run *model.Run
	if reportRunID > 0 {
		run, err = runs.GetRun(reportRunID)
	} else {
		run, err = runs.LatestRun()
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no matching run found")
	}

	entries, err := runs.RunEntries(run.ID)
	if err != nil {
		return err
	}

	out := os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"run_id", "timestamp", "severity", "message"}); err != nil {
		return err
	}
	id := strconv.FormatInt(run.ID, 10)
	for _, e := range entries {
		rec := []string{id, e.Timestamp.Format("2006-01-02 15:04:05"), string(e.Severity), e.Message}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if reportOutput != "" {
		fmt.Printf("Exported %d entries from run #%d to %s\n", len(entries), run.ID, reportOutput)
	}
	return nil
}
