package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/diag"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/storage"
)

var (
	runDeep    bool
	runSubnet  string
	runTimeout time.Duration
	runLogFile string
	runNoSave  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the diagnostic battery",
	Long: `Run the full diagnostic battery against the local network and the
configured reference endpoints.

The run always completes and always produces a verdict; individual probe
failures are recorded in the report, not propagated. The exit status is
nonzero only on an unrecoverable setup failure (e.g. the report sink
cannot be created).`,
	RunE: runDiagnostics,
}

func init() {
	runCmd.Flags().BoolVar(&runDeep, "deep", false,
		"resolve names of discovered hosts (slower)")
	runCmd.Flags().StringVar(&runSubnet, "subnet", "",
		"subnet to sweep (default: derived from the default-gateway interface)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0,
		"overall host discovery deadline (default: from config)")
	runCmd.Flags().StringVar(&runLogFile, "log", "",
		"report file path (default: from config)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false,
		"do not persist the run to the local database")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	if runSubnet != "" {
		cfg.Subnet = runSubnet
	}
	if runTimeout > 0 {
		cfg.DiscoveryTimeout = runTimeout
	}
	if runLogFile != "" {
		cfg.ReportFile = runLogFile
	}
	cfg.DeepScan = cfg.DeepScan || runDeep

	store, err := report.NewStore(cfg.ReportFile, !cfg.NoColor)
	if err != nil {
		return fmt.Errorf("cannot create report sink: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	engine := diag.NewEngine(cfg, store)
	summary := engine.Run(ctx)
	finishedAt := time.Now()

	if !runNoSave {
		if err := persistRun(startedAt, finishedAt, summary, store.Entries()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not persist run: %v\n", err)
		}
	}

	fmt.Printf("\nReport written to %s\n", cfg.ReportFile)
	return nil
}

func persistRun(startedAt, finishedAt time.Time, summary model.Summary, entries []model.LogEntry) error {
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = storage.NewRunStorage(db).SaveRun(startedAt, finishedAt, summary, entries)
	return err
}
