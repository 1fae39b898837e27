package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/storage"
	"github.com/user/netdiag/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Browse the latest run in a terminal UI",
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open run database: %w", err)
	}
	defer db.Close()

	return tui.NewApp(db).Run()
}
