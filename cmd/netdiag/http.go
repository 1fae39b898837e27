package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/probes"
)

var (
	httpCount   int
	httpTimeout time.Duration
)

var httpCmd = &cobra.Command{
	Use:   "http <url>",
	Short: "Sample HTTP latency against a URL",
	Long: `Issue timed GET requests against a URL and summarize the latency.

Example:
  netdiag http https://example.com --count 10`,
	Args: cobra.ExactArgs(1),
	RunE: runHTTP,
}

func init() {
	httpCmd.Flags().IntVar(&httpCount, "count", 5, "number of requests")
	httpCmd.Flags().DurationVar(&httpTimeout, "timeout", 10*time.Second, "per-request timeout")
}

func runHTTP(cmd *cobra.Command, args []string) error {
	url := args[0]
	probe := probes.NewHTTPProbe(httpTimeout)

	stats, results := probe.SampleLatency(context.Background(), url, httpCount)

	for i, r := range results {
		if r.Err != "" {
			fmt.Printf("  #%d failed: %s\n", i+1, r.Err)
			continue
		}
		fmt.Printf("  #%d status=%d bytes=%d elapsed=%.1fms\n", i+1, r.StatusCode, r.BodyLength, r.ElapsedMs)
	}
	fmt.Printf("%s: %s\n", url, stats)
	return nil
}
