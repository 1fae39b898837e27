package diag

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

func newTestStore(t *testing.T) *report.Store {
	t.Helper()
	store, err := report.NewStore(filepath.Join(t.TempDir(), "report.log"), false)
	require.NoError(t, err)
	store.SetConsole(io.Discard)
	t.Cleanup(func() { store.Close() })
	return store
}

func countSeverity(entries []model.LogEntry, sev model.Severity) int {
	n := 0
	for _, e := range entries {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

func messagesOf(entries []model.LogEntry, sev model.Severity) []string {
	var out []string
	for _, e := range entries {
		if e.Severity == sev {
			out = append(out, e.Message)
		}
	}
	return out
}

func testConfig() *util.Config {
	cfg := util.DefaultConfig()
	cfg.DiscoveryConcurrency = 8
	return cfg
}
