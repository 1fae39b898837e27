package report

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "report.log"), false)
	require.NoError(t, err)
	store.SetConsole(io.Discard)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAppendOrder(t *testing.T) {
	store := newTestStore(t)

	store.Info("first")
	store.Success("second")
	store.Warn("third")
	store.Error("fourth")

	entries := store.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, model.SeverityInfo, entries[0].Severity)
	assert.Equal(t, model.SeveritySuccess, entries[1].Severity)
	assert.Equal(t, model.SeverityWarn, entries[2].Severity)
	assert.Equal(t, model.SeverityError, entries[3].Severity)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, 4, store.Len())
}

func TestStoreLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.log")
	store, err := NewStore(path, false)
	require.NoError(t, err)
	store.SetConsole(io.Discard)

	store.Warn("latency is %d ms", 120)
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimRight(string(data), "\n")

	re := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[WARN\] latency is 120 ms$`)
	assert.Regexp(t, re, line)
}

func TestStoreEscapesNewlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.log")
	store, err := NewStore(path, false)
	require.NoError(t, err)
	store.SetConsole(io.Discard)

	store.Error("probe failed: %s", "read tcp\r\nconnection reset\nby peer")
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `read tcp\nconnection reset\nby peer`)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Message, "\n")
}

func TestStoreEntriesReturnsCopy(t *testing.T) {
	store := newTestStore(t)
	store.Info("original")

	entries := store.Entries()
	entries[0].Message = "mutated"

	assert.Equal(t, "original", store.Entries()[0].Message)
}

func TestSummarizeVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		errors   int
		warnings int
		verdict  model.Verdict
	}{
		{"clean", 0, 0, model.VerdictClean},
		{"warnings only", 0, 2, model.VerdictMinorIssues},
		{"errors only", 1, 0, model.VerdictCriticalIssues},
		{"errors win over warnings", 3, 5, model.VerdictCriticalIssues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			for i := 0; i < tt.errors; i++ {
				store.Error("error %d", i)
			}
			for i := 0; i < tt.warnings; i++ {
				store.Warn("warning %d", i)
			}
			store.Info("neutral")
			store.Success("also neutral")

			sum := Summarize(store)
			assert.Equal(t, tt.errors, sum.Errors)
			assert.Equal(t, tt.warnings, sum.Warnings)
			assert.Equal(t, tt.verdict, sum.Verdict)
		})
	}
}

func TestSummarizeEmitsSummaryLines(t *testing.T) {
	store := newTestStore(t)
	store.Warn("something minor")

	before := store.Len()
	sum := Summarize(store)
	entries := store.Entries()

	// One count line plus one verdict line.
	require.Len(t, entries, before+2)
	assert.Equal(t, "Diagnostic summary: 0 error(s), 1 warning(s)", entries[before].Message)
	assert.Equal(t, model.SeverityWarn, entries[before+1].Severity)
	assert.Equal(t, model.VerdictMinorIssues, sum.Verdict)
}

func TestSummarizeCountsPrecedingEntriesOnly(t *testing.T) {
	store := newTestStore(t)
	store.Error("real problem")

	sum := Summarize(store)
	assert.Equal(t, 1, sum.Errors)

	// The verdict line itself is an ERROR entry but must not have been
	// counted into the summary it belongs to.
	sum2 := Summarize(store)
	assert.Equal(t, 2, sum2.Errors)
}
