package report

import "github.com/user/netdiag/internal/model"

// Summarize performs the final linear scan over the store, counting ERROR
// and WARN entries recorded before the scan, and emits the verdict lines.
func Summarize(store *Store) model.Summary {
	var errors, warnings int
	for _, e := range store.Entries() {
		switch e.Severity {
		case model.SeverityError:
			errors++
		case model.SeverityWarn:
			warnings++
		}
	}

	sum := model.Summary{
		Errors:   errors,
		Warnings: warnings,
		Verdict:  verdictFor(errors, warnings),
	}

	store.Info("Diagnostic summary: %d error(s), %d warning(s)", errors, warnings)
	switch sum.Verdict {
	case model.VerdictClean:
		store.Success("Verdict: no issues detected")
	case model.VerdictMinorIssues:
		store.Warn("Verdict: minor issues detected")
	case model.VerdictCriticalIssues:
		store.Error("Verdict: critical issues detected")
	}

	return sum
}

func verdictFor(errors, warnings int) model.Verdict {
	switch {
	case errors > 0:
		return model.VerdictCriticalIssues
	case warnings > 0:
		return model.VerdictMinorIssues
	default:
		return model.VerdictClean
	}
}
