// Package klc implements the KiCad Library Convention rule engine:
// rule results, report aggregation, console and JUnit output, and the
// batch runners for symbol and footprint libraries.
package klc

// Severity classifies a single rule log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeveritySuccess
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	}
	return "unknown"
}

// Exit statuses for the check commands. Warnings are an allowed
// failure in CI, errors fail the pipeline.
const (
	ExitPass     = 0
	ExitUsage    = 1
	ExitWarnings = 2
	ExitErrors   = 3
)

// ExitCode maps violation totals to the process exit status.
func ExitCode(errors, warnings int) int {
	if errors > 0 {
		return ExitErrors
	}
	if warnings > 0 {
		return ExitWarnings
	}
	return ExitPass
}
