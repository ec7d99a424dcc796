package klc

import "fmt"

// LogEntry is one message emitted by a rule check, with optional
// detail lines.
type LogEntry struct {
	Severity Severity
	Message  string
	Extras   []string
}

// Result collects the output of running one rule against one entity.
type Result struct {
	Rule        string
	Description string
	Entries     []*LogEntry

	errorCount   int
	warningCount int
}

// NewResult builds an empty result for the named rule.
func NewResult(rule, description string) *Result {
	return &Result{Rule: rule, Description: description}
}

// Error records a violation at error severity.
func (r *Result) Error(msg string) {
	r.errorCount++
	r.Entries = append(r.Entries, &LogEntry{Severity: SeverityError, Message: msg})
}

// Errorf records a formatted violation at error severity.
func (r *Result) Errorf(format string, args ...any) {
	r.Error(fmt.Sprintf(format, args...))
}

// Warning records a violation at warning severity.
func (r *Result) Warning(msg string) {
	r.warningCount++
	r.Entries = append(r.Entries, &LogEntry{Severity: SeverityWarning, Message: msg})
}

// Warningf records a formatted violation at warning severity.
func (r *Result) Warningf(format string, args ...any) {
	r.Warning(fmt.Sprintf(format, args...))
}

// Info records an informational message.
func (r *Result) Info(msg string) {
	r.Entries = append(r.Entries, &LogEntry{Severity: SeverityInfo, Message: msg})
}

// Extra attaches a detail line to the most recent entry.
func (r *Result) Extra(msg string) {
	if len(r.Entries) == 0 {
		return
	}
	last := r.Entries[len(r.Entries)-1]
	last.Extras = append(last.Extras, msg)
}

// Extraf attaches a formatted detail line to the most recent entry.
func (r *Result) Extraf(format string, args ...any) {
	r.Extra(fmt.Sprintf(format, args...))
}

// ErrorCount returns the number of error entries.
func (r *Result) ErrorCount() int { return r.errorCount }

// WarningCount returns the number of warning entries.
func (r *Result) WarningCount() int { return r.warningCount }

// HasErrors reports whether the rule found any errors.
func (r *Result) HasErrors() bool { return r.errorCount > 0 }

// HasWarnings reports whether the rule found any warnings.
func (r *Result) HasWarnings() bool { return r.warningCount > 0 }

// HasOutput reports whether the rule produced any entries at all.
func (r *Result) HasOutput() bool { return len(r.Entries) > 0 }

// Demote converts every error and warning entry to info severity.
// Used when a library carries a documented exception for the rule.
func (r *Result) Demote() {
	for _, e := range r.Entries {
		if e.Severity == SeverityError || e.Severity == SeverityWarning {
			e.Severity = SeverityInfo
		}
	}
	r.errorCount = 0
	r.warningCount = 0
}
