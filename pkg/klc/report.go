package klc

import "fmt"

// EntityResult is the outcome of running every rule against a single
// symbol or footprint.
type EntityResult struct {
	Library string
	Name    string
	Results []*Result

	// Exceptions maps rule name to the documented exception note for
	// rules the library opted out of.
	Exceptions map[string]string
}

// FullName returns the library-qualified entity name.
func (e *EntityResult) FullName() string {
	if e.Library == "" {
		return e.Name
	}
	return e.Library + ":" + e.Name
}

// ErrorCount returns the total errors across all rules.
func (e *EntityResult) ErrorCount() int {
	n := 0
	for _, r := range e.Results {
		n += r.ErrorCount()
	}
	return n
}

// WarningCount returns the total warnings across all rules.
func (e *EntityResult) WarningCount() int {
	n := 0
	for _, r := range e.Results {
		n += r.WarningCount()
	}
	return n
}

// Violations returns the results that produced output.
func (e *EntityResult) Violations() []*Result {
	var out []*Result
	for _, r := range e.Results {
		if r.HasOutput() {
			out = append(out, r)
		}
	}
	return out
}

// Report is the outcome of checking one library file.
type Report struct {
	Filename string
	Library  string
	Entities []*EntityResult

	// Failure is set when the file could not be checked at all, e.g.
	// a parse error. A failed file counts as one error.
	Failure error
}

// ErrorCount returns the total errors in the report.
func (r *Report) ErrorCount() int {
	if r.Failure != nil {
		return 1
	}
	n := 0
	for _, e := range r.Entities {
		n += e.ErrorCount()
	}
	return n
}

// WarningCount returns the total warnings in the report.
func (r *Report) WarningCount() int {
	n := 0
	for _, e := range r.Entities {
		n += e.WarningCount()
	}
	return n
}

// Metrics renders the per-entity and per-library violation counters in
// the plain "key value" form consumed by the metrics tooling.
func (r *Report) Metrics() []string {
	var lines []string
	for _, e := range r.Entities {
		lines = append(lines,
			fmt.Sprintf("%s.%s.warnings %d", e.Library, e.Name, e.WarningCount()),
			fmt.Sprintf("%s.%s.errors %d", e.Library, e.Name, e.ErrorCount()),
		)
	}
	lines = append(lines,
		fmt.Sprintf("%s.total_errors %d", r.Library, r.ErrorCount()),
		fmt.Sprintf("%s.total_warnings %d", r.Library, r.WarningCount()),
	)
	return lines
}

// Totals sums errors and warnings across reports.
func Totals(reports []*Report) (errors, warnings int) {
	for _, r := range reports {
		errors += r.ErrorCount()
		warnings += r.WarningCount()
	}
	return errors, warnings
}
