package klc

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")

	styleHeader    = lipgloss.NewStyle().Foreground(colorGreen)
	styleViolation = lipgloss.NewStyle().Foreground(colorYellow)
	styleError     = lipgloss.NewStyle().Foreground(colorRed)
	styleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	styleInfo      = lipgloss.NewStyle().Foreground(colorGray)
	styleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
)

// Printer renders check results to a console.
type Printer struct {
	Out io.Writer

	// Verbose controls how much of each result is shown: 0 prints only
	// the violated rule names, 1 adds the messages, 2 adds the extras.
	Verbose int

	// NoColor disables ANSI styling.
	NoColor bool

	// Silent suppresses everything except errors.
	Silent bool
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.NoColor {
		return text
	}
	return s.Render(text)
}

func (p *Printer) line(s lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.Out, p.render(s, fmt.Sprintf(format, args...)))
}

func severityStyle(sev Severity) lipgloss.Style {
	switch sev {
	case SeverityError:
		return styleError
	case SeverityWarning:
		return styleWarning
	case SeveritySuccess:
		return styleSuccess
	default:
		return styleInfo
	}
}

// PrintEntity writes the results for one checked symbol or footprint.
// kind is the noun used in the header, e.g. "symbol" or "footprint".
func (p *Printer) PrintEntity(kind string, e *EntityResult) {
	violations := e.Violations()
	if len(violations) == 0 && len(e.Exceptions) == 0 {
		if p.Verbose > 0 && !p.Silent {
			p.line(styleHeader, "Checking %s '%s':", kind, e.FullName())
		}
		return
	}
	if !p.Silent || e.ErrorCount() > 0 {
		p.line(styleHeader, "Checking %s '%s':", kind, e.FullName())
	}
	for _, r := range violations {
		if p.Silent && r.ErrorCount() == 0 {
			continue
		}
		p.line(styleViolation, "  Violating %s - %s", r.Rule, RuleURL(r.Rule))
		if p.Verbose < 1 {
			continue
		}
		for _, entry := range r.Entries {
			p.line(severityStyle(entry.Severity), "    %s", entry.Message)
			if p.Verbose > 1 {
				for _, extra := range entry.Extras {
					p.line(styleInfo, "      %s", extra)
				}
			}
		}
	}
	if p.Silent {
		return
	}
	for rule, note := range e.Exceptions {
		p.line(styleInfo, "  Exception %s, Rule: %s - %s, Note: %s",
			e.FullName(), rule, RuleURL(rule), note)
	}
}

// PrintReport writes a full library report.
func (p *Printer) PrintReport(kind string, r *Report) {
	if r.Failure != nil {
		p.line(styleError, "Could not check %s: %s", r.Filename, r.Failure)
		return
	}
	for _, e := range r.Entities {
		p.PrintEntity(kind, e)
	}
}

// PrintMetrics writes the metrics counter lines for a report.
func (p *Printer) PrintMetrics(r *Report) {
	fmt.Fprintln(p.Out, strings.Join(r.Metrics(), "\n"))
}

// PrintSummary writes the final error/warning totals.
func (p *Printer) PrintSummary(reports []*Report) {
	errors, warnings := Totals(reports)
	style := styleSuccess
	if errors > 0 {
		style = styleError
	} else if warnings > 0 {
		style = styleWarning
	}
	p.line(style, "Found %d errors and %d warnings", errors, warnings)
}
