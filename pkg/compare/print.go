package compare

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

var (
	styleAdded     = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleChanged   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleRemoved   = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	styleBreaking  = lipgloss.NewStyle().Foreground(lipgloss.Color("176"))
	styleUnchanged = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Printer renders library diffs to a console.
type Printer struct {
	Out io.Writer

	// Verbose prints per-symbol lines; without it only breaking
	// changes and rule violations appear.
	Verbose bool

	// ShowUnchanged also lists libraries with no changes.
	ShowUnchanged bool

	// NoColor disables ANSI styling.
	NoColor bool
}

func (p *Printer) line(s lipgloss.Style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if !p.NoColor {
		text = s.Render(text)
	}
	fmt.Fprintln(p.Out, text)
}

func aliasInfo(d *SymbolDiff) string {
	switch {
	case d.Status == Removed && d.OldExtends != "":
		return " was an alias of " + d.OldExtends
	case d.NewExtends != "":
		return " alias of " + d.NewExtends
	}
	return ""
}

// PrintLibrary writes one library diff.
func (p *Printer) PrintLibrary(d *LibraryDiff, rulePrinter *klc.Printer) {
	if d.Failure != nil {
		p.line(styleRemoved, "Could not compare library '%s': %s", d.Name, d.Failure)
		return
	}
	switch d.Status {
	case Unchanged:
		if p.Verbose && p.ShowUnchanged {
			p.line(styleUnchanged, "No changes to library '%s'", d.Name)
		}
		return
	case Added:
		if p.Verbose {
			p.line(styleAdded, "Created library '%s'", d.Name)
		}
	case Removed:
		if p.Verbose {
			p.line(styleRemoved, "Removed library '%s'", d.Name)
		}
		return
	}

	for _, sd := range d.Symbols {
		p.printSymbol(sd, rulePrinter)
	}
}

func (p *Printer) printSymbol(sd *SymbolDiff, rulePrinter *klc.Printer) {
	if p.Verbose {
		switch sd.Status {
		case Added:
			p.line(styleAdded, "New '%s'%s", sd.FullName(), aliasInfo(sd))
		case Removed:
			p.line(styleRemoved, "Removed '%s'%s", sd.FullName(), aliasInfo(sd))
		case Changed:
			if sd.AliasChanged() {
				p.line(styleUnchanged, "Changed alias state of '%s'", sd.FullName())
			}
			p.line(styleChanged, "Changed '%s'%s", sd.FullName(), aliasInfo(sd))
		}
	}

	if sd.Pins != nil {
		if sd.Pins.Breaking() {
			p.line(styleBreaking,
				"Pins have been moved, renumbered or removed in symbol '%s'%s",
				sd.FullName(), aliasInfo(sd))
		} else if sd.Pins.NCOnly() {
			p.line(styleBreaking,
				"Normal pins ok but NC pins have been moved, renumbered or removed in symbol '%s'%s",
				sd.FullName(), aliasInfo(sd))
		}
	}

	if sd.MissingFootprint != "" {
		p.line(styleChanged, "Footprint '%s' of symbol '%s' was not found",
			sd.MissingFootprint, sd.FullName())
	}

	if sd.Check != nil && rulePrinter != nil {
		rulePrinter.PrintEntity("symbol", sd.Check)
	}
}

// PrintAll writes every library diff and a closing summary.
func (p *Printer) PrintAll(diffs []*LibraryDiff, rulePrinter *klc.Printer) {
	for _, d := range diffs {
		p.PrintLibrary(d, rulePrinter)
	}
	added, removed, changed, _, breaking, errors := Totals(diffs)
	style := styleUnchanged
	if errors > 0 || breaking > 0 {
		style = styleRemoved
	}
	p.line(style, "%d added, %d removed, %d changed, %d design-breaking, %d errors",
		added, removed, changed, breaking, errors)
}
