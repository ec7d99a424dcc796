package symrules

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// S5.1
func checkFootprintLink(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsPowerSymbol() || sym.IsGraphicSymbol() {
		return
	}
	fp := sym.PropertyValue("Footprint")
	if fp == "" {
		// A symbol with footprint filters instead of a default
		// footprint is fine.
		return
	}

	parts := strings.Split(fp, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		r.Errorf("Footprint entry '%s' is not of the form Library:Footprint", fp)
		return
	}

	if ctx.FootprintsDir == "" {
		return
	}
	path := filepath.Join(ctx.FootprintsDir, parts[0]+".pretty", parts[1]+".kicad_mod")
	if _, err := os.Stat(path); err != nil {
		r.Errorf("Footprint '%s' not found", fp)
		r.Extraf("Expected file %s", path)
	}
}

var pinNumberFilterRe = regexp.MustCompile(`(?i)(SOIC|SOIJ|SIP|DIP|SO|SOT-\d+|SOT\d+|QFN|DFN|QFP|SOP|TO-\d+|VSO|PGA|BGA|LLC|LGA)-\d+[W-_\*\?$]+`)

// S5.2
func checkFootprintFilters(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	filters := sym.FPFilters()

	if !sym.IsGraphicSymbol() && !sym.IsPowerSymbol() && len(filters) == 0 {
		r.Warning("No footprint filters defined")
	}

	for _, filter := range filters {
		var problems []string
		if !strings.Contains(filter, "*") {
			problems = append(problems, "Does not contain wildcard ('*') character")
		} else if !strings.HasSuffix(filter, "*") {
			problems = append(problems, "Does not end with ('*') character")
		}
		if strings.Count(filter, ":") > 1 {
			problems = append(problems, "Filter should not contain more than one (':') character")
		}
		if len(problems) > 0 {
			r.Errorf("Footprint filter '%s' not correctly formatted", filter)
			for _, p := range problems {
				r.Extra(p)
			}
		}

		if pinNumberFilterRe.MatchString(filter) {
			r.Warningf("Footprint filter '%s' seems to contain pin-number, but should not!", filter)
		}
		if strings.ContainsAny(filter, "-_") {
			r.Warningf("Minuses and underscores in footprint filter '%s' should be escaped with '?' or '*'.", filter)
		}
	}
}
