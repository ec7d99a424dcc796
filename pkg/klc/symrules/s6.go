package symrules

import (
	"regexp"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// Reference designator prefixes required for specific libraries.
var referencePrefixes = []struct {
	prefix    string
	libraries []string
}{
	{"Y", []string{"Oscillator"}},
}

// S6.1
func checkReferencePrefix(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	ref := sym.Property("Reference")
	if ref == nil {
		r.Error("Component is missing Reference field")
		return
	}
	for _, entry := range referencePrefixes {
		for _, lib := range entry.libraries {
			if sym.LibName == lib && !strings.HasPrefix(ref.Value, entry.prefix) {
				r.Errorf("Library %s should have %s as RD prefix", sym.LibName, entry.prefix)
			}
		}
	}
}

// Keyword tokens that carry no searchable meaning.
var fillerWords = map[string]bool{
	"and": true, "or": true, "the": true, "a": true, "an": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"with": true, "by": true, "for": true, "from": true, "as": true,
	"into": true, "onto": true, "upon": true, "over": true, "under": true,
	"through": true, "between": true, "among": true, "within": true,
	"without": true, "about": true, "after": true, "before": true,
	"during": true, "since": true, "until": true, "while": true,
	"till": true, "throughout": true, "along": true, "across": true,
	"against": true, "behind": true, "beside": true, "beyond": true,
	"inside": true, "outside": true,
}

var (
	keywordForbiddenRe = regexp.MustCompile(`\.\W|\.$|[,:;?!<>]`)
	tokenSplitRe       = regexp.MustCompile(`\s+|-`)
	nonWordRe          = regexp.MustCompile(`[^\w\s-]`)
)

// S6.2
func checkMetadata(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	special := sym.IsGraphicSymbol() || sym.IsPowerSymbol()

	if ref := sym.Property("Reference"); ref == nil {
		r.Error("Component is missing Reference field")
	} else if special {
		if !ref.Hidden {
			r.Error("Reference field must be INVISIBLE in graphic symbols or power-symbols")
		}
	} else if ref.Hidden {
		r.Error("Reference field must be VISIBLE")
	}

	if val := sym.Property("Value"); val == nil {
		r.Error("Component is missing Value field")
	} else {
		name := strings.Trim(val.Value, `"`)
		if special {
			if "~"+name != sym.Name && name != sym.Name {
				r.Errorf("Value %s does not match component name.", name)
			}
		} else {
			if name != sym.Name {
				r.Errorf("Value %s does not match component name.", name)
			}
			if val.Hidden {
				r.Error("Value field must be VISIBLE")
			}
		}
		if !klc.IsValidName(sym.Name, special) {
			r.Errorf("Symbol name '%s' contains invalid characters as per KLC 1.7", sym.Name)
		}
	}

	if fp := sym.Property("Footprint"); fp == nil {
		r.Error("Component is missing Footprint field")
	} else if !fp.Hidden {
		r.Error("Footprint field must be INVISIBLE")
	}

	checkDatasheet(ctx, r)
	checkDescription(ctx, r)
	checkKeywords(ctx, r)
}

func checkDatasheet(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	ds := sym.Property("Datasheet")
	if ds == nil {
		r.Error("Component is missing Datasheet field")
		return
	}
	if !ds.Hidden {
		r.Error("Datasheet field must be INVISIBLE")
	}
	if sym.IsGraphicSymbol() || sym.IsPowerSymbol() {
		return
	}
	if ds.Value == "" {
		r.Error("Datasheet field must not be EMPTY")
		return
	}
	if len(ds.Value) > 2 {
		link := strings.HasPrefix(ds.Value, "http") ||
			strings.HasPrefix(ds.Value, "www") ||
			strings.HasPrefix(ds.Value, "ftp") ||
			strings.HasSuffix(ds.Value, ".pdf") ||
			strings.Contains(ds.Value, ".htm")
		if !link {
			r.Warningf("Datasheet entry '%s' does not look like a URL", ds.Value)
		}
	}
}

func checkDescription(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	dsc := sym.Property("Description")
	if dsc == nil {
		if !sym.IsPowerSymbol() {
			r.Error("Missing Description field on 'Properties' tab")
		}
		return
	}
	if strings.Contains(strings.ToLower(dsc.Value), strings.ToLower(sym.Name)) {
		r.Warning("Symbol name should not be included in description")
	}
}

func checkKeywords(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	kw := sym.Property("ki_keywords")
	if kw == nil || kw.Value == "" {
		if !sym.IsPowerSymbol() {
			r.Warning("Missing or empty Keywords field on 'Properties' tab. If you have nothing to add here, add the manufacturer e.g. 'texas'")
		}
		return
	}
	keywords := kw.Value

	if m := keywordForbiddenRe.FindAllString(keywords, -1); len(m) > 0 {
		r.Errorf("Symbol keywords contain forbidden characters: %v", m)
	}

	var forbidden []string
	for _, token := range tokenizeKeywords(keywords, true) {
		if fillerWords[token] {
			forbidden = append(forbidden, token)
		}
	}
	if len(forbidden) > 0 {
		r.Errorf("Symbol keywords contain forbidden filler words: %v", forbidden)
	}

	description := sym.PropertyValue("Description")
	checkKeywordAliases(r, keywords, description)
}

// tokenizeKeywords lowercases and splits on whitespace, and optionally
// on dashes so "highspeed-opamp" yields both sub-tokens.
func tokenizeKeywords(keywords string, subTokens bool) []string {
	if !subTokens {
		return strings.Fields(strings.ToLower(keywords))
	}
	var out []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(keywords), -1) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func tokenizeDescription(description string, subTokens bool) []string {
	return tokenizeKeywords(nonWordRe.ReplaceAllString(description, ""), subTokens)
}

func contains(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// checkKeywordAliases nudges common synonyms into the keywords so both
// spellings are searchable.
func checkKeywordAliases(r *klc.Result, keywords, description string) {
	keywordTokens := tokenizeKeywords(keywords, false)
	keywordSubtokens := tokenizeKeywords(keywords, true)
	descriptionTokens := tokenizeDescription(description, false)
	descriptionSubtokens := tokenizeDescription(description, true)

	allTokens := append(append([]string{}, keywordTokens...), descriptionTokens...)
	allSubtokens := append(append([]string{}, keywordSubtokens...), descriptionSubtokens...)

	if contains(allSubtokens, "operational") && contains(descriptionTokens, "amplifier") {
		if !contains(allSubtokens, "opamp") {
			r.Warning("Metadata contains 'operational amplifier', please add 'opamp' to the keywords")
		}
	}
	if contains(allSubtokens, "opamp") && !(contains(allSubtokens, "operational") && contains(allSubtokens, "amplifier")) {
		r.Warning("Metadata contains 'opamp', please add 'operational-amplifier' to the keywords")
	}

	if contains(allTokens, "low-dropout") && contains(allSubtokens, "regulator") {
		if !contains(allTokens, "ldo") {
			r.Warning("Metadata contains 'low-dropout .. regulator', please add 'ldo' to the keywords")
		}
	}
	if contains(allTokens, "ldo") && !(contains(allTokens, "low-dropout") && contains(allSubtokens, "regulator")) {
		r.Warning("Metadata contains 'LDO', please add 'low-dropout-regulator' to the keywords")
	}
}
