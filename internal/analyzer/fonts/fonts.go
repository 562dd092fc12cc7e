// Package fonts implements the font analyzer (C6): canonical font-family
// construction from subset prefixes and style suffixes, diversity and
// embedding checks, and mid-line family-switch detection over positioned
// text spans.
package fonts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/docforensic/docforensic/pkg/types"
)

var subsetPrefixRe = regexp.MustCompile(`^[A-Z]{6}\+`)

// fontAliases folds vendor-specific base names onto their family.
var fontAliases = map[string]string{
	"arialmt":          "Arial",
	"arial-boldmt":     "Arial",
	"arialbd":          "Arial",
	"timesnewromanpsmt": "Times New Roman",
	"timesnewromanps":  "Times New Roman",
	"couriernewpsmt":   "Courier New",
	"helveticaneue":    "Helvetica",
	"segoeui":          "Segoe UI",
	"calibri-bold":     "Calibri",
}

// systemFontSubstrings mark fonts that ship with desktop OSes; their
// presence on an invoice hints at a home-edited document unless a
// professional typesetting font also appears.
var systemFontSubstrings = []string{
	"arial", "calibri", "cambria", "segoe", "tahoma", "verdana",
	"times new roman", "courier new", "comic sans",
}

// professionalFontSubstrings are fonts characteristic of professional
// invoice tooling; any match suppresses the system-font flag.
var professionalFontSubstrings = []string{
	"helvetica", "frutiger", "univers", "futura", "gotham",
	"proxima", "lato", "roboto", "open sans", "source sans",
}

// standard14 are the PDF base-14 fonts a viewer always provides; they
// are exempt from the not-embedded check.
var standard14 = map[string]bool{
	"courier": true, "courier-bold": true, "courier-oblique": true, "courier-boldoblique": true,
	"helvetica": true, "helvetica-bold": true, "helvetica-oblique": true, "helvetica-boldoblique": true,
	"times-roman": true, "times-bold": true, "times-italic": true, "times-bolditalic": true,
	"symbol": true, "zapfdingbats": true,
}

// CanonicalFamily reduces a raw font name to its family: strip the
// 6-letter subset prefix, take the token before the first '-' or ',',
// apply known aliases. Generic CID pseudo-families ("cidfont...") return
// the empty string and are excluded from family-level reasoning.
func CanonicalFamily(name string) string {
	base := subsetPrefixRe.ReplaceAllString(name, "")
	base = strings.TrimPrefix(base, "/")
	if i := strings.IndexAny(base, "-,"); i > 0 {
		base = base[:i]
	}
	lower := strings.ToLower(strings.TrimSpace(base))
	if lower == "" || strings.HasPrefix(lower, "cidfont") {
		return ""
	}
	// Aliases are keyed on the full post-prefix name first (ArialMT,
	// Arial-BoldMT), then on the truncated token.
	full := strings.ToLower(subsetPrefixRe.ReplaceAllString(name, ""))
	if alias, ok := fontAliases[full]; ok {
		return alias
	}
	if alias, ok := fontAliases[lower]; ok {
		return alias
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// stripSubset removes the subset prefix only, preserving style suffixes,
// for subset/non-subset same-base comparison.
func stripSubset(name string) string {
	return subsetPrefixRe.ReplaceAllString(name, "")
}

// Analyze runs every font check over the bundle's font records and
// positioned text spans.
func Analyze(bundle *types.DocumentBundle) *types.ModuleResult {
	result := types.NewModuleResult("fonts")

	families := map[string]bool{}
	for _, f := range bundle.Fonts {
		if fam := CanonicalFamily(f.Name); fam != "" {
			families[fam] = true
		}
	}

	checkDiversity(result, families)
	checkSystemFonts(result, bundle.Fonts)
	checkEmbedding(result, bundle.Fonts)
	checkMixedSubsets(result, bundle.Fonts)
	checkMidlineChanges(result, bundle.TextSpans)

	switch {
	case len(bundle.Fonts) >= 3:
		result.Confidence = 0.9
	case len(bundle.Fonts) >= 1:
		result.Confidence = 0.7
	default:
		result.Confidence = 0.3
	}
	return result
}

// checkDiversity flags unusually many font families. The thresholds are
// deliberately high: legitimate invoices routinely mix many families.
func checkDiversity(result *types.ModuleResult, families map[string]bool) {
	n := len(families)
	names := make([]string, 0, n)
	for fam := range families {
		names = append(names, fam)
	}
	sort.Strings(names)

	switch {
	case n > 10:
		result.AddFlag(types.NewFlag(types.SeverityHigh, "FONTS_EXCESSIVE_DIVERSITY",
			fmt.Sprintf("Document uses %d font families", n)).
			WithDetails(map[string]interface{}{"count": n, "families": names}))
	case n > 7:
		result.AddFlag(types.NewFlag(types.SeverityMedium, "FONTS_HIGH_DIVERSITY",
			fmt.Sprintf("Document uses %d font families", n)).
			WithDetails(map[string]interface{}{"count": n, "families": names}))
	}
}

func checkSystemFonts(result *types.ModuleResult, fonts []types.FontRecord) {
	var matched string
	professional := false
	for _, f := range fonts {
		lower := strings.ToLower(f.Name)
		for _, sys := range systemFontSubstrings {
			if strings.Contains(lower, strings.ReplaceAll(sys, " ", "")) || strings.Contains(lower, sys) {
				matched = f.Name
			}
		}
		for _, pro := range professionalFontSubstrings {
			if strings.Contains(lower, strings.ReplaceAll(pro, " ", "")) || strings.Contains(lower, pro) {
				professional = true
			}
		}
	}
	if matched != "" && !professional {
		result.AddFlag(types.NewFlag(types.SeverityLow, "FONTS_SYSTEM_FONTS",
			"Document uses desktop system fonts with no professional typesetting font").
			WithDetails(map[string]interface{}{"example": matched}))
	}
}

func checkEmbedding(result *types.ModuleResult, fonts []types.FontRecord) {
	var notEmbedded []string
	for _, f := range fonts {
		base := strings.ToLower(stripSubset(f.Name))
		if f.IsEmbedded || standard14[base] {
			continue
		}
		notEmbedded = append(notEmbedded, f.Name)
	}
	if len(notEmbedded) > 0 {
		result.AddFlag(types.NewFlag(types.SeverityLow, "FONTS_NOT_EMBEDDED",
			fmt.Sprintf("%d non-standard fonts are not embedded", len(notEmbedded))).
			WithDetails(map[string]interface{}{"fonts": notEmbedded}))
	}
}

// checkMixedSubsets flags a base name appearing both with and without a
// subset prefix; a source document subsets consistently, an edited one
// often mixes the original subset with an editor-added full font.
func checkMixedSubsets(result *types.ModuleResult, fonts []types.FontRecord) {
	subset := map[string]bool{}
	plain := map[string]bool{}
	for _, f := range fonts {
		base := stripSubset(f.Name)
		if f.IsSubset {
			subset[base] = true
		} else {
			plain[base] = true
		}
	}
	var mixed []string
	for base := range subset {
		if plain[base] {
			mixed = append(mixed, base)
		}
	}
	if len(mixed) > 0 {
		sort.Strings(mixed)
		result.AddFlag(types.NewFlag(types.SeverityLow, "FONTS_MIXED_SUBSETS",
			"The same base font appears both subset and non-subset").
			WithDetails(map[string]interface{}{"fonts": mixed}))
	}
}

type lineKey struct {
	page int
	y    int // baseline rounded to a point
}

// checkMidlineChanges groups spans by baseline and flags lines whose
// non-empty spans use more than one canonical family (excluding generic
// CID pseudo-families). A couple of affected lines is medium; more
// suggests systematic character-level patching and is high.
func checkMidlineChanges(result *types.ModuleResult, spans []types.TextSpan) {
	lines := map[lineKey][]types.TextSpan{}
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		key := lineKey{page: s.Page, y: int(s.Y + 0.5)}
		lines[key] = append(lines[key], s)
	}

	type suspiciousLine struct {
		key      lineKey
		text     string
		families []string
	}
	var suspicious []suspiciousLine
	for key, lineSpans := range lines {
		if len(lineSpans) < 2 {
			continue
		}
		fams := map[string]bool{}
		var text strings.Builder
		for _, s := range lineSpans {
			if fam := CanonicalFamily(s.FontName); fam != "" {
				fams[fam] = true
			}
			text.WriteString(s.Text)
		}
		if len(fams) > 1 {
			var famList []string
			for fam := range fams {
				famList = append(famList, fam)
			}
			sort.Strings(famList)
			suspicious = append(suspicious, suspiciousLine{key: key, text: text.String(), families: famList})
		}
	}
	if len(suspicious) == 0 {
		return
	}
	sort.Slice(suspicious, func(i, j int) bool {
		if suspicious[i].key.page != suspicious[j].key.page {
			return suspicious[i].key.page < suspicious[j].key.page
		}
		return suspicious[i].key.y > suspicious[j].key.y // top of page first
	})

	sev := types.SeverityMedium
	if len(suspicious) > 2 {
		sev = types.SeverityHigh
	}
	var samples []map[string]interface{}
	for i, line := range suspicious {
		if i == 5 {
			break
		}
		samples = append(samples, map[string]interface{}{
			"page":     line.key.page,
			"text":     truncate(line.text, 80),
			"families": line.families,
		})
	}
	result.AddFlag(types.NewFlag(sev, "FONTS_MIDLINE_CHANGE",
		fmt.Sprintf("%d lines switch font family mid-line", len(suspicious))).
		WithDetails(map[string]interface{}{"count": len(suspicious), "lines": samples}))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
