package content

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/docforensic/docforensic/pkg/types"
)

// europeanAmountRe matches thousands-grouped-by-space-or-dot, comma
// decimal amounts, optionally preceded or followed by a currency symbol:
// "1 234,56", "1.234,56", "€12,50". The \b guards keep a partial prefix
// like "1,23" from matching inside a US-formatted "1,234.56".
var europeanAmountRe = regexp.MustCompile(
	`[€$£]?\s?\b([0-9]{1,3}(?:[ .][0-9]{3})*,[0-9]{2})\b\s?[€$£]?`)

// usAmountRe matches comma-grouped, dot-decimal amounts: "1,234.56".
var usAmountRe = regexp.MustCompile(
	`[€$£]?\s?\b([0-9]{1,3}(?:,[0-9]{3})*\.[0-9]{2})\b\s?[€$£]?`)

// extractAmounts parses every European- and US-formatted monetary amount
// in text, discarding anything below 1.0 (spec §4.4).
func extractAmounts(text string) []float64 {
	var out []float64
	for _, m := range europeanAmountRe.FindAllStringSubmatch(text, -1) {
		v, ok := parseEuropeanAmount(m[1])
		if ok && v >= 1.0 {
			out = append(out, v)
		}
	}
	for _, m := range usAmountRe.FindAllStringSubmatch(text, -1) {
		v, ok := parseUSAmount(m[1])
		if ok && v >= 1.0 {
			out = append(out, v)
		}
	}
	return out
}

func parseEuropeanAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseUSAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// checkDuplicateAmounts flags any exact amount recurring more than 3
// times.
func checkDuplicateAmounts(result *types.ModuleResult, amounts []float64) {
	counts := make(map[string]int)
	for _, a := range amounts {
		counts[formatAmount(a)]++
	}
	var repeated []string
	for amount, count := range counts {
		if count > 3 {
			repeated = append(repeated, amount)
		}
	}
	sort.Strings(repeated)
	for _, amount := range repeated {
		result.AddFlag(types.NewFlag(types.SeverityLow, "CONTENT_REPEATED_AMOUNT",
			"The same amount appears an unusually large number of times").
			WithDetails(map[string]interface{}{"amount": amount, "count": counts[amount]}))
	}
}
