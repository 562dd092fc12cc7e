package twodoc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/docforensic/docforensic/pkg/types"
)

// amountTolerance is the default absolute tolerance when comparing
// signed amounts against amounts printed in the text.
const amountTolerance = 0.01

// criticalDIs are the signed fields whose absence from the visible text
// marks benefit fraud: the tax notice reference, the tax amount, and
// the fiscal numbers.
var criticalDIs = map[string]bool{"41": true, "4V": true, "47": true, "49": true}

// ComparisonMatch records the outcome of searching one signed field in
// the visible text.
type ComparisonMatch struct {
	DI    string `json:"di"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// crossVerify searches every salient signed field in the document text
// and emits flags for missing critical fields, balance mismatches, and
// implausible income figures. The full match list lands in the module's
// details through the caller.
func crossVerify(result *types.ModuleResult, msg *Message, text string) []ComparisonMatch {
	normalizedText := NormalizeText(text)
	textAmounts := findAllAmounts(text)

	var matches []ComparisonMatch
	for _, field := range msg.Fields {
		entry := lookupDI(field.DI)
		if entry.Match == MatchNone || strings.TrimSpace(field.Value) == "" {
			continue
		}
		found := fieldFound(entry.Match, field.Value, text, normalizedText, textAmounts)
		matches = append(matches, ComparisonMatch{
			DI: field.DI, Name: field.Name, Value: field.Value, Found: found,
		})
		if found {
			continue
		}
		sev := types.SeverityMedium
		if criticalDIs[field.DI] {
			sev = types.SeverityCritical
		}
		result.AddFlag(types.NewFlag(sev, "TWODOC_MISSING_FIELD",
			fmt.Sprintf("Signed field %q does not appear in the visible document", field.Name)).
			WithDetails(map[string]interface{}{"di": field.DI, "name": field.Name, "value": field.Value}))
	}

	checkBalance(result, msg, textAmounts)
	checkIncomeConsistency(result, msg, text)
	return matches
}

func fieldFound(kind MatchKind, value, text, normalizedText string, textAmounts []float64) bool {
	switch kind {
	case MatchExact:
		return strings.Contains(text, value)
	case MatchNormalized:
		return strings.Contains(normalizedText, NormalizeText(value))
	case MatchAmount:
		amount, ok := parseSignedAmount(value)
		if !ok {
			return false
		}
		return amountInList(amount, textAmounts, amountTolerance)
	default:
		return false
	}
}

// checkBalance verifies the computed balance 4V − 4X appears verbatim
// among the text's amounts.
func checkBalance(result *types.ModuleResult, msg *Message, textAmounts []float64) {
	tax, okTax := msg.Get("4V")
	withheld, okWithheld := msg.Get("4X")
	if !okTax || !okWithheld {
		return
	}
	taxVal, ok1 := parseSignedAmount(tax.Value)
	withheldVal, ok2 := parseSignedAmount(withheld.Value)
	if !ok1 || !ok2 {
		return
	}
	balance := taxVal - withheldVal
	if amountInList(balance, textAmounts, amountTolerance) {
		return
	}
	result.AddFlag(types.NewFlag(types.SeverityHigh, "TWODOC_BALANCE_MISMATCH",
		"The balance implied by the signed tax fields appears nowhere in the document").
		WithDetails(map[string]interface{}{
			"tax_amount": taxVal, "withheld": withheldVal, "balance": balance,
		}))
}

// French progressive income-tax brackets, per household part: upper
// bound and marginal rate.
var taxBrackets = []struct {
	upTo float64
	rate float64
}{
	{11497, 0},
	{29315, 0.11},
	{83823, 0.30},
	{180294, 0.41},
	{math.Inf(1), 0.45},
}

// taxForIncome computes the progressive tax for an income split across
// parts household parts.
func taxForIncome(income, parts float64) float64 {
	if parts <= 0 {
		parts = 1
	}
	perPart := income / parts
	tax := 0.0
	lower := 0.0
	for _, bracket := range taxBrackets {
		if perPart <= lower {
			break
		}
		taxable := math.Min(perPart, bracket.upTo) - lower
		tax += taxable * bracket.rate
		lower = bracket.upTo
	}
	return tax * parts
}

// incomeForTax inverts taxForIncome by bisection: the income whose tax
// equals target, for the given parts.
func incomeForTax(target, parts float64) float64 {
	if target <= 0 {
		return 0
	}
	lo, hi := 0.0, 10_000_000.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if taxForIncome(mid, parts) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

var incomeKeywords = []string{
	"revenu brut", "revenu imposable", "revenu net", "revenu fiscal",
	"revenu global", "net imposable", "brut global",
}

var numberNearKeywordRe = regexp.MustCompile(`[0-9][0-9 .,\x{00a0}]*[0-9]|[0-9]`)

const (
	incomeWindow     = 50
	incomeScanFloor  = 1000.0
	incomeScanCeil   = 500000.0
	incomeTolerance  = 0.25
)

// checkIncomeConsistency cross-checks the income figures printed near
// income keywords against the plausible income range implied by the
// signed tax amount (4V) and household parts (43). Values far below the
// range are fabricated-poverty indicators (critical); far above, an
// inflated-income indicator (high). Values inside the widened range
// raise no flag and are not recorded anywhere in the result.
func checkIncomeConsistency(result *types.ModuleResult, msg *Message, text string) {
	tax, okTax := msg.Get("4V")
	partsField, okParts := msg.Get("43")
	if !okTax || !okParts {
		return
	}
	taxVal, ok1 := parseSignedAmount(tax.Value)
	parts, ok2 := parseSignedAmount(partsField.Value)
	if !ok1 || !ok2 || taxVal <= 0 {
		return
	}

	minIncome := incomeForTax(taxVal*(1-incomeTolerance), parts)
	maxIncome := incomeForTax(taxVal*(1+incomeTolerance), parts)

	for _, candidate := range incomeFiguresNearKeywords(text) {
		switch {
		case candidate < minIncome/2:
			result.AddFlag(types.NewFlag(types.SeverityCritical, "TWODOC_INCOME_IMPLAUSIBLE",
				fmt.Sprintf("Stated income %.0f is far below what the signed tax amount implies", candidate)).
				WithDetails(map[string]interface{}{
					"stated": candidate, "min_plausible": math.Round(minIncome), "max_plausible": math.Round(maxIncome),
				}))
		case candidate > maxIncome*2:
			result.AddFlag(types.NewFlag(types.SeverityHigh, "TWODOC_INCOME_IMPLAUSIBLE",
				fmt.Sprintf("Stated income %.0f is far above what the signed tax amount implies", candidate)).
				WithDetails(map[string]interface{}{
					"stated": candidate, "min_plausible": math.Round(minIncome), "max_plausible": math.Round(maxIncome),
				}))
		}
	}
}

// incomeFiguresNearKeywords finds every number in [1000, 500000] within
// 50 chars after an income-related keyword.
func incomeFiguresNearKeywords(text string) []float64 {
	lower := strings.ToLower(text)
	var out []float64
	for _, keyword := range incomeKeywords {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], keyword)
			if pos < 0 {
				break
			}
			start := idx + pos + len(keyword)
			end := start + incomeWindow
			if end > len(text) {
				end = len(text)
			}
			for _, m := range numberNearKeywordRe.FindAllString(text[start:end], -1) {
				if v, ok := parseSignedAmount(m); ok && v >= incomeScanFloor && v <= incomeScanCeil {
					out = append(out, v)
				}
			}
			idx = start
		}
	}
	return out
}

// parseSignedAmount parses a number in European ("1 234,56") or US
// ("1,234.56") convention, tolerating plain integers and non-breaking
// spaces.
func parseSignedAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// European: dot groups, comma decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// A lone comma is a decimal separator in European convention
		// unless it groups exactly three trailing digits... which is
		// ambiguous; 2D-DOC amounts use at most two decimals, so treat
		// ",NN" and ",N" as decimals and anything else as grouping.
		last := strings.LastIndex(s, ",")
		if len(s)-last-1 <= 2 {
			s = strings.ReplaceAll(s[:last], ",", "") + "." + s[last+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// findAllAmounts extracts every number-looking token from the text.
func findAllAmounts(text string) []float64 {
	var out []float64
	for _, m := range numberNearKeywordRe.FindAllString(text, -1) {
		if v, ok := parseSignedAmount(m); ok {
			out = append(out, v)
		}
	}
	return out
}

func amountInList(target float64, amounts []float64, tolerance float64) bool {
	for _, v := range amounts {
		if math.Abs(v-target) <= tolerance {
			return true
		}
	}
	return false
}

// accentFold maps accented Latin letters to their base letter, an
// explicit table standing in for NFD decomposition plus combining-mark
// removal.
var accentFold = map[rune]rune{
	'à': 'a', 'â': 'a', 'ä': 'a', 'á': 'a', 'ã': 'a',
	'ç': 'c',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'î': 'i', 'ï': 'i', 'í': 'i',
	'ô': 'o', 'ö': 'o', 'ó': 'o', 'õ': 'o',
	'ù': 'u', 'û': 'u', 'ü': 'u', 'ú': 'u',
	'ÿ': 'y',
	'ñ': 'n',
	'œ': 'o', 'æ': 'a',
}

// NormalizeText folds text for name/city/street matching: accents
// stripped, whitespace collapsed to single spaces, uppercased.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range strings.ToLower(s) {
		if folded, ok := accentFold[r]; ok {
			r = folded
		}
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ' ':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.ToUpper(strings.TrimSpace(b.String()))
}
