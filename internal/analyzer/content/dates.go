package content

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateType classifies what a date found in document text refers to.
type DateType string

const (
	DateTypeInvoice  DateType = "invoice"
	DateTypeService  DateType = "service"
	DateTypeDue      DateType = "due"
	DateTypeOrder    DateType = "order"
	DateTypeCreation DateType = "creation"
	DateTypeUnknown  DateType = "unknown"
)

// ExtractedDate is a date found in document text together with the
// surrounding context used to classify it.
type ExtractedDate struct {
	Value   time.Time
	Type    DateType
	Context string // up to 60 chars of text preceding the match, same line
}

var frenchMonths = map[string]time.Month{
	"janvier": time.January, "février": time.February, "fevrier": time.February,
	"mars": time.March, "avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "aout": time.August,
	"septembre": time.September, "octobre": time.October,
	"novembre": time.November, "décembre": time.December, "decembre": time.December,
}

var frenchMonthsAbbrev = map[string]time.Month{
	"janv": time.January, "jan": time.January,
	"févr": time.February, "fevr": time.February, "fev": time.February, "feb": time.February,
	"mars": time.March, "mar": time.March,
	"avr": time.April,
	"mai": time.May,
	"juin": time.June, "jun": time.June,
	"juil": time.July, "jul": time.July,
	"août": time.August, "aout": time.August, "aug": time.August,
	"sept": time.September, "sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"déc": time.December, "dec": time.December,
}

// classifierKeywords maps DateType to the context keyword phrases that
// identify it. classify picks the longest phrase the context contains
// (by byte length; on a tie the earlier entry wins), so e.g. "date de
// commande" wins over the bare "date" fallback (spec §4.4 longest-match
// discipline: "date" must never steal a match from a more specific
// phrase).
var classifierKeywords = []struct {
	keyword string
	typ     DateType
}{
	{"date de facturation", DateTypeInvoice},
	{"date de facture", DateTypeInvoice},
	{"date d'émission", DateTypeInvoice},
	{"date d'emission", DateTypeInvoice},
	{"date de commande", DateTypeOrder},
	{"date de livraison", DateTypeService},
	{"date d'échéance", DateTypeDue},
	{"date d'echeance", DateTypeDue},
	{"date de création", DateTypeCreation},
	{"date de creation", DateTypeCreation},
	{"date de paiement", DateTypeDue},
	{"date d'exécution", DateTypeService},
	{"date d'execution", DateTypeService},
	{"date de service", DateTypeService},
	{"echéance", DateTypeDue},
	{"échéance", DateTypeDue},
	{"facture", DateTypeInvoice},
	{"commande", DateTypeOrder},
	{"livraison", DateTypeService},
	{"date", DateTypeUnknown},
}

var (
	frenchFullDateRe = regexp.MustCompile(
		`(?i)\b(1er|[0-9]{1,2})\s+(` + monthNameAlternation(frenchMonths) + `)\s+([0-9]{4})\b`)
	numericDateLongRe = regexp.MustCompile(
		`\b([0-9]{1,2})[/\-]([0-9]{1,2})[/\-]([0-9]{4})(?:\s+([0-9]{1,2}):([0-9]{2}))?\b`)
	numericDateShortRe = regexp.MustCompile(
		`\b([0-9]{1,2})[/\-]([0-9]{1,2})[/\-]([0-9]{2})\b`)
	abbrevMonthDateRe = regexp.MustCompile(
		`(?i)\b(` + monthNameAlternation(frenchMonthsAbbrev) + `)\.?\s+([0-9]{2})\b`)
)

func monthNameAlternation(m map[string]time.Month) string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, regexp.QuoteMeta(k))
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return strings.Join(names, "|")
}

// extractDatesFromText runs the three cooperating parsers (full French
// month name, numeric day-first, abbreviated French month) in order and
// deduplicates by (value, lowercased context).
func extractDatesFromText(text string) []ExtractedDate {
	seen := make(map[string]bool)
	var out []ExtractedDate

	add := func(d ExtractedDate) {
		key := d.Value.Format("2006-01-02") + "|" + strings.ToLower(d.Context)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, d)
	}

	for _, d := range findFrenchDates(text) {
		add(d)
	}
	for _, d := range findNumericDates(text) {
		add(d)
	}
	for _, d := range findAbbreviatedMonthDates(text) {
		add(d)
	}
	return out
}

func lineContext(text string, matchStart int) string {
	lineStart := strings.LastIndexByte(text[:matchStart], '\n') + 1
	ctx := text[lineStart:matchStart]
	if len(ctx) > 60 {
		ctx = ctx[len(ctx)-60:]
	}
	return strings.TrimSpace(ctx)
}

func classify(context string) DateType {
	lower := strings.ToLower(context)
	best, bestLen := DateTypeUnknown, 0
	for _, ck := range classifierKeywords {
		if len(ck.keyword) > bestLen && strings.Contains(lower, ck.keyword) {
			best, bestLen = ck.typ, len(ck.keyword)
		}
	}
	return best
}

func findFrenchDates(text string) []ExtractedDate {
	var out []ExtractedDate
	for _, loc := range frenchFullDateRe.FindAllStringSubmatchIndex(text, -1) {
		dayStr := text[loc[2]:loc[3]]
		monthStr := strings.ToLower(text[loc[4]:loc[5]])
		yearStr := text[loc[6]:loc[7]]

		day := 1
		if dayStr != "1er" {
			var err error
			day, err = strconv.Atoi(dayStr)
			if err != nil {
				continue
			}
		}
		month, ok := frenchMonths[monthStr]
		if !ok {
			continue
		}
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			continue
		}
		t, ok := validDate(year, month, day, 0, 0)
		if !ok {
			continue
		}
		ctx := lineContext(text, loc[0])
		out = append(out, ExtractedDate{Value: t, Type: classify(ctx), Context: ctx})
	}
	return out
}

func findNumericDates(text string) []ExtractedDate {
	var out []ExtractedDate
	for _, loc := range numericDateLongRe.FindAllStringSubmatchIndex(text, -1) {
		day := atoiOr(text, loc, 2)
		month := atoiOr(text, loc, 4)
		year := atoiOr(text, loc, 6)
		hour, minute := 0, 0
		if loc[8] != -1 {
			hour = atoiOr(text, loc, 8)
			minute = atoiOr(text, loc, 10)
		}
		t, ok := validDate(year, time.Month(month), day, hour, minute)
		if !ok {
			continue
		}
		ctx := lineContext(text, loc[0])
		out = append(out, ExtractedDate{Value: t, Type: classify(ctx), Context: ctx})
	}
	for _, loc := range numericDateShortRe.FindAllStringSubmatchIndex(text, -1) {
		day := atoiOr(text, loc, 2)
		month := atoiOr(text, loc, 4)
		yy := atoiOr(text, loc, 6)
		t, ok := validDate(2000+yy, time.Month(month), day, 0, 0)
		if !ok {
			continue
		}
		ctx := lineContext(text, loc[0])
		out = append(out, ExtractedDate{Value: t, Type: classify(ctx), Context: ctx})
	}
	return out
}

func findAbbreviatedMonthDates(text string) []ExtractedDate {
	var out []ExtractedDate
	for _, loc := range abbrevMonthDateRe.FindAllStringSubmatchIndex(text, -1) {
		monthStr := strings.ToLower(text[loc[2]:loc[3]])
		yy := atoiOr(text, loc, 4)
		month, ok := frenchMonthsAbbrev[monthStr]
		if !ok {
			continue
		}
		t, ok := validDate(2000+yy, month, 1, 0, 0)
		if !ok {
			continue
		}
		ctx := lineContext(text, loc[0])
		out = append(out, ExtractedDate{Value: t, Type: classify(ctx), Context: ctx})
	}
	return out
}

func atoiOr(text string, loc []int, idx int) int {
	v, err := strconv.Atoi(text[loc[idx]:loc[idx+1]])
	if err != nil {
		return -1
	}
	return v
}

// validDate builds a time.Time and rejects any input that time.Date
// silently normalized (e.g. Feb 30 rolling into March), per spec §4.4:
// "invalid calendar dates are discarded silently."
func validDate(year int, month time.Month, day, hour, minute int) (time.Time, bool) {
	if year < 1000 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
