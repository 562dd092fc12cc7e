package content

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docforensic/docforensic/pkg/types"
)

// InvoiceReference is an invoice number found in the document text,
// together with any date embedded inside it.
type InvoiceReference struct {
	Raw          string
	EmbeddedDate *time.Time
	// Granularity records how much of the embedded date was present:
	// "day" (YYYYMMDD), "month" (YYYYMM), or "year" (YYYY).
	Granularity string
}

// referenceAnchorRe matches an invoice-number pattern anchored by a
// contextual keyword; the keyword requirement keeps street numbers and
// client account numbers out of the candidate pool.
var referenceAnchorRe = regexp.MustCompile(
	`(?i)(facture\s*(?:n[°o]\.?|#|:)?|invoice\s*(?:n[°o]\.?|#|:)?|n[°o]\s*de\s*facture\s*:?|r[ée]f[ée]rence\s*(?:facture)?\s*:?)\s*([A-Z0-9][A-Z0-9/_\-\.]{2,24})`)

// exclusionKeywords disqualify a candidate whose nearby context marks it
// as something other than an invoice number (postal routing, meter and
// contract identifiers).
var exclusionKeywords = []string{
	"libre réponse", "libre reponse", "cedex", "pdl", "pce",
	"client n°", "client no", "contrat n°", "contrat no", "compte n°", "compte no",
}

// extractAllInvoiceReferences finds every keyword-anchored invoice
// reference in text, skipping matches whose anchor keyword, or the text
// before the match on the same line (at most 60 characters), carries an
// exclusion keyword (spec §4.4).
func extractAllInvoiceReferences(text string) []InvoiceReference {
	var out []InvoiceReference
	seen := map[string]bool{}

	for _, loc := range referenceAnchorRe.FindAllStringSubmatchIndex(text, -1) {
		ctx := strings.ToLower(lineContext(text, loc[0]) + " " + text[loc[2]:loc[3]])
		if hasExclusionKeyword(ctx) {
			continue
		}
		raw := strings.Trim(text[loc[4]:loc[5]], ".-/")
		if raw == "" || isAllLetters(raw) {
			continue
		}
		key := strings.ToUpper(raw)
		if seen[key] {
			continue
		}
		seen[key] = true

		ref := InvoiceReference{Raw: raw}
		if d, gran, ok := extractEmbeddedDate(raw); ok {
			ref.EmbeddedDate = &d
			ref.Granularity = gran
		}
		out = append(out, ref)
	}
	return out
}

func hasExclusionKeyword(ctx string) bool {
	for _, kw := range exclusionKeywords {
		if strings.Contains(ctx, kw) {
			return true
		}
	}
	return false
}

func isAllLetters(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

var embeddedDateRes = []struct {
	re          *regexp.Regexp
	granularity string
}{
	// Longest first: YYYYMMDD wins over YYYYMM wins over YYYY. All
	// require the literal "20" century prefix so product codes don't
	// masquerade as dates.
	{regexp.MustCompile(`20[0-9]{2}(0[1-9]|1[0-2])(0[1-9]|[12][0-9]|3[01])`), "day"},
	{regexp.MustCompile(`20[0-9]{2}(0[1-9]|1[0-2])`), "month"},
	{regexp.MustCompile(`20[0-9]{2}`), "year"},
}

// extractEmbeddedDate tries YYYYMMDD, then YYYYMM, then YYYY inside a
// reference string.
func extractEmbeddedDate(ref string) (time.Time, string, bool) {
	for _, cand := range embeddedDateRes {
		m := cand.re.FindString(ref)
		if m == "" {
			continue
		}
		year, _ := strconv.Atoi(m[:4])
		month, day := 1, 1
		if len(m) >= 6 {
			month, _ = strconv.Atoi(m[4:6])
		}
		if len(m) >= 8 {
			day, _ = strconv.Atoi(m[6:8])
		}
		t, ok := validDate(year, time.Month(month), day, 0, 0)
		if !ok {
			continue
		}
		return t, cand.granularity, true
	}
	return time.Time{}, "", false
}

// checkReferenceDates compares each reference's embedded date against
// the document's invoice date; a disagreement suggests the reference and
// the visible date were edited independently. Severity scales with how
// coarse the disagreement is: year > month > day.
func checkReferenceDates(result *types.ModuleResult, refs []InvoiceReference, dates []ExtractedDate) {
	var invoiceDate *time.Time
	for i := range dates {
		if dates[i].Type == DateTypeInvoice {
			invoiceDate = &dates[i].Value
			break
		}
	}
	if invoiceDate == nil {
		return
	}

	for _, ref := range refs {
		if ref.EmbeddedDate == nil {
			continue
		}
		ed := *ref.EmbeddedDate
		var sev types.Severity
		var what string
		switch {
		case ed.Year() != invoiceDate.Year():
			sev, what = types.SeverityHigh, "year"
		case ref.Granularity != "year" && ed.Month() != invoiceDate.Month():
			sev, what = types.SeverityMedium, "month"
		case ref.Granularity == "day" && ed.Day() != invoiceDate.Day():
			sev, what = types.SeverityLow, "day"
		default:
			continue
		}
		result.AddFlag(types.NewFlag(sev, "CONTENT_REFERENCE_DATE_MISMATCH",
			fmt.Sprintf("Invoice reference %s embeds a date that disagrees with the invoice date (%s)", ref.Raw, what)).
			WithDetails(map[string]interface{}{
				"reference":     ref.Raw,
				"embedded_date": ed.Format("2006-01-02"),
				"invoice_date":  invoiceDate.Format("2006-01-02"),
				"mismatch":      what,
			}))
	}
}

// checkReferenceConsistency flags documents carrying more than one
// distinct invoice reference. Identity is lexical equality after
// case-folding only; no numeric normalization (FAC-001 and FAC-1 are
// distinct).
func checkReferenceConsistency(result *types.ModuleResult, refs []InvoiceReference) {
	distinct := map[string]string{}
	for _, ref := range refs {
		distinct[strings.ToUpper(ref.Raw)] = ref.Raw
	}
	if len(distinct) <= 1 {
		return
	}
	var list []string
	for _, raw := range distinct {
		list = append(list, raw)
	}
	sort.Strings(list)
	result.AddFlag(types.NewFlag(types.SeverityCritical, "CONTENT_INCONSISTENT_REFERENCES",
		fmt.Sprintf("Document carries %d distinct invoice references", len(distinct))).
		WithDetails(map[string]interface{}{"references": list, "count": len(distinct)}))
}
