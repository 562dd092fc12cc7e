package content

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/docforensic/docforensic/pkg/types"
)

// ValidateSIREN reports whether a 9-digit SIREN passes its Luhn
// checksum. SIREN doubles the digits at 0-indexed odd positions.
func ValidateSIREN(siren string) bool {
	return luhnValid(siren, 9, 1)
}

// ValidateSIRET reports whether a 14-digit SIRET passes its Luhn
// checksum. SIRET doubles the digits at 0-indexed even positions — the
// opposite parity of SIREN, because the establishment suffix shifts the
// alignment.
func ValidateSIRET(siret string) bool {
	return luhnValid(siret, 14, 0)
}

// luhnValid implements the shared Luhn algebra: digits at positions with
// index parity == doubleParity are doubled (with digit-sum folding), and
// the grand total must be ≡ 0 (mod 10). Any non-digit or wrong length
// fails.
func luhnValid(s string, wantLen, doubleParity int) bool {
	if len(s) != wantLen {
		return false
	}
	sum := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == doubleParity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// ValidateFrenchVAT reports whether a French VAT identifier
// (FR + 2 check digits + 9-digit SIREN) is internally consistent:
// check = (12 + 3·(SIREN mod 97)) mod 97, and the embedded SIREN must
// itself pass its checksum.
func ValidateFrenchVAT(vat string) bool {
	vat = strings.ToUpper(strings.ReplaceAll(vat, " ", ""))
	if len(vat) != 13 || !strings.HasPrefix(vat, "FR") {
		return false
	}
	check, err := strconv.Atoi(vat[2:4])
	if err != nil {
		return false
	}
	siren := vat[4:13]
	if !ValidateSIREN(siren) {
		return false
	}
	n, err := strconv.Atoi(siren)
	if err != nil {
		return false
	}
	return check == (12+3*(n%97))%97
}

var (
	siretAnchorRe = regexp.MustCompile(`(?i)siret\s*:?\s*((?:[0-9][ .]?){14})`)
	sirenAnchorRe = regexp.MustCompile(`(?i)(?:siren|rcs(?:\s+[a-zà-ÿ]+)?)\s*:?\s*((?:[0-9][ .]?){9})`)
	vatAnchorRe   = regexp.MustCompile(`(?i)(?:tva|vat|n°\s*tva|tva\s*intra(?:communautaire)?)[^A-Z0-9]{0,20}(FR\s?[0-9]{2}\s?(?:[0-9][ .]?){9})`)
	// bareSirenRe catches the conventional XXX XXX XXX grouping with no
	// anchor keyword; these are only trusted when the checksum holds.
	bareSirenRe = regexp.MustCompile(`\b([0-9]{3}) ([0-9]{3}) ([0-9]{3})\b`)
)

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractedIdentifiers is every French company identifier found in the
// document text, grouped by kind, deduplicated, insertion-ordered.
type ExtractedIdentifiers struct {
	Sirets     []string
	Sirens     []string
	VATs       []string
	BareSirens []string // XXX XXX XXX patterns with no anchor keyword
}

// ExtractIdentifiers pulls SIRET, SIREN, VAT, and bare SIREN-shaped
// identifiers out of text using context-anchored patterns. No checksum
// filtering happens here; callers decide how to treat invalid ones.
func ExtractIdentifiers(text string) ExtractedIdentifiers {
	var ids ExtractedIdentifiers
	seen := map[string]bool{}
	add := func(dst *[]string, v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		*dst = append(*dst, v)
	}

	for _, m := range siretAnchorRe.FindAllStringSubmatch(text, -1) {
		add(&ids.Sirets, digitsOnly(m[1]))
	}
	for _, m := range sirenAnchorRe.FindAllStringSubmatch(text, -1) {
		add(&ids.Sirens, digitsOnly(m[1]))
	}
	for _, m := range vatAnchorRe.FindAllStringSubmatch(text, -1) {
		vat := "FR" + digitsOnly(m[1])
		add(&ids.VATs, vat)
	}
	for _, m := range bareSirenRe.FindAllStringSubmatch(text, -1) {
		siren := m[1] + m[2] + m[3]
		if seen[siren] {
			continue
		}
		if ValidateSIREN(siren) {
			add(&ids.BareSirens, siren)
		}
	}
	return ids
}

// frenchInvoiceMarkers gate the missing-company-id check: only a
// document that looks like a French invoice is expected to carry one.
var frenchInvoiceMarkers = []string{"facture", "siret", "tva", "€", "eur"}

// checkLegalMentions validates every extracted company identifier
// against its checksum, cross-checks VAT-derived SIRENs against
// document-stated ones, and flags French invoices carrying no company
// identifier at all (spec §4.4).
func checkLegalMentions(result *types.ModuleResult, text string) {
	ids := ExtractIdentifiers(text)

	for _, siret := range ids.Sirets {
		if !ValidateSIRET(siret) {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_INVALID_SIRET",
				"A stated SIRET fails its checksum").
				WithDetails(map[string]interface{}{"siret": siret}))
		}
	}
	for _, siren := range ids.Sirens {
		if !ValidateSIREN(siren) {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_INVALID_SIREN",
				"A stated SIREN fails its checksum").
				WithDetails(map[string]interface{}{"siren": siren}))
		}
	}
	for _, vat := range ids.VATs {
		if !ValidateFrenchVAT(vat) {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_INVALID_VAT",
				"A stated French VAT number fails its checksum").
				WithDetails(map[string]interface{}{"vat": vat}))
		}
	}

	checkSirenVATAgreement(result, ids)

	lower := strings.ToLower(text)
	if len(ids.Sirets) == 0 && len(ids.Sirens) == 0 && !strings.Contains(lower, "rcs") {
		for _, marker := range frenchInvoiceMarkers {
			if strings.Contains(lower, marker) {
				result.AddFlag(types.NewFlag(types.SeverityMedium, "CONTENT_MISSING_COMPANY_ID",
					"Document looks like a French invoice but states no SIRET, SIREN, or RCS"))
				break
			}
		}
	}
}

// checkSirenVATAgreement compares the SIRENs embedded in checksum-valid
// VAT numbers against the checksum-valid SIRENs the document states
// directly (including SIRET prefixes). Disjoint sets mean the VAT number
// and the company identity were not issued together.
func checkSirenVATAgreement(result *types.ModuleResult, ids ExtractedIdentifiers) {
	vatSirens := map[string]bool{}
	for _, vat := range ids.VATs {
		if ValidateFrenchVAT(vat) {
			vatSirens[vat[4:13]] = true
		}
	}
	stated := map[string]bool{}
	for _, siren := range ids.Sirens {
		if ValidateSIREN(siren) {
			stated[siren] = true
		}
	}
	for _, siret := range ids.Sirets {
		if ValidateSIRET(siret) {
			stated[siret[:9]] = true
		}
	}
	if len(vatSirens) == 0 || len(stated) == 0 {
		return
	}
	for siren := range vatSirens {
		if stated[siren] {
			return
		}
	}
	result.AddFlag(types.NewFlag(types.SeverityCritical, "CONTENT_SIREN_VAT_MISMATCH",
		fmt.Sprintf("No VAT-derived SIREN matches any of the %d company identifiers stated in the document", len(stated))).
		WithDetails(map[string]interface{}{
			"vat_sirens":    keys(vatSirens),
			"stated_sirens": keys(stated),
		}))
}

func keys(m map[string]bool) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
