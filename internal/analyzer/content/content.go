// Package content implements the content analyzer (C5): text-level date
// extraction and logic checks, amount extraction, invoice reference
// cross-checks, and French company identifier checksum validation.
package content

import (
	"fmt"
	"strings"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// Analyze runs every text-content check against the concatenated page text
// of bundle and returns a single ModuleResult. It never errors: an empty or
// unparseable document simply degrades confidence (spec §4.4).
func Analyze(bundle *types.DocumentBundle, clock ports.Clock) *types.ModuleResult {
	result := types.NewModuleResult("content")
	text := strings.Join(bundle.TextByPage, "\n")

	dates := extractDatesFromText(text)
	checkDateLogic(result, dates, clock.Now())

	amounts := extractAmounts(text)
	checkDuplicateAmounts(result, amounts)

	refs := extractAllInvoiceReferences(text)
	checkReferenceDates(result, refs, dates)
	checkReferenceConsistency(result, refs)

	checkLegalMentions(result, text)

	result.Confidence = confidenceForDates(dates, text)
	return result
}

// confidenceForDates implements spec §4.4's confidence tiering: 0.9 with
// ≥2 typed dates, 0.7 with ≥2 dates but fewer than 2 typed, 0.5 with
// exactly one date, 0.3 with none found in non-empty text, 0.1 on empty
// text (nothing to reason about at all).
func confidenceForDates(dates []ExtractedDate, text string) float64 {
	typed := 0
	for _, d := range dates {
		if d.Type != DateTypeUnknown {
			typed++
		}
	}
	switch {
	case typed >= 2:
		return 0.9
	case len(dates) >= 2:
		return 0.7
	case len(dates) == 1:
		return 0.5
	case strings.TrimSpace(text) == "":
		return 0.1
	default:
		return 0.3
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
