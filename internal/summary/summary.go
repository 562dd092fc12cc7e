// Package summary builds the human-readable verdict attached to an
// analysis result: a one-line verdict plus a themed bullet list, with
// positive signals surfaced alongside negative ones.
package summary

import (
	"fmt"
	"sort"

	"github.com/docforensic/docforensic/internal/scoring"
	"github.com/docforensic/docforensic/pkg/types"
)

// positiveCodes are findings that reassure rather than accuse; they are
// listed with a distinct prefix instead of being counted as problems.
var positiveCodes = map[string]bool{
	"STRUCT_SIGNATURE_TRUSTED": true,
	"TWODOC_PRESENT":           true,
}

// Generate builds the verdict and themed bullets for a scored result.
func Generate(result *types.AnalysisResult) *types.AnalysisSummary {
	s := &types.AnalysisSummary{Verdict: verdictFor(result.RiskLevel)}

	type themed struct {
		negatives []types.ModuleFlag
		positives []types.ModuleFlag
	}
	byTheme := map[scoring.Theme]*themed{}
	var themeOrder []scoring.Theme
	for _, mf := range types.CollectAllFlags(result.Modules) {
		theme := scoring.ThemeFor(mf.Flag.Code)
		group, ok := byTheme[theme]
		if !ok {
			group = &themed{}
			byTheme[theme] = group
			themeOrder = append(themeOrder, theme)
		}
		if positiveCodes[mf.Flag.Code] {
			group.positives = append(group.positives, mf)
		} else {
			group.negatives = append(group.negatives, mf)
		}
	}
	sort.SliceStable(themeOrder, func(i, j int) bool { return themeOrder[i] < themeOrder[j] })

	for _, theme := range themeOrder {
		group := byTheme[theme]
		for _, mf := range group.negatives {
			s.Bullets = append(s.Bullets, fmt.Sprintf("[%s] %s", theme, describeFlag(mf.Flag)))
		}
		for _, mf := range group.positives {
			s.Bullets = append(s.Bullets, fmt.Sprintf("[%s] + %s", theme, mf.Flag.Message))
		}
	}
	return s
}

func verdictFor(risk types.RiskLevel) string {
	switch risk {
	case types.RiskLow:
		return "This document appears legitimate."
	case types.RiskMedium:
		return "This document shows irregularities that warrant review."
	case types.RiskHigh:
		return "This document shows strong signs of manipulation."
	default:
		return "This document is almost certainly fraudulent."
	}
}

// describeFlag renders one flag for the bullet list, folding in the
// modification-delta wording for META_DOCUMENT_MODIFIED.
func describeFlag(f types.Flag) string {
	if f.Code == "META_DOCUMENT_MODIFIED" {
		if delta, ok := f.Details["delta_seconds"].(float64); ok {
			return fmt.Sprintf("Document was modified %s after creation", humanizeDelta(delta))
		}
	}
	return f.Message
}

// humanizeDelta renders a positive duration in the largest sensible
// unit. Day counts round half-up from hours, so 36h reads as "2 days"
// and 25h as "1 day".
func humanizeDelta(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 3600:
		return plural(int(seconds/60+0.5), "minute")
	case seconds < 24*3600:
		return plural(int(seconds/3600+0.5), "hour")
	default:
		days := int(seconds/(24*3600) + 0.5)
		if days < 1 {
			days = 1
		}
		return plural(days, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ShortVerdict renders a compact one-line form used by quick analyses.
func ShortVerdict(result *types.AnalysisResult) string {
	counts := types.CountFlagsBySeverity(result.Modules)
	total := 0
	for _, n := range counts {
		total += n
	}
	return fmt.Sprintf("%s (score %d, %d flag(s))", result.RiskLevel, result.TrustScore, total)
}
