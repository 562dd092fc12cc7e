// Package output renders analysis results to the terminal and to JSON.
//
// Terminal rendering uses automatic color encoding by flag severity so
// an investigator can triage a report at a glance. NO_COLOR environment
// variable support ensures compatibility with screen readers, CI/CD
// pipelines, and accessibility tools per https://no-color.org standards;
// color is also disabled automatically when output is piped.
package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/docforensic/docforensic/pkg/types"
)

// severityColor maps flag severities to their display color.
func severityColor(sev types.Severity) *color.Color {
	switch sev {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case types.SeverityHigh:
		return color.New(color.FgRed)
	case types.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// riskColor maps risk levels to their display color.
func riskColor(risk types.RiskLevel) *color.Color {
	switch risk {
	case types.RiskLow:
		return color.New(color.FgGreen, color.Bold)
	case types.RiskMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// RenderReport prints the full analysis report: verdict header,
// per-module scores, and every flag ordered by severity. When verbose
// is false, flag details are omitted.
func RenderReport(w io.Writer, result *types.AnalysisResult, verbose bool) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "docforensic report — %s\n", shortHash(result.ContentHash))
	fmt.Fprintln(w, "────────────────────────────────────────")
	fmt.Fprintf(w, "Trust score: %d/100   Risk: ", result.TrustScore)
	riskColor(result.RiskLevel).Fprintf(w, "%s\n", result.RiskLevel)
	if result.Summary != nil {
		fmt.Fprintf(w, "%s\n", result.Summary.Verdict)
	}
	fmt.Fprintf(w, "Analyzed in %d ms\n\n", result.AnalysisTimeMS)

	bold.Fprintln(w, "Modules")
	for _, m := range result.Modules {
		fmt.Fprintf(w, "  %-10s score %3d  confidence %.1f  flags %d\n",
			m.Module, m.Score, m.Confidence, len(m.Flags))
	}

	flags := types.CollectAllFlags(result.Modules)
	if len(flags) == 0 {
		fmt.Fprintln(w)
		color.New(color.FgGreen).Fprintln(w, "No findings.")
		return
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Findings")
	for _, mf := range flags {
		sev := mf.Flag.Severity
		severityColor(sev).Fprintf(w, "  [%s]", sev)
		fmt.Fprintf(w, " %s (%s): %s\n", mf.Flag.Code, mf.Module, mf.Flag.Message)
		if verbose && len(mf.Flag.Details) > 0 {
			for key, val := range mf.Flag.Details {
				fmt.Fprintf(w, "      %s: %v\n", key, val)
			}
		}
	}

	if result.Summary != nil && len(result.Summary.Bullets) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Summary")
		for _, bullet := range result.Summary.Bullets {
			fmt.Fprintf(w, "  • %s\n", bullet)
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
