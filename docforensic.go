// Package docforensic analyzes untrusted documents (PDF) and produces
// structured forensic reports: a 0-100 trust score, a risk
// classification, and a ranked list of evidence flags.
//
// The full pipeline lives in internal/pipeline; this package exposes
// the convenience entry point for callers that only want a verdict.
package docforensic

import (
	"context"

	"github.com/docforensic/docforensic/internal/pipeline"
	"github.com/docforensic/docforensic/internal/summary"
	"github.com/docforensic/docforensic/pkg/types"
)

// QuickResult is the compact verdict QuickAnalyze returns.
type QuickResult struct {
	TrustScore     int             `json:"trust_score"`
	RiskLevel      types.RiskLevel `json:"risk_level"`
	FlagCount      int             `json:"flag_count"`
	AnalysisTimeMS int64           `json:"analysis_time_ms"`
	Verdict        string          `json:"verdict"`
}

// QuickAnalyze runs the full offline pipeline on path with default
// options (no network, no rasterization primitives) and returns just
// the verdict.
func QuickAnalyze(path string) (QuickResult, error) {
	return QuickAnalyzeContext(context.Background(), path)
}

// QuickAnalyzeContext is QuickAnalyze with caller-controlled
// cancellation.
func QuickAnalyzeContext(ctx context.Context, path string) (QuickResult, error) {
	result, err := pipeline.Analyze(ctx, path, pipeline.Options{NoExternal: true, NoQR: true})
	if err != nil {
		return QuickResult{}, err
	}
	return QuickResult{
		TrustScore:     result.TrustScore,
		RiskLevel:      result.RiskLevel,
		FlagCount:      len(types.CollectAllFlags(result.Modules)),
		AnalysisTimeMS: result.AnalysisTimeMS,
		Verdict:        summary.ShortVerdict(result),
	}, nil
}
