package scoring

import (
	"math"

	"github.com/docforensic/docforensic/pkg/types"
)

// Score combines a set of ModuleResults into the final AnalysisResult,
// applying the weighted confidence-average formula and the
// critical-flag override business rule (spec §4.2). contentHash and
// elapsedMS are echoed from the caller; Score never performs I/O.
func Score(cfg *Config, contentHash string, modules []*types.ModuleResult, elapsedMS int64) *types.AnalysisResult {
	s := aggregate(cfg, modules)
	s, risk := applyCriticalOverride(s, criticalCount(modules), modules)

	return &types.AnalysisResult{
		ContentHash:    contentHash,
		TrustScore:     s,
		RiskLevel:      risk,
		Modules:        modules,
		AnalysisTimeMS: elapsedMS,
	}
}

// aggregate computes S = round( Σ score(m)·W(m)·c(m) / Σ W(m)·c(m) ),
// clamped to [0,100]. If the weighted-confidence denominator is zero
// (every module unavailable), the document is innocent until analyzable
// and scores 100.
func aggregate(cfg *Config, modules []*types.ModuleResult) int {
	var num, den float64
	for _, m := range modules {
		w := cfg.Weights.For(m.Module)
		wc := w * m.Confidence
		num += float64(m.Score) * wc
		den += wc
	}
	if den == 0 {
		return 100
	}
	return clamp(int(math.Round(num/den)), 0, 100)
}

func criticalCount(modules []*types.ModuleResult) int {
	k := 0
	for _, m := range modules {
		k += m.CriticalCount()
	}
	return k
}

// applyCriticalOverride enforces the business rule that a critical flag
// can never be diluted into invisibility by other modules (spec §4.2):
//
//   - K >= 1: risk_level is raised to at least HIGH; S is capped at 40,
//     then reduced 5x per high-severity flag and 2x per medium-severity
//     flag (floor 5).
//   - K >= 2: risk_level is forced to CRITICAL; S is capped at 19.
//
// The base risk level (from thresholds, before any override) can only
// be raised by this function, never lowered.
func applyCriticalOverride(s, k int, modules []*types.ModuleResult) (int, types.RiskLevel) {
	risk := types.RiskLevelFor(s)
	if k == 0 {
		return s, risk
	}

	counts := types.CountFlagsBySeverity(modules)
	if s > 40 {
		s = 40
	}
	s -= 5 * counts[types.SeverityHigh]
	s -= 2 * counts[types.SeverityMedium]
	if s < 5 {
		s = 5
	}

	if !risk.AtLeast(types.RiskHigh) {
		risk = types.RiskHigh
	}

	if k >= 2 {
		if s > 19 {
			s = 19
		}
		risk = types.RiskCritical
	}

	return s, risk
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
