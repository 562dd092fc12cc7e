package scoring

import (
	"testing"

	"github.com/docforensic/docforensic/pkg/types"
)

func cleanModule(name string) *types.ModuleResult {
	return types.NewModuleResult(name)
}

func TestScoreCleanDocument(t *testing.T) {
	cfg := DefaultConfig()
	modules := []*types.ModuleResult{
		cleanModule("metadata"), cleanModule("content"), cleanModule("visual"),
		cleanModule("fonts"), cleanModule("images"), cleanModule("structure"),
		cleanModule("forensics"), cleanModule("external"),
	}
	result := Score(cfg, "deadbeef", modules, 10)
	if result.TrustScore != 100 {
		t.Errorf("TrustScore = %d, want 100", result.TrustScore)
	}
	if result.RiskLevel != types.RiskLow {
		t.Errorf("RiskLevel = %v, want LOW", result.RiskLevel)
	}
}

func TestScoreZeroWeightConfidenceReturnsInnocent(t *testing.T) {
	cfg := DefaultConfig()
	m := cleanModule("metadata")
	m.Confidence = 0
	result := Score(cfg, "h", []*types.ModuleResult{m}, 0)
	if result.TrustScore != 100 {
		t.Errorf("TrustScore = %d, want 100 when all confidence is zero", result.TrustScore)
	}
}

func TestOneCriticalFlagCapsAt40AndRaisesRisk(t *testing.T) {
	cfg := DefaultConfig()
	m := cleanModule("metadata")
	m.Confidence = 1.0
	m.AddFlag(types.NewFlag(types.SeverityCritical, "META_AI_GENERATED", "likely AI-generated"))

	result := Score(cfg, "h", []*types.ModuleResult{m}, 0)
	if result.TrustScore > 40 {
		t.Errorf("TrustScore = %d, want <= 40", result.TrustScore)
	}
	if !result.RiskLevel.AtLeast(types.RiskHigh) {
		t.Errorf("RiskLevel = %v, want >= HIGH", result.RiskLevel)
	}
}

func TestTwoCriticalFlagsForcesCriticalAndCapsAt19(t *testing.T) {
	cfg := DefaultConfig()
	m1 := cleanModule("metadata")
	m1.AddFlag(types.NewFlag(types.SeverityCritical, "META_AI_GENERATED", "x"))
	m2 := cleanModule("content")
	m2.AddFlag(types.NewFlag(types.SeverityCritical, "CONTENT_INCONSISTENT_REFERENCES", "y"))

	result := Score(cfg, "h", []*types.ModuleResult{m1, m2}, 0)
	if result.TrustScore > 19 {
		t.Errorf("TrustScore = %d, want <= 19", result.TrustScore)
	}
	if result.RiskLevel != types.RiskCritical {
		t.Errorf("RiskLevel = %v, want CRITICAL", result.RiskLevel)
	}
}

func TestCriticalOverrideFloorIsFive(t *testing.T) {
	cfg := DefaultConfig()
	m := cleanModule("structure")
	m.AddFlag(types.NewFlag(types.SeverityCritical, "X_CRIT", "x"))
	for i := 0; i < 10; i++ {
		m.AddFlag(types.NewFlag(types.SeverityHigh, "X_HIGH", "x"))
	}
	result := Score(cfg, "h", []*types.ModuleResult{m}, 0)
	if result.TrustScore < 5 {
		t.Errorf("TrustScore = %d, should never go below the floor of 5", result.TrustScore)
	}
}

func TestScorePerModuleInvariant(t *testing.T) {
	m := cleanModule("fonts")
	m.AddFlag(types.NewFlag(types.SeverityLow, "FONTS_SYSTEM_FONTS", "x"))
	m.AddFlag(types.NewFlag(types.SeverityMedium, "FONTS_HIGH_DIVERSITY", "x"))
	want := 100 - types.SeverityLow.Penalty() - types.SeverityMedium.Penalty()
	if m.Score != want {
		t.Errorf("Score = %d, want %d", m.Score, want)
	}
}

func TestThemeForKnownAndUnknownCodes(t *testing.T) {
	if ThemeFor("CONTENT_ANACHRONISM_SERVICE") != ThemeDates {
		t.Error("CONTENT_ANACHRONISM_SERVICE should theme as dates")
	}
	if ThemeFor("SOME_BRAND_NEW_CODE") != ThemeOther {
		t.Error("unknown codes should default to ThemeOther, not panic or zero-value")
	}
}

func TestWeightsForUnknownModuleFallsBack(t *testing.T) {
	w := DefaultConfig().Weights
	if w.For("nonexistent-module") != w.Unknown {
		t.Error("unrecognized module name should use the Unknown weight")
	}
	if w.For("structure") != 1.3 {
		t.Errorf("structure weight = %v, want 1.3", w.For("structure"))
	}
}
