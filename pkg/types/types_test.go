package types

import "testing"

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityLow, "low"},
		{SeverityMedium, "medium"},
		{SeverityHigh, "high"},
		{SeverityCritical, "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestSeverityPenalty(t *testing.T) {
	tests := []struct {
		s    Severity
		want int
	}{
		{SeverityLow, 5},
		{SeverityMedium, 15},
		{SeverityHigh, 30},
		{SeverityCritical, 50},
	}
	for _, tt := range tests {
		if got := tt.s.Penalty(); got != tt.want {
			t.Errorf("Severity(%d).Penalty() = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestParseSeverityRoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		got, err := ParseSeverity(s.String())
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseSeverity(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if _, err := ParseSeverity("bogus"); err == nil {
		t.Error("ParseSeverity(\"bogus\") should error")
	}
}

func TestModuleResultAddFlagScore(t *testing.T) {
	m := NewModuleResult("metadata")
	if m.Score != 100 || m.Confidence != 1.0 {
		t.Fatalf("NewModuleResult starting state = score=%d conf=%f", m.Score, m.Confidence)
	}

	m.AddFlag(NewFlag(SeverityMedium, "META_NO_METADATA", "no metadata present"))
	if m.Score != 85 {
		t.Errorf("after one medium flag, Score = %d, want 85", m.Score)
	}

	m.AddFlag(NewFlag(SeverityCritical, "META_FUTURE_CREATION_DATE", "creation date in the future"))
	if m.Score != 35 {
		t.Errorf("after medium+critical, Score = %d, want 35", m.Score)
	}
	if m.CriticalCount() != 1 {
		t.Errorf("CriticalCount() = %d, want 1", m.CriticalCount())
	}
}

func TestModuleResultScoreFloor(t *testing.T) {
	m := NewModuleResult("content")
	for i := 0; i < 3; i++ {
		m.AddFlag(NewFlag(SeverityCritical, "CONTENT_X", "x"))
	}
	if m.Score != 0 {
		t.Errorf("Score after 3 critical flags = %d, want 0 (floored)", m.Score)
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{100, RiskLow}, {80, RiskLow},
		{79, RiskMedium}, {50, RiskMedium},
		{49, RiskHigh}, {20, RiskHigh},
		{19, RiskCritical}, {0, RiskCritical},
	}
	for _, tt := range tests {
		if got := RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestRiskLevelMonotone(t *testing.T) {
	prev := RiskLevelFor(0)
	for s := 1; s <= 100; s++ {
		cur := RiskLevelFor(s)
		if cur.rank() > prev.rank() {
			t.Fatalf("RiskLevelFor regressed at score=%d: %v -> %v", s, prev, cur)
		}
		prev = cur
	}
}

func TestCollectAllFlagsStableBySeverity(t *testing.T) {
	m1 := NewModuleResult("metadata")
	m1.AddFlag(NewFlag(SeverityLow, "META_A", "a"))
	m1.AddFlag(NewFlag(SeverityCritical, "META_B", "b"))
	m2 := NewModuleResult("content")
	m2.AddFlag(NewFlag(SeverityHigh, "CONTENT_C", "c"))
	m2.AddFlag(NewFlag(SeverityCritical, "CONTENT_D", "d"))

	all := CollectAllFlags([]*ModuleResult{m1, m2})
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
	// Both criticals come first, in module+insertion order, then high, then low.
	wantCodes := []string{"META_B", "CONTENT_D", "CONTENT_C", "META_A"}
	for i, code := range wantCodes {
		if all[i].Flag.Code != code {
			t.Errorf("all[%d].Flag.Code = %s, want %s", i, all[i].Flag.Code, code)
		}
	}

	// Idempotence: re-collecting from the same modules produces the same sequence.
	again := CollectAllFlags([]*ModuleResult{m1, m2})
	for i := range all {
		if all[i].Flag.Code != again[i].Flag.Code {
			t.Errorf("CollectAllFlags not idempotent at %d: %s vs %s", i, all[i].Flag.Code, again[i].Flag.Code)
		}
	}
}

func TestCountFlagsBySeverity(t *testing.T) {
	m := NewModuleResult("fonts")
	m.AddFlag(NewFlag(SeverityLow, "FONTS_A", "a"))
	m.AddFlag(NewFlag(SeverityLow, "FONTS_B", "b"))
	m.AddFlag(NewFlag(SeverityHigh, "FONTS_C", "c"))

	counts := CountFlagsBySeverity([]*ModuleResult{m})
	if counts[SeverityLow] != 2 {
		t.Errorf("counts[low] = %d, want 2", counts[SeverityLow])
	}
	if counts[SeverityHigh] != 1 {
		t.Errorf("counts[high] = %d, want 1", counts[SeverityHigh])
	}
}

func TestDocumentMetadataIsEmpty(t *testing.T) {
	var m DocumentMetadata
	if !m.IsEmpty() {
		t.Error("zero-value DocumentMetadata should be empty")
	}
	m.Producer = "Acrobat"
	if m.IsEmpty() {
		t.Error("DocumentMetadata with a producer should not be empty")
	}
}

func TestExitErrorError(t *testing.T) {
	tests := []struct {
		name string
		ee   *ExitError
		want string
	}{
		{"input error", &ExitError{Code: ExitInputError, Message: "file not found"}, "file not found"},
		{"internal error", &ExitError{Code: ExitInternalError, Message: "panic recovered"}, "panic recovered"},
		{"empty message", &ExitError{Code: ExitLow, Message: ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ee.Error(); got != tt.want {
				t.Errorf("ExitError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCodeForRisk(t *testing.T) {
	tests := []struct {
		r    RiskLevel
		want int
	}{
		{RiskLow, ExitLow},
		{RiskMedium, ExitMedium},
		{RiskHigh, ExitHigh},
		{RiskCritical, ExitCritical},
	}
	for _, tt := range tests {
		if got := ExitCodeForRisk(tt.r); got != tt.want {
			t.Errorf("ExitCodeForRisk(%v) = %d, want %d", tt.r, got, tt.want)
		}
	}
}
