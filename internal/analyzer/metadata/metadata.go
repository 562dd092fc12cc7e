// Package metadata implements the metadata analyzer (C4): producer/
// creator vocabulary classification and metadata-only date checks.
package metadata

import (
	"strings"
	"time"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// aiTools, onlineConverters, and editors are the three tiered producer/
// creator vocabularies (spec §4.3). Matching is case-insensitive
// substring containment; first match wins in priority order AI > high >
// medium, so at most one producer-class flag is ever emitted.
var (
	aiTools = []string{
		"chatgpt", "gpt-4", "claude", "gemini", "copilot",
		"ai-generated", "openai", "anthropic",
	}
	onlineConverters = []string{
		"ilovepdf", "smallpdf", "sejda", "pdf24", "online2pdf", "soda pdf online",
	}
	editors = []string{
		"foxit", "nitro", "pdfelement", "master pdf editor", "pdf-xchange editor",
	}
)

func matchAny(haystack string, vocabulary []string) (string, bool) {
	lower := strings.ToLower(haystack)
	for _, v := range vocabulary {
		if strings.Contains(lower, v) {
			return v, true
		}
	}
	return "", false
}

// Analyze classifies the document's producer/creator strings and checks
// the metadata-only date relations. It never fails: malformed or absent
// data degrades to fewer flags, never an error (spec §7 ModuleError
// policy lives in the orchestrator, not here — this function is a pure
// function of (bundle, clock)).
func Analyze(bundle *types.DocumentBundle, clock ports.Clock) *types.ModuleResult {
	result := types.NewModuleResult("metadata")
	m := bundle.Metadata

	combined := m.Producer + " " + m.Creator
	if match, ok := matchAny(combined, aiTools); ok {
		result.AddFlag(types.NewFlag(types.SeverityCritical, "META_AI_GENERATED",
			"Document producer/creator matches a known AI tool").
			WithDetails(map[string]interface{}{"matched": match}))
	} else if match, ok := matchAny(combined, onlineConverters); ok {
		result.AddFlag(types.NewFlag(types.SeverityHigh, "META_ONLINE_CONVERTER",
			"Document was processed by an online PDF converter").
			WithDetails(map[string]interface{}{"matched": match}))
	} else if match, ok := matchAny(combined, editors); ok {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "META_SUSPICIOUS_EDITOR",
			"Document was processed by a third-party PDF editor").
			WithDetails(map[string]interface{}{"matched": match}))
	}

	if m.IsEmpty() {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "META_NO_METADATA",
			"Document carries no recognized metadata"))
	} else if m.Producer == "" && m.Creator == "" {
		result.AddFlag(types.NewFlag(types.SeverityLow, "META_NO_PRODUCER",
			"Document metadata has no producer or creator"))
	}

	checkDates(result, m, clock)

	result.Confidence = confidenceFor(m)
	return result
}

func checkDates(result *types.ModuleResult, m types.DocumentMetadata, clock ports.Clock) {
	now := clock.Now()

	if m.CreationInstant != nil && m.CreationInstant.After(now.Add(24*time.Hour)) {
		result.AddFlag(types.NewFlag(types.SeverityCritical, "META_FUTURE_CREATION_DATE",
			"Document creation date is in the future").
			WithDetails(map[string]interface{}{"creation_date": m.CreationInstant.Format(time.RFC3339)}))
	}

	if m.CreationInstant != nil && m.ModificationInstant != nil {
		delta := m.ModificationInstant.Sub(*m.CreationInstant)
		switch {
		case delta < 0:
			result.AddFlag(types.NewFlag(types.SeverityHigh, "META_IMPOSSIBLE_DATES",
				"Modification date precedes creation date").
				WithDetails(map[string]interface{}{"delta_seconds": delta.Seconds()}))
		case delta > 2*time.Second:
			result.AddFlag(types.NewFlag(types.SeverityCritical, "META_DOCUMENT_MODIFIED",
				"Document was modified after creation").
				WithDetails(map[string]interface{}{"delta_seconds": delta.Seconds()}))
		}
	}
}

// confidenceFor scales confidence with how much metadata was actually
// available to reason about.
func confidenceFor(m types.DocumentMetadata) float64 {
	if m.IsEmpty() {
		return 0.3
	}
	if m.CreationInstant != nil && m.ModificationInstant != nil {
		return 1.0
	}
	return 0.7
}
