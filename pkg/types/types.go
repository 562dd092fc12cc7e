// Package types defines the data model shared across every analysis
// module: flags, module results, the final analysis result, and the
// document bundle produced once by the primitive extractors.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Severity is a totally ordered finding severity, least to most concerning.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String renders the severity in its wire/display form.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the severity as its lowercase string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase string form back; the round-trip
// partner of MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses the wire string form of a severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("types: unknown severity %q", s)
	}
}

// Penalty returns the score penalty a flag of this severity carries.
// Fixed table: low=5, medium=15, high=30, critical=50.
func (s Severity) Penalty() int {
	switch s {
	case SeverityLow:
		return 5
	case SeverityMedium:
		return 15
	case SeverityHigh:
		return 30
	case SeverityCritical:
		return 50
	default:
		return 0
	}
}

// Flag is a single suspicious (or positive) finding emitted by a module.
//
// Code is the stable public identity of the finding (conventionally
// MODULE_CONDITION) and must never be renamed once shipped; Message may
// change freely. Details carries finding-specific structured context with
// no fixed schema across codes.
type Flag struct {
	Severity Severity               `json:"severity"`
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// NewFlag constructs a Flag with no details.
func NewFlag(sev Severity, code, message string) Flag {
	return Flag{Severity: sev, Code: code, Message: message}
}

// WithDetails returns a copy of f with details attached.
func (f Flag) WithDetails(details map[string]interface{}) Flag {
	f.Details = details
	return f
}

// ModuleResult is the uniform result shape every analysis module returns.
//
// Score starts at 100 (innocent until proven guilty) and is derived by
// subtracting each flag's severity penalty with a floor at 0. Confidence
// expresses how much data the module had to work with, not how certain it
// is of any individual flag; it controls how much weight the module
// carries in the final aggregate.
type ModuleResult struct {
	Module     string  `json:"module"`
	Flags      []Flag  `json:"flags"`
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

// NewModuleResult returns a ModuleResult seeded at score 100, confidence
// 1.0, with an empty flag list: the starting point every analyzer builds
// from.
func NewModuleResult(module string) *ModuleResult {
	return &ModuleResult{Module: module, Score: 100, Confidence: 1.0}
}

// AddFlag appends a flag and recomputes Score from the fixed penalty
// table, floored at 0. This is the only supported way to add a flag, so
// Score never drifts out of sync with Flags.
func (m *ModuleResult) AddFlag(f Flag) {
	m.Flags = append(m.Flags, f)
	score := 100
	for _, flag := range m.Flags {
		score -= flag.Severity.Penalty()
	}
	if score < 0 {
		score = 0
	}
	m.Score = score
}

// CriticalCount returns the number of critical-severity flags in the result.
func (m *ModuleResult) CriticalCount() int {
	n := 0
	for _, f := range m.Flags {
		if f.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// RiskLevel is the four-way categorical verdict derived from the trust score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// rank gives a total order over risk levels so overrides can only raise,
// never lower, a previously computed level.
func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.rank() >= other.rank()
}

// RiskLevelFor maps a trust score to its risk band: LOW [80-100],
// MEDIUM [50-79], HIGH [20-49], CRITICAL [0-19].
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 50:
		return RiskMedium
	case score >= 20:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// AnalysisResult is the final combined result of analyzing one document.
type AnalysisResult struct {
	ContentHash    string           `json:"content_hash"`
	TrustScore     int              `json:"trust_score"`
	RiskLevel      RiskLevel        `json:"risk_level"`
	Modules        []*ModuleResult  `json:"modules"`
	AnalysisTimeMS int64            `json:"analysis_time_ms"`
	Summary        *AnalysisSummary `json:"summary,omitempty"`
}

// AnalysisSummary is a short verdict plus a themed bullet list, additive to
// the wire contract (see internal/summary).
type AnalysisSummary struct {
	Verdict string   `json:"verdict"`
	Bullets []string `json:"bullets"`
}

// ModuleFlag pairs a Flag with the module that emitted it.
type ModuleFlag struct {
	Module string
	Flag   Flag
}

// CollectAllFlags gathers every flag across all modules, tagging each with
// its owning module name, and stable-sorts by severity (critical first),
// preserving module order and per-module insertion order within a
// severity bucket. Re-sorting an already-sorted sequence is idempotent.
func CollectAllFlags(modules []*ModuleResult) []ModuleFlag {
	var all []ModuleFlag
	for _, m := range modules {
		for _, f := range m.Flags {
			all = append(all, ModuleFlag{Module: m.Module, Flag: f})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Flag.Severity > all[j].Flag.Severity
	})
	return all
}

// CountFlagsBySeverity tallies flags across all modules by severity.
func CountFlagsBySeverity(modules []*ModuleResult) map[Severity]int {
	counts := map[Severity]int{}
	for _, m := range modules {
		for _, f := range m.Flags {
			counts[f.Severity]++
		}
	}
	return counts
}

// DocumentBundle is produced exactly once by the primitive extractors (C1)
// and shared by reference, read-only, across every analysis module. It is
// never mutated after construction and is owned exclusively by the
// orchestrator.
type DocumentBundle struct {
	FilePath    string
	ContentHash string // SHA-256 hex, 64 chars.
	PageCount   int

	Metadata    DocumentMetadata
	RawMetadata map[string]string // verbatim, superset of Metadata's recognized keys.

	TextByPage []string   // one entry per page; may be empty strings.
	TextSpans  []TextSpan // positioned text runs, for layout-aware checks.
	PageSizes  []PageSize // page box dimensions in points, one per page.

	Fonts       []FontRecord
	Images      []ImageDescriptor
	Annotations []Annotation

	Signature        *SignatureRecord // nil when undeclared.
	EmbeddedFiles    []string         // filenames of declared embedded-file streams.
	HasJavaScript    bool
	HasAcroForm      bool
	XMPToolkit       string
	FreedObjectCount int

	RawBytes []byte // full container bytes, for structure's %%EOF scan.
}

// DocumentMetadata is the structured, recognized-key view of a document's
// metadata dictionary. All fields are optional; absence is itself a signal.
type DocumentMetadata struct {
	CreationInstant     *time.Time
	ModificationInstant *time.Time
	Producer            string
	Creator             string
	Author              string
	Title               string
	Subject             string
	Keywords            string
}

// IsEmpty reports whether every recognized metadata field is empty/absent.
func (m DocumentMetadata) IsEmpty() bool {
	return m.CreationInstant == nil && m.ModificationInstant == nil &&
		m.Producer == "" && m.Creator == "" && m.Author == "" &&
		m.Title == "" && m.Subject == "" && m.Keywords == ""
}

// PageSize is a page's media box dimensions in PDF points.
type PageSize struct {
	W, H float64
}

// TextSpan is a run of text drawn with a single font at one position.
// Coordinates are PDF page points with the origin at the bottom-left;
// Y is the span's baseline, so spans sharing a Y on the same page sit on
// the same visual line.
type TextSpan struct {
	Page     int // 1-based.
	Text     string
	FontName string
	X, Y     float64
	W, H     float64
}

// FontRecord describes one font used somewhere in the document.
type FontRecord struct {
	Name       string
	IsSubset   bool // name begins with exactly six uppercase Latin letters followed by '+'.
	IsEmbedded bool
	PagesUsed  []int
	UsageCount int
}

// ImageDescriptor describes one embedded raster image and its placement.
type ImageDescriptor struct {
	XRef             int
	Page             int
	Width            int
	Height           int
	Colorspace       string
	BitsPerComponent int
	Filter           string
	ByteSize         int64
	DPIX             float64
	DPIY             float64
	// PlacementW/H are the image's placement size in page points, used to
	// estimate DPI when the container does not record it directly.
	PlacementW float64
	PlacementH float64
}

// Annotation describes one page annotation relevant to forensic analysis.
type Annotation struct {
	Page    int
	Subtype string // e.g. FileAttachment, Sound, Movie, Screen, Widget.
	Opacity float64
}

// SignatureRecord describes a declared cryptographic signature as found
// in the container. Contents is the raw PKCS#7 blob; ByteRangeEnd is the
// last byte offset the signature covers (0 when no ByteRange was
// declared).
type SignatureRecord struct {
	SignerDN     string
	SignedAt     *time.Time
	Contents     []byte
	ByteRangeEnd int64
	SubFilter    string
}

// ExitError carries a process exit code alongside an error message, used by
// the CLI to map analysis outcomes to the documented exit-code contract
// (0=LOW, 1=MEDIUM, 2=HIGH, 3=CRITICAL, 64=input error, 70=internal error).
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes for the analyze CLI contract (spec §6).
const (
	ExitLow          = 0
	ExitMedium       = 1
	ExitHigh         = 2
	ExitCritical     = 3
	ExitInputError   = 64
	ExitInternalError = 70
)

// ExitCodeForRisk maps a risk level to its CLI exit code.
func ExitCodeForRisk(r RiskLevel) int {
	switch r {
	case RiskLow:
		return ExitLow
	case RiskMedium:
		return ExitMedium
	case RiskHigh:
		return ExitHigh
	default:
		return ExitCritical
	}
}
