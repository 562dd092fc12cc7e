package metadata

import (
	"testing"
	"time"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

func fixedClock(t time.Time) ports.Clock {
	return ports.FixedClock{At: t}
}

func TestAnalyzeCleanMetadata(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{
			Producer:            "Adobe Acrobat 23.0",
			Creator:             "Microsoft Word",
			CreationInstant:     &created,
			ModificationInstant: &created,
		},
	}
	result := Analyze(bundle, fixedClock(created.Add(30*24*time.Hour)))
	if len(result.Flags) != 0 {
		t.Errorf("expected no flags, got %v", result.Flags)
	}
	if result.Score != 100 {
		t.Errorf("Score = %d, want 100", result.Score)
	}
}

func TestAnalyzeAIProducer(t *testing.T) {
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{Producer: "ChatGPT PDF Export"},
	}
	result := Analyze(bundle, fixedClock(time.Now()))
	if len(result.Flags) != 1 || result.Flags[0].Code != "META_AI_GENERATED" {
		t.Fatalf("expected single META_AI_GENERATED flag, got %v", result.Flags)
	}
	if result.Flags[0].Severity != types.SeverityCritical {
		t.Errorf("severity = %v, want critical", result.Flags[0].Severity)
	}
}

func TestAnalyzeOnlyOneProducerClassFlag(t *testing.T) {
	// Matches both an AI vocabulary term and a converter term; AI wins.
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{Producer: "ChatGPT via iLovePDF"},
	}
	result := Analyze(bundle, fixedClock(time.Now()))
	count := 0
	for _, f := range result.Flags {
		if f.Code == "META_AI_GENERATED" || f.Code == "META_ONLINE_CONVERTER" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one producer-class flag, got %d", count)
	}
}

func TestAnalyzeNoMetadata(t *testing.T) {
	bundle := &types.DocumentBundle{}
	result := Analyze(bundle, fixedClock(time.Now()))
	if len(result.Flags) != 1 || result.Flags[0].Code != "META_NO_METADATA" {
		t.Fatalf("expected META_NO_METADATA, got %v", result.Flags)
	}
}

func TestAnalyzeFutureCreationDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{
			Title:           "Invoice",
			CreationInstant: &future,
		},
	}
	result := Analyze(bundle, fixedClock(now))
	found := false
	for _, f := range result.Flags {
		if f.Code == "META_FUTURE_CREATION_DATE" {
			found = true
			if f.Severity != types.SeverityCritical {
				t.Errorf("severity = %v, want critical", f.Severity)
			}
		}
	}
	if !found {
		t.Error("expected META_FUTURE_CREATION_DATE flag")
	}
}

func TestAnalyzeModifiedAfterCreation(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified := created.Add(10 * time.Second)
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{
			Title:               "Invoice",
			CreationInstant:     &created,
			ModificationInstant: &modified,
		},
	}
	result := Analyze(bundle, fixedClock(created.Add(365*24*time.Hour)))
	found := false
	for _, f := range result.Flags {
		if f.Code == "META_DOCUMENT_MODIFIED" {
			found = true
		}
	}
	if !found {
		t.Error("expected META_DOCUMENT_MODIFIED flag")
	}
}

func TestAnalyzeImpossibleDates(t *testing.T) {
	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	modified := created.Add(-24 * time.Hour)
	bundle := &types.DocumentBundle{
		Metadata: types.DocumentMetadata{
			Title:               "Invoice",
			CreationInstant:     &created,
			ModificationInstant: &modified,
		},
	}
	result := Analyze(bundle, fixedClock(created))
	found := false
	for _, f := range result.Flags {
		if f.Code == "META_IMPOSSIBLE_DATES" {
			found = true
		}
	}
	if !found {
		t.Error("expected META_IMPOSSIBLE_DATES flag")
	}
}
