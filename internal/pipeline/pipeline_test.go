package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/docforensic/docforensic/internal/extract"
	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// writeMinimalPDF builds a syntactically valid single-page PDF with a
// correct cross-reference table and writes it to a temp file. Offsets
// are computed while building so the xref is exact.
func writeMinimalPDF(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	offsets := make([]int, 0, 4)
	add := func(s string) {
		b.WriteString(s)
	}
	obj := func(s string) {
		offsets = append(offsets, b.Len())
		add(s)
	}

	add("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n")

	xrefAt := b.Len()
	add("xref\n0 4\n")
	add("0000000000 65535 f \n")
	for _, off := range offsets {
		add(fmt.Sprintf("%010d 00000 n \n", off))
	}
	add("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n")
	add(fmt.Sprintf("%d\n%%%%EOF\n", xrefAt))

	path := filepath.Join(t.TempDir(), "minimal.pdf")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixedOpts() Options {
	return Options{
		NoExternal: true,
		NoQR:       true,
		Clock:      ports.FixedClock{At: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestAnalyzeMissingFileIsInputError(t *testing.T) {
	_, err := Analyze(context.Background(), "/no/such/file.pdf", fixedOpts())
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestAnalyzeGarbageFileStillHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	if err := os.WriteFile(path, []byte("this is not a PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Analyze(context.Background(), path, fixedOpts())
	if err == nil {
		t.Fatal("expected an invalid-container error")
	}
	var invalid *extract.InvalidContainerError
	if !errors.As(err, &invalid) || len(invalid.Hash) != 64 {
		t.Errorf("error should be an InvalidContainerError carrying the 64-char content hash, got %v", err)
	}
}

func TestAnalyzeMinimalDocument(t *testing.T) {
	path := writeMinimalPDF(t)
	result, err := Analyze(context.Background(), path, fixedOpts())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(result.ContentHash) != 64 {
		t.Errorf("content hash = %q, want 64 hex chars", result.ContentHash)
	}
	wantOrder := []string{"metadata", "content", "visual", "twodoc", "fonts", "images", "structure", "forensics", "external"}
	var gotOrder []string
	for _, m := range result.Modules {
		gotOrder = append(gotOrder, m.Module)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("module order = %v, want %v", gotOrder, wantOrder)
	}
	for _, m := range result.Modules {
		if m.Score < 0 || m.Score > 100 {
			t.Errorf("%s score %d out of range", m.Module, m.Score)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			t.Errorf("%s confidence %v out of range", m.Module, m.Confidence)
		}
	}
	if result.Summary == nil {
		t.Error("summary should be attached")
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	path := writeMinimalPDF(t)
	first, err := Analyze(context.Background(), path, fixedOpts())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Analyze(context.Background(), path, fixedOpts())
	if err != nil {
		t.Fatal(err)
	}
	if first.ContentHash != second.ContentHash ||
		first.TrustScore != second.TrustScore ||
		first.RiskLevel != second.RiskLevel {
		t.Errorf("analyze is not deterministic under a fixed clock:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeCancellationIsAtomic(t *testing.T) {
	path := writeMinimalPDF(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := Analyze(ctx, path, fixedOpts())
	if err == nil {
		t.Fatal("cancelled analysis must not return a result")
	}
	if result != nil {
		t.Errorf("cancelled analysis must return nothing, got %+v", result)
	}
}

func TestRunModuleRecoversPanics(t *testing.T) {
	result := runModule("boom", func() *types.ModuleResult {
		panic("module exploded")
	})
	if result.Module != "boom" || result.Confidence != 0.0 || result.Score != 100 || len(result.Flags) != 0 {
		t.Errorf("ModuleError policy violated: %+v", result)
	}
}
