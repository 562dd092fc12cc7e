// Package pipeline implements the orchestrator (C13): load the document
// once, fan the bundle out to every analysis module in parallel, and
// hand the collected results to the scoring engine.
package pipeline

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docforensic/docforensic/internal/analyzer/content"
	"github.com/docforensic/docforensic/internal/analyzer/external"
	"github.com/docforensic/docforensic/internal/analyzer/fonts"
	"github.com/docforensic/docforensic/internal/analyzer/forensics"
	"github.com/docforensic/docforensic/internal/analyzer/images"
	"github.com/docforensic/docforensic/internal/analyzer/metadata"
	"github.com/docforensic/docforensic/internal/analyzer/structure"
	"github.com/docforensic/docforensic/internal/analyzer/twodoc"
	"github.com/docforensic/docforensic/internal/analyzer/visual"
	"github.com/docforensic/docforensic/internal/extract"
	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/internal/scoring"
	"github.com/docforensic/docforensic/internal/summary"
	"github.com/docforensic/docforensic/pkg/types"
)

// moduleOrder fixes the ordering of AnalysisResult.Modules regardless
// of which goroutine finishes first.
var moduleOrder = []string{
	"metadata", "content", "visual", "twodoc",
	"fonts", "images", "structure", "forensics", "external",
}

// Options wires the optional primitives and switches into an analysis.
// Zero value means: offline, no rasterization, system clock, default
// scoring weights and trust store.
type Options struct {
	NoExternal bool
	NoQR       bool

	ExpectedDomains []string // issuer domains for QR policy
	ExpectedName    string   // company name for registry comparison

	Scoring    *scoring.Config
	TrustStore *structure.TrustStore

	Renderer   ports.PageRenderer
	DataMatrix ports.DataMatrixDecoder
	QR         ports.QRDecoder
	Registry   ports.CompanyRegistry
	VAT        ports.VATValidator
	Clock      ports.Clock
}

func (o *Options) clock() ports.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return ports.SystemClock{}
}

// Analyze runs the full pipeline on one document. The only user-visible
// failure mode is an unreadable/invalid input file; any single module
// failing is logged and reported as a zero-confidence result instead
// (spec §7). Cancellation aborts the whole analysis: either a complete
// AnalysisResult is returned or nothing is.
func Analyze(ctx context.Context, path string, opts Options) (*types.AnalysisResult, error) {
	clock := opts.clock()
	cfg := opts.Scoring
	if cfg == nil {
		cfg = scoring.DefaultConfig()
	}

	started := clock.Now()
	bundle, err := extract.Load(path)
	if err != nil {
		return nil, err
	}

	modules := runModules(ctx, bundle, opts, clock)
	if ctx.Err() != nil {
		return nil, ctx.Err() // discard completed results; analysis is atomic
	}

	elapsed := clock.Now().Sub(started).Milliseconds()
	result := scoring.Score(cfg, bundle.ContentHash, modules, elapsed)
	result.Summary = summary.Generate(result)
	return result, nil
}

// runModules fans out every enabled analyzer on its own goroutine and
// collects the results in the fixed module order.
func runModules(ctx context.Context, bundle *types.DocumentBundle, opts Options, clock ports.Clock) []*types.ModuleResult {
	var mu sync.Mutex
	byName := map[string]*types.ModuleResult{}

	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, fn func() *types.ModuleResult) {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result := runModule(name, fn)
			mu.Lock()
			byName[name] = result
			mu.Unlock()
			return nil
		})
	}

	run("metadata", func() *types.ModuleResult { return metadata.Analyze(bundle, clock) })
	run("content", func() *types.ModuleResult { return content.Analyze(bundle, clock) })
	run("visual", func() *types.ModuleResult {
		renderer, qr := opts.Renderer, opts.QR
		if opts.NoQR {
			renderer, qr = nil, nil
		}
		return visual.Analyze(gctx, bundle, renderer, qr, visual.Options{ExpectedDomains: opts.ExpectedDomains})
	})
	run("twodoc", func() *types.ModuleResult {
		return twodoc.Analyze(gctx, bundle, opts.Renderer, opts.DataMatrix)
	})
	run("fonts", func() *types.ModuleResult { return fonts.Analyze(bundle) })
	run("images", func() *types.ModuleResult {
		return images.Analyze(gctx, bundle, opts.Renderer)
	})
	run("structure", func() *types.ModuleResult {
		return structure.Analyze(bundle, clock, opts.TrustStore)
	})
	run("forensics", func() *types.ModuleResult {
		var embedded []forensics.EmbeddedImage
		for _, img := range extract.DecodeImages(bundle.RawBytes) {
			embedded = append(embedded, forensics.EmbeddedImage{Page: img.Page, XRef: img.XRef, Img: img.Img})
		}
		return forensics.Analyze(embedded)
	})
	run("external", func() *types.ModuleResult {
		registry, vat := opts.Registry, opts.VAT
		if opts.NoExternal {
			registry, vat = nil, nil
		}
		return external.Analyze(gctx, bundle, registry, vat, external.Options{ExpectedName: opts.ExpectedName})
	})

	_ = g.Wait()

	ordered := make([]*types.ModuleResult, 0, len(moduleOrder))
	for _, name := range moduleOrder {
		if result, ok := byName[name]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered
}

// runModule applies the ModuleError policy: a panicking module is
// logged and replaced by a zero-confidence placeholder so it carries no
// weight in the aggregate instead of crashing the analysis.
func runModule(name string, fn func() *types.ModuleResult) (result *types.ModuleResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] module panicked: %v — continuing without it", name, r)
			result = &types.ModuleResult{Module: name, Score: 100, Confidence: 0.0}
		}
	}()
	return fn()
}
