// Package ports defines the interfaces the core consumes from external
// collaborators it does not implement itself: PDF rasterization,
// DataMatrix decoding, company-registry/VAT/reputation lookups, and the
// clock. This mirrors the teacher's internal/agent.Evaluator /
// agent.CLIStatus pattern — an optionally wired external capability that
// the core degrades gracefully without when absent — and the
// ibar-style internal-backend-wrapper precedent for barcode decoding
// found in the examples pack (MeKo-Christian-pogo's internal/pdf
// processor wraps an external barcode backend behind a narrow Go
// interface rather than vendoring one).
package ports

import (
	"context"
	"image"
	"time"
)

// Bitmap is an RGB raster produced by the raster primitive.
type Bitmap = image.Image

// PageRenderer renders a page of the open document to a bitmap at the
// given resolution in dots per inch (72 DPI is one pixel per page
// point). Implementations are supplied by the caller; the core
// never assumes availability (spec §6).
type PageRenderer interface {
	RenderPage(ctx context.Context, page int, zoomDPI float64) (Bitmap, error)
}

// DataMatrixCandidate is a located, decoded barcode payload.
type DataMatrixCandidate struct {
	Payload []byte
	BBox    Rect
}

// Rect is a pixel-space bounding box, x/y measured from the top-left.
type Rect struct {
	X, Y, W, H int
}

// DataMatrixDecoder decodes DataMatrix barcodes present in a bitmap.
type DataMatrixDecoder interface {
	DecodeDataMatrix(ctx context.Context, bmp Bitmap) ([]DataMatrixCandidate, error)
}

// QRDecoder decodes QR codes present in a bitmap, returning one payload
// string per located code along with its page-relative bounding box.
type QRDecoder interface {
	DecodeQR(ctx context.Context, bmp Bitmap) ([]QRCandidate, error)
}

// QRCandidate is a located, decoded QR payload.
type QRCandidate struct {
	Payload string
	BBox    Rect
}

// CompanyStatus is the administrative status of a registered company.
type CompanyStatus string

const (
	CompanyActive  CompanyStatus = "active"
	CompanyClosed  CompanyStatus = "closed"
	CompanyUnknown CompanyStatus = "unknown"
)

// CompanyInfo is the registry's answer to a SIRET/SIREN lookup.
type CompanyInfo struct {
	Siren        string
	Siret        string
	Name         string
	TradeName    string
	Address      string
	PostalCode   string
	City         string
	Status       CompanyStatus
	LegalForm    string
	CreationDate *time.Time
}

// ErrNotFound is returned by CompanyRegistry lookups when the registry
// explicitly reports the identifier as unknown (as opposed to a network
// or timeout failure, which is a plain error).
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "ports: company not found" }

// CompanyRegistry looks up French companies by SIRET/SIREN. Optional:
// the external verifier (C11) degrades to a low-confidence offline
// result when no registry is wired.
type CompanyRegistry interface {
	LookupSiret(ctx context.Context, siret string) (CompanyInfo, error)
	LookupSiren(ctx context.Context, siren string) (CompanyInfo, error)
}

// VATResult is the answer to a VAT number validation query.
type VATResult struct {
	Valid   bool
	Name    string
	Address string
}

// VATValidator validates an EU VAT identifier. Optional.
type VATValidator interface {
	ValidateVAT(ctx context.Context, countryCode, number string) (VATResult, error)
}

// ReputationStatus is the verdict of a file-reputation lookup.
type ReputationStatus string

const (
	ReputationClean     ReputationStatus = "clean"
	ReputationMalicious ReputationStatus = "malicious"
	ReputationUnknown   ReputationStatus = "unknown"
)

// ReputationResult is the answer to a reputation(sha256) query.
type ReputationResult struct {
	Status    ReputationStatus
	Positives int
	Total     int
	ReportURL string
}

// ReputationService looks up a file's reputation by content hash.
// Optional; not wired into any required module by this spec, but kept as
// a documented extension point per §6's external-interfaces list.
type ReputationService interface {
	Reputation(ctx context.Context, sha256Hex string) (ReputationResult, error)
}

// Clock supplies the current instant. Mandatory dependency-injection
// point: every module that reasons about "now" takes a Clock instead of
// calling time.Now() directly, so tests are deterministic (spec §6, §8).
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by the real wall clock.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a Clock that always returns the same instant, for
// deterministic tests.
type FixedClock struct{ At time.Time }

// Now returns the fixed instant.
func (f FixedClock) Now() time.Time { return f.At }
