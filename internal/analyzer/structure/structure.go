// Package structure implements the structure analyzer (C9): incremental
// update counting and per-revision diffing over the raw container bytes,
// signature trust verification, and catalog-level checks (JavaScript,
// embedded files, annotations, forms, freed objects, XMP coherence).
package structure

import (
	"fmt"
	"strings"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// Freed-object thresholds. Signing workflows routinely leave ghost
// objects behind, so a trusted signature raises the bar.
const (
	deletedObjectsThreshold       = 8
	deletedObjectsThresholdSigned = 20
)

// suspiciousAnnotationSubtypes can carry payloads or trigger playback;
// none of them belong on an invoice.
var suspiciousAnnotationSubtypes = map[string]bool{
	"FileAttachment": true,
	"Sound":          true,
	"Movie":          true,
	"Screen":         true,
}

// Analyze runs every structural check. It works from the raw container
// bytes the bundle already carries, so the file itself is not re-read:
// the %%EOF scan walks them once, and when there are incremental updates
// revision diffing re-parses a prefix of them per generation.
func Analyze(bundle *types.DocumentBundle, clock ports.Clock, store *TrustStore) *types.ModuleResult {
	result := types.NewModuleResult("structure")
	if store == nil {
		store = DefaultTrustStore()
	}

	trusted := checkSignature(result, bundle, clock, store)
	checkIncrementalUpdates(result, bundle, trusted)
	checkCatalog(result, bundle, trusted)

	if len(bundle.RawBytes) == 0 {
		result.Confidence = 0.3
	} else {
		result.Confidence = 1.0
	}
	return result
}

// checkSignature verifies a declared signature against the trust store
// and emits exactly one STRUCT_SIGNATURE_* flag. Returns whether the
// signature is trusted (suppresses the incremental-updates flag and
// raises the freed-object threshold).
func checkSignature(result *types.ModuleResult, bundle *types.DocumentBundle, clock ports.Clock, store *TrustStore) bool {
	sig := bundle.Signature
	if sig == nil {
		return false
	}
	check := verifySignature(sig, store, clock.Now())
	details := map[string]interface{}{"signer": check.signerDN}
	if check.issuer != "" {
		details["issuer"] = check.issuer
	}
	if sig.SignedAt != nil {
		details["signed_at"] = sig.SignedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	switch check.verdict {
	case SignatureTrusted:
		result.AddFlag(types.NewFlag(types.SeverityLow, "STRUCT_SIGNATURE_TRUSTED",
			"Document is signed by a recognized certification authority").
			WithDetails(details))
		return true
	case SignatureTrustedExpired:
		result.AddFlag(types.NewFlag(types.SeverityLow, "STRUCT_SIGNATURE_TRUSTED_EXPIRED",
			"Document is signed by a recognized authority but the certificate is outside its validity window").
			WithDetails(details))
	case SignatureNotTrusted:
		result.AddFlag(types.NewFlag(types.SeverityLow, "STRUCT_SIGNATURE_NOT_TRUSTED",
			"Document signature issuer is not in the trust store").
			WithDetails(details))
	case SignatureUnverifiable:
		result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_SIGNATURE_UNVERIFIABLE",
			"Document declares a signature whose certificate cannot be read").
			WithDetails(details))
	case SignatureInvalid:
		result.AddFlag(types.NewFlag(types.SeverityHigh, "STRUCT_SIGNATURE_INVALID",
			"Document declares a signature with no signature payload").
			WithDetails(details))
	}
	return false
}

// checkIncrementalUpdates counts saved generations via %%EOF markers and
// reports the per-revision diff. Signed incremental updates are the
// defined pattern for signatures, so a trusted signature suppresses the
// flag entirely.
func checkIncrementalUpdates(result *types.ModuleResult, bundle *types.DocumentBundle, trusted bool) {
	ends := scanGenerationEnds(bundle.RawBytes)
	if len(ends) <= 1 || trusted {
		return
	}

	editCount := len(ends) - 1
	details := map[string]interface{}{
		"generations": len(ends),
		"edit_count":  editCount,
	}
	if diffs := diffRevisions(bundle.RawBytes, ends); len(diffs) > 0 {
		details["revisions"] = diffs
	}
	result.AddFlag(types.NewFlag(types.SeverityHigh, "STRUCT_INCREMENTAL_UPDATES",
		fmt.Sprintf("Document was incrementally saved %d time(s) after its initial creation", editCount)).
		WithDetails(details))
}

func checkCatalog(result *types.ModuleResult, bundle *types.DocumentBundle, trusted bool) {
	if bundle.HasJavaScript {
		result.AddFlag(types.NewFlag(types.SeverityHigh, "STRUCT_JAVASCRIPT_DETECTED",
			"Document carries JavaScript actions"))
	}

	if n := len(bundle.EmbeddedFiles); n > 0 {
		result.AddFlag(types.NewFlag(types.SeverityHigh, "STRUCT_EMBEDDED_FILES",
			fmt.Sprintf("Document declares %d embedded file stream(s)", n)).
			WithDetails(map[string]interface{}{"count": n, "filenames": bundle.EmbeddedFiles}))
	}

	var hidden, suspicious []map[string]interface{}
	for _, a := range bundle.Annotations {
		sub := strings.TrimPrefix(a.Subtype, "/")
		if a.Opacity == 0 {
			hidden = append(hidden, map[string]interface{}{"page": a.Page, "subtype": sub})
		}
		if suspiciousAnnotationSubtypes[sub] {
			suspicious = append(suspicious, map[string]interface{}{"page": a.Page, "subtype": sub})
		}
	}
	if len(hidden) > 0 {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_HIDDEN_ANNOTATIONS",
			fmt.Sprintf("%d annotation(s) are fully transparent", len(hidden))).
			WithDetails(map[string]interface{}{"annotations": hidden}))
	}
	if len(suspicious) > 0 {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_SUSPICIOUS_ANNOTATIONS",
			fmt.Sprintf("%d annotation(s) of attachment/playback subtypes", len(suspicious))).
			WithDetails(map[string]interface{}{"annotations": suspicious}))
	}

	if bundle.HasAcroForm {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_ACROFORM_DETECTED",
			"Document contains interactive form fields"))
	}

	threshold := deletedObjectsThreshold
	if trusted {
		threshold = deletedObjectsThresholdSigned
	}
	if bundle.FreedObjectCount > threshold {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_DELETED_OBJECTS",
			fmt.Sprintf("Object graph carries %d freed-but-present objects", bundle.FreedObjectCount)).
			WithDetails(map[string]interface{}{"count": bundle.FreedObjectCount, "threshold": threshold}))
	}

	checkXMPCoherence(result, bundle)
}

// checkXMPCoherence compares the XMP toolkit that last wrote the
// document against the info-dictionary producer. Two different writers
// mean the metadata was edited after production.
func checkXMPCoherence(result *types.ModuleResult, bundle *types.DocumentBundle) {
	toolkit := strings.TrimSpace(bundle.XMPToolkit)
	producer := strings.TrimSpace(bundle.Metadata.Producer)
	if toolkit == "" || producer == "" {
		return
	}
	tl, pl := strings.ToLower(toolkit), strings.ToLower(producer)
	if strings.Contains(tl, pl) || strings.Contains(pl, tl) || sharesVendorToken(tl, pl) {
		return
	}
	result.AddFlag(types.NewFlag(types.SeverityMedium, "STRUCT_XMP_EDITOR_MISMATCH",
		"XMP toolkit and info-dictionary producer disagree about what wrote this document").
		WithDetails(map[string]interface{}{"xmp_toolkit": toolkit, "producer": producer}))
}

// sharesVendorToken treats toolkit/producer pairs from the same vendor
// (e.g. "Adobe XMP Core" vs "Adobe PDF Library") as coherent.
func sharesVendorToken(a, b string) bool {
	for _, vendor := range []string{"adobe", "microsoft", "libreoffice", "openoffice", "apache", "itext", "foxit"} {
		if strings.Contains(a, vendor) && strings.Contains(b, vendor) {
			return true
		}
	}
	return false
}
