// Package external implements the external verifier (C11): online
// lookups of document-stated company identifiers and VAT numbers. It is
// the only module permitted network I/O; every failure degrades to a
// low-severity flag, never an error.
package external

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/docforensic/docforensic/internal/analyzer/content"
	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// Options configures the external verifier.
type Options struct {
	// ExpectedName, when non-empty, is compared against the registry's
	// company name.
	ExpectedName string
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]`)

// legalFormTokens are stripped before company-name comparison; the
// registry and the invoice rarely agree on them.
var legalFormTokens = map[string]bool{
	"sa": true, "sas": true, "sarl": true, "eurl": true, "snc": true,
	"sci": true, "scop": true, "sel": true, "gie": true, "se": true, "sca": true,
}

const nameSimilarityThreshold = 0.8

// Analyze queries the registry for each checksum-valid identifier in
// the document text and the VAT validator for each checksum-valid VAT
// number. A nil registry/validator simply means no verification is
// attempted (offline mode).
func Analyze(ctx context.Context, bundle *types.DocumentBundle, registry ports.CompanyRegistry, vat ports.VATValidator, opts Options) *types.ModuleResult {
	result := types.NewModuleResult("external")
	text := strings.Join(bundle.TextByPage, "\n")
	ids := content.ExtractIdentifiers(text)

	attempted, succeeded := 0, 0

	// SIRETs first; a SIREN already implied by a queried SIRET is
	// skipped so the registry is not asked the same question twice.
	impliedSirens := map[string]bool{}
	if registry != nil {
		for _, siret := range ids.Sirets {
			if !content.ValidateSIRET(siret) {
				continue
			}
			attempted++
			impliedSirens[siret[:9]] = true
			if verifySiret(ctx, result, registry, siret, opts) {
				succeeded++
			}
		}
		for _, siren := range append(ids.Sirens, ids.BareSirens...) {
			if !content.ValidateSIREN(siren) || impliedSirens[siren] {
				continue
			}
			bare := !contains(ids.Sirens, siren)
			attempted++
			impliedSirens[siren] = true
			if verifySiren(ctx, result, registry, siren, bare, opts) {
				succeeded++
			}
		}
	}

	if vat != nil {
		for _, vatNum := range ids.VATs {
			if !content.ValidateFrenchVAT(vatNum) {
				continue
			}
			attempted++
			if verifyVAT(ctx, result, vat, vatNum) {
				succeeded++
			}
		}
	}

	if attempted == 0 {
		result.Confidence = 0.1
	} else {
		result.Confidence = 0.5 + 0.5*float64(succeeded)/float64(attempted)
	}
	return result
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func verifySiret(ctx context.Context, result *types.ModuleResult, registry ports.CompanyRegistry, siret string, opts Options) bool {
	info, err := registry.LookupSiret(ctx, siret)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		result.AddFlag(types.NewFlag(types.SeverityCritical, "EXTERNAL_SIRET_NOT_FOUND",
			"The stated SIRET does not exist in the company registry").
			WithDetails(map[string]interface{}{"siret": siret}))
		return true
	case err != nil:
		result.AddFlag(types.NewFlag(types.SeverityLow, "EXTERNAL_SIRET_VERIFICATION_FAILED",
			"SIRET verification could not be completed").
			WithDetails(map[string]interface{}{"siret": siret, "error": err.Error()}))
		return false
	}
	checkCompanyInfo(result, info, opts)
	return true
}

func verifySiren(ctx context.Context, result *types.ModuleResult, registry ports.CompanyRegistry, siren string, bare bool, opts Options) bool {
	info, err := registry.LookupSiren(ctx, siren)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		if bare {
			// An unanchored XXX XXX XXX pattern that happens to pass the
			// checksum is weak evidence; log, don't flag.
			log.Printf("[external] potential SIREN %s not found, ignoring (low confidence)", siren)
			return true
		}
		result.AddFlag(types.NewFlag(types.SeverityCritical, "EXTERNAL_SIREN_NOT_FOUND",
			"The stated SIREN does not exist in the company registry").
			WithDetails(map[string]interface{}{"siren": siren}))
		return true
	case err != nil:
		result.AddFlag(types.NewFlag(types.SeverityLow, "EXTERNAL_SIREN_VERIFICATION_FAILED",
			"SIREN verification could not be completed").
			WithDetails(map[string]interface{}{"siren": siren, "error": err.Error()}))
		return false
	}
	checkCompanyInfo(result, info, opts)
	return true
}

func checkCompanyInfo(result *types.ModuleResult, info ports.CompanyInfo, opts Options) {
	if info.Status == ports.CompanyClosed {
		result.AddFlag(types.NewFlag(types.SeverityHigh, "EXTERNAL_COMPANY_CLOSED",
			fmt.Sprintf("Company %s is administratively closed", info.Name)).
			WithDetails(map[string]interface{}{"siren": info.Siren, "name": info.Name}))
	}
	if opts.ExpectedName == "" {
		return
	}
	similarity := nameSimilarity(opts.ExpectedName, info.Name)
	if tn := info.TradeName; tn != "" {
		if s := nameSimilarity(opts.ExpectedName, tn); s > similarity {
			similarity = s
		}
	}
	if similarity < nameSimilarityThreshold {
		result.AddFlag(types.NewFlag(types.SeverityHigh, "EXTERNAL_COMPANY_NAME_MISMATCH",
			fmt.Sprintf("Registry knows this identifier as %q, not %q", info.Name, opts.ExpectedName)).
			WithDetails(map[string]interface{}{
				"expected":   opts.ExpectedName,
				"registered": info.Name,
				"similarity": similarity,
			}))
	}
}

func verifyVAT(ctx context.Context, result *types.ModuleResult, validator ports.VATValidator, vatNum string) bool {
	res, err := validator.ValidateVAT(ctx, vatNum[:2], vatNum[2:])
	if err != nil {
		result.AddFlag(types.NewFlag(types.SeverityLow, "EXTERNAL_VAT_VERIFICATION_FAILED",
			"VAT verification could not be completed").
			WithDetails(map[string]interface{}{"vat": vatNum, "error": err.Error()}))
		return false
	}
	if !res.Valid {
		result.AddFlag(types.NewFlag(types.SeverityCritical, "EXTERNAL_VAT_INVALID",
			"The VAT service reports this number as invalid").
			WithDetails(map[string]interface{}{"vat": vatNum}))
	}
	return true
}

// nameSimilarity is a Jaccard index over normalized word tokens:
// legal-form tokens stripped, non-alphanumerics removed, case folded.
func nameSimilarity(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for token := range ta {
		if tb[token] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func nameTokens(name string) map[string]bool {
	cleaned := nonAlnumRe.ReplaceAllString(strings.ToLower(name), " ")
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(cleaned) {
		if legalFormTokens[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}
