package twodoc

import (
	"context"
	"log"
	"strings"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// Analyze locates and parses a 2D-DOC on the first page and
// cross-verifies its signed fields against the visible text. Both
// primitives are optional; without them the module reports low
// confidence and no flags. A document with no 2D-DOC at all is normal
// and yields no flags either.
func Analyze(ctx context.Context, bundle *types.DocumentBundle, renderer ports.PageRenderer, decoder ports.DataMatrixDecoder) *types.ModuleResult {
	result := types.NewModuleResult("twodoc")

	if renderer == nil || decoder == nil || bundle.PageCount == 0 {
		result.Confidence = 0.1
		return result
	}

	payloads := locate(ctx, renderer, decoder)
	if len(payloads) == 0 {
		result.Confidence = 0.3
		return result
	}

	text := strings.Join(bundle.TextByPage, "\n")
	parsed := false
	for _, payload := range payloads {
		header, rest, err := ParseHeader(payload)
		if err != nil {
			log.Printf("[2ddoc] header: %v", err)
			continue
		}
		msg, err := ParseMessage(rest)
		if err != nil {
			log.Printf("[2ddoc] message: %v", err)
			result.AddFlag(types.NewFlag(types.SeverityMedium, "TWODOC_UNREADABLE",
				"A 2D-DOC barcode was found but its message zone cannot be parsed").
				WithDetails(map[string]interface{}{"error": err.Error()}))
			continue
		}
		parsed = true

		matches := crossVerify(result, msg, text)
		attachSummary(result, header, msg, matches)
		break // stop on the first successful parse
	}

	if parsed {
		result.Confidence = 0.9
	} else {
		result.Confidence = 0.5
	}
	return result
}

// attachSummary records the parsed header and field matches on the
// module result. The scoring engine ignores it; the report UI renders
// it.
func attachSummary(result *types.ModuleResult, header *Header, msg *Message, matches []ComparisonMatch) {
	details := map[string]interface{}{
		"version":  header.Version,
		"ca_id":    header.CAID,
		"cert_id":  header.CertID,
		"doc_type": header.DocType,
		"fields":   len(msg.Fields),
	}
	if header.EmissionDate != nil {
		details["emission_date"] = header.EmissionDate.Format("2006-01-02")
	}
	if header.SignatureDate != nil {
		details["signature_date"] = header.SignatureDate.Format("2006-01-02")
	}
	if len(matches) > 0 {
		details["matches"] = matches
	}
	result.AddFlag(types.NewFlag(types.SeverityLow, "TWODOC_PRESENT",
		"Document carries a parseable 2D-DOC barcode").
		WithDetails(details))
}
