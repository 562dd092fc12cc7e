package visual

import (
	"context"
	"image"
	"testing"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

func flagsWithCode(result *types.ModuleResult, code string) []types.Flag {
	var out []types.Flag
	for _, f := range result.Flags {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

type stubRenderer struct{}

func (stubRenderer) RenderPage(ctx context.Context, page int, zoomDPI float64) (ports.Bitmap, error) {
	return image.NewNRGBA(image.Rect(0, 0, 10, 10)), nil
}

type stubQRDecoder struct{ payloads []string }

func (d stubQRDecoder) DecodeQR(ctx context.Context, bmp ports.Bitmap) ([]ports.QRCandidate, error) {
	var out []ports.QRCandidate
	for _, p := range d.payloads {
		out = append(out, ports.QRCandidate{Payload: p})
	}
	// Only page 1 carries codes in these fixtures; the decoder is
	// stateless so it would repeat per page — single-page bundles only.
	return out, nil
}

func analyzeQR(t *testing.T, payload string, opts Options) *types.ModuleResult {
	t.Helper()
	bundle := &types.DocumentBundle{PageCount: 1, TextByPage: []string{""}}
	return Analyze(context.Background(), bundle, stubRenderer{}, stubQRDecoder{payloads: []string{payload}}, opts)
}

func TestQRShortener(t *testing.T) {
	result := analyzeQR(t, "https://bit.ly/3xYz", Options{})
	flags := flagsWithCode(result, "VISUAL_QR_URL_SHORTENER")
	if len(flags) != 1 || flags[0].Severity != types.SeverityHigh {
		t.Fatalf("expected high VISUAL_QR_URL_SHORTENER, got %+v", result.Flags)
	}
}

func TestQRSuspiciousTLD(t *testing.T) {
	result := analyzeQR(t, "https://paiement-facture.xyz/pay", Options{})
	if len(flagsWithCode(result, "VISUAL_QR_SUSPICIOUS_TLD")) != 1 {
		t.Fatalf("expected VISUAL_QR_SUSPICIOUS_TLD, got %+v", result.Flags)
	}
}

func TestQRDomainMismatchWithExplicitDomains(t *testing.T) {
	opts := Options{ExpectedDomains: []string{"edf.fr"}}

	result := analyzeQR(t, "https://paiements.edf.fr/f/123", opts)
	if len(flagsWithCode(result, "VISUAL_QR_DOMAIN_MISMATCH")) != 0 {
		t.Errorf("subdomain of expected domain should pass, got %+v", result.Flags)
	}

	result = analyzeQR(t, "https://edf-paiement.example.com/f/123", opts)
	flags := flagsWithCode(result, "VISUAL_QR_DOMAIN_MISMATCH")
	if len(flags) != 1 || flags[0].Severity != types.SeverityCritical {
		t.Fatalf("expected critical VISUAL_QR_DOMAIN_MISMATCH, got %+v", result.Flags)
	}
}

func TestQRDomainDerivedFromText(t *testing.T) {
	bundle := &types.DocumentBundle{
		PageCount:  1,
		TextByPage: []string{"Contact: service.client@acme.fr — www https://www.acme.fr/aide et https://facebook.com/acme"},
	}
	result := Analyze(context.Background(), bundle, stubRenderer{},
		stubQRDecoder{payloads: []string{"https://evil.example.org/pay"}}, Options{})
	if len(flagsWithCode(result, "VISUAL_QR_DOMAIN_MISMATCH")) != 1 {
		t.Fatalf("expected mismatch against derived domains, got %+v", result.Flags)
	}

	result = Analyze(context.Background(), bundle, stubRenderer{},
		stubQRDecoder{payloads: []string{"https://pay.acme.fr/x"}}, Options{})
	if len(flagsWithCode(result, "VISUAL_QR_DOMAIN_MISMATCH")) != 0 {
		t.Errorf("derived domain should match, got %+v", result.Flags)
	}
}

func TestNonURLPayloadIgnored(t *testing.T) {
	result := analyzeQR(t, "DC04FR000001...", Options{ExpectedDomains: []string{"acme.fr"}})
	if len(result.Flags) != 0 {
		t.Errorf("non-URL QR payloads carry no domain policy, got %+v", result.Flags)
	}
}

func TestWatermarkSeverities(t *testing.T) {
	tests := []struct {
		text string
		sev  types.Severity
	}{
		{"— SPÉCIMEN —", types.SeverityHigh},
		{"ANNULÉ", types.SeverityHigh},
		{"facture DUPLICATA", types.SeverityMedium},
		{"DRAFT v2", types.SeverityMedium},
		{"CONFIDENTIAL", types.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			bundle := &types.DocumentBundle{PageCount: 1, TextByPage: []string{tt.text}}
			result := Analyze(context.Background(), bundle, nil, nil, Options{})
			flags := flagsWithCode(result, "VISUAL_WATERMARK")
			if len(flags) != 1 {
				t.Fatalf("got %d VISUAL_WATERMARK flags, want 1 (%+v)", len(flags), result.Flags)
			}
			if flags[0].Severity != tt.sev {
				t.Errorf("severity = %v, want %v", flags[0].Severity, tt.sev)
			}
		})
	}
}

func TestConverterWatermark(t *testing.T) {
	bundle := &types.DocumentBundle{PageCount: 1, TextByPage: []string{"Converted by iLovePDF"}}
	result := Analyze(context.Background(), bundle, nil, nil, Options{})
	flags := flagsWithCode(result, "VISUAL_CONVERTER_WATERMARK")
	if len(flags) != 1 || flags[0].Severity != types.SeverityHigh {
		t.Fatalf("online converter watermark should be high, got %+v", result.Flags)
	}

	bundle.TextByPage = []string{"Produced with SomeTool free version"}
	result = Analyze(context.Background(), bundle, nil, nil, Options{})
	flags = flagsWithCode(result, "VISUAL_CONVERTER_WATERMARK")
	if len(flags) != 1 || flags[0].Severity != types.SeverityMedium {
		t.Fatalf("trial watermark should be medium, got %+v", result.Flags)
	}
}
