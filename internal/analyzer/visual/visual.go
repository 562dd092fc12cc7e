// Package visual implements the visual analyzer (C8): QR payload and
// URL domain policy checks, watermark token detection, and converter
// watermark detection over the document text.
package visual

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

const qrRenderDPI = 150.0

// shortenerDomains are URL shorteners; a QR on an invoice pointing at
// one hides the real destination from the payer.
var shortenerDomains = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd",
	"buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at", "rb.gy", "qrco.de",
}

// suspiciousTLDs attract throwaway phishing infrastructure.
var suspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq", ".top", ".xyz", ".club",
	".work", ".click", ".loan", ".zip",
}

// socialMediaDomains are excluded when deriving expected domains from
// the document text; a Facebook link in a footer says nothing about who
// issued the invoice.
var socialMediaDomains = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"linkedin.com", "youtube.com", "tiktok.com",
}

// watermarkPatterns maps watermark token regexes to severities.
var watermarkPatterns = []struct {
	re       *regexp.Regexp
	severity types.Severity
	label    string
}{
	{regexp.MustCompile(`(?i)\bSP[EÉ]CIMEN\b`), types.SeverityHigh, "SPECIMEN"},
	// No trailing \b after ANNUL[EÉ]: Go's \b is ASCII-only and never
	// fires after an accented letter.
	{regexp.MustCompile(`(?i)(\bVOID\b|\bANNUL[EÉ])`), types.SeverityHigh, "VOID"},
	{regexp.MustCompile(`(?i)\bCANCELLED\b`), types.SeverityHigh, "CANCELLED"},
	{regexp.MustCompile(`(?i)\b(NOT\s+VALID|NON\s+VALIDE)\b`), types.SeverityHigh, "NOT VALID"},
	{regexp.MustCompile(`(?i)\b(COPY|COPIE)\b`), types.SeverityMedium, "COPY"},
	{regexp.MustCompile(`(?i)\b(DRAFT|BROUILLON)\b`), types.SeverityMedium, "DRAFT"},
	{regexp.MustCompile(`(?i)\b(DUPLICATE|DUPLICATA)\b`), types.SeverityMedium, "DUPLICATE"},
	{regexp.MustCompile(`(?i)\bSAMPLE\b`), types.SeverityMedium, "SAMPLE"},
	{regexp.MustCompile(`(?i)\bTEST\b`), types.SeverityLow, "TEST"},
	{regexp.MustCompile(`(?i)\bCONFIDENTIAL\b`), types.SeverityLow, "CONFIDENTIAL"},
}

// converterWatermarks are the "created with X" footers free tooling
// stamps on its output. Online converter names are high severity, the
// rest medium.
var converterWatermarks = []struct {
	token  string
	online bool
}{
	{"ilovepdf", true},
	{"smallpdf", true},
	{"sejda", true},
	{"pdf24", true},
	{"created with pdffiller", true},
	{"free version", false},
	{"trial version", false},
	{"evaluation only", false},
	{"unregistered", false},
}

// Options configures the visual analyzer.
type Options struct {
	// ExpectedDomains is the issuer domain allowlist for QR URLs. When
	// empty, it is derived from emails and URLs in the document text.
	ExpectedDomains []string
}

// Analyze decodes QR payloads on each page (when the render and decode
// primitives are wired) and scans the text layer for watermark tokens.
func Analyze(ctx context.Context, bundle *types.DocumentBundle, renderer ports.PageRenderer, decoder ports.QRDecoder, opts Options) *types.ModuleResult {
	result := types.NewModuleResult("visual")
	text := strings.Join(bundle.TextByPage, "\n")

	expected := opts.ExpectedDomains
	if len(expected) == 0 {
		expected = deriveExpectedDomains(text)
	}

	if renderer != nil && decoder != nil {
		scanQRCodes(ctx, result, bundle, renderer, decoder, expected, len(opts.ExpectedDomains) > 0)
	}

	checkWatermarks(result, text)
	checkConverterWatermarks(result, text)

	if strings.TrimSpace(text) == "" && (renderer == nil || decoder == nil) {
		result.Confidence = 0.3
	} else {
		result.Confidence = 0.8
	}
	return result
}

func scanQRCodes(ctx context.Context, result *types.ModuleResult, bundle *types.DocumentBundle, renderer ports.PageRenderer, decoder ports.QRDecoder, expected []string, explicit bool) {
	for page := 1; page <= bundle.PageCount; page++ {
		if ctx.Err() != nil {
			return
		}
		bmp, err := renderer.RenderPage(ctx, page, qrRenderDPI)
		if err != nil {
			log.Printf("[visual] render page %d: %v", page, err)
			continue
		}
		candidates, err := decoder.DecodeQR(ctx, bmp)
		if err != nil {
			log.Printf("[visual] decode page %d: %v", page, err)
			continue
		}
		for _, qr := range candidates {
			checkQRPayload(result, page, qr.Payload, expected, explicit)
		}
	}
}

func checkQRPayload(result *types.ModuleResult, page int, payload string, expected []string, explicit bool) {
	u, err := url.Parse(strings.TrimSpace(payload))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return // non-URL payloads carry no domain policy
	}
	host := strings.ToLower(u.Hostname())

	for _, shortener := range shortenerDomains {
		if host == shortener || strings.HasSuffix(host, "."+shortener) {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "VISUAL_QR_URL_SHORTENER",
				"A QR code routes through a URL shortener").
				WithDetails(map[string]interface{}{"page": page, "url": payload, "host": host}))
			return
		}
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			result.AddFlag(types.NewFlag(types.SeverityMedium, "VISUAL_QR_SUSPICIOUS_TLD",
				fmt.Sprintf("A QR code points at a %s domain", tld)).
				WithDetails(map[string]interface{}{"page": page, "url": payload, "host": host}))
			return
		}
	}

	if len(expected) == 0 {
		return
	}
	for _, domain := range expected {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return
		}
	}
	result.AddFlag(types.NewFlag(types.SeverityCritical, "VISUAL_QR_DOMAIN_MISMATCH",
		fmt.Sprintf("QR code host %s matches none of the issuer's domains", host)).
		WithDetails(map[string]interface{}{
			"page": page, "url": payload, "host": host,
			"expected_domains": expected, "explicit": explicit,
		}))
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
	urlRe   = regexp.MustCompile(`https?://([A-Za-z0-9.\-]+)`)
)

// deriveExpectedDomains extracts the issuer's plausible domains from
// emails and URLs in the document text, excluding common social media.
func deriveExpectedDomains(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(host string) {
		host = strings.ToLower(strings.TrimPrefix(host, "www."))
		if host == "" || seen[host] {
			return
		}
		for _, social := range socialMediaDomains {
			if host == social || strings.HasSuffix(host, "."+social) {
				return
			}
		}
		seen[host] = true
		out = append(out, host)
	}
	for _, m := range emailRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range urlRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

func checkWatermarks(result *types.ModuleResult, text string) {
	for _, wp := range watermarkPatterns {
		if wp.re.MatchString(text) {
			result.AddFlag(types.NewFlag(wp.severity, "VISUAL_WATERMARK",
				fmt.Sprintf("Document carries a %q watermark token", wp.label)).
				WithDetails(map[string]interface{}{"token": wp.label}))
		}
	}
}

func checkConverterWatermarks(result *types.ModuleResult, text string) {
	lower := strings.ToLower(text)
	for _, cw := range converterWatermarks {
		if strings.Contains(lower, cw.token) {
			sev := types.SeverityMedium
			if cw.online {
				sev = types.SeverityHigh
			}
			result.AddFlag(types.NewFlag(sev, "VISUAL_CONVERTER_WATERMARK",
				"Document carries a converter or trial-version watermark").
				WithDetails(map[string]interface{}{"token": cw.token}))
			return
		}
	}
}
