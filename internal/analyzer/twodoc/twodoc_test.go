package twodoc

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

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

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestHexDateRoundTrip(t *testing.T) {
	tests := []*time.Time{
		date(2000, 1, 1),
		date(2020, 2, 29),
		// Day 0xFFFE, the last encodable date: day 0xFFFF (2179-06-06)
		// is the absent marker.
		date(2179, 6, 5),
		nil,
	}
	for _, want := range tests {
		encoded := FormatHexDate(want)
		got, err := ParseHexDate(encoded)
		if err != nil {
			t.Fatalf("ParseHexDate(%q): %v", encoded, err)
		}
		switch {
		case want == nil && got != nil:
			t.Errorf("FFFF should parse as absent, got %v", got)
		case want != nil && (got == nil || !got.Equal(*want)):
			t.Errorf("round trip of %v through %q = %v", want, encoded, got)
		}
	}
}

func TestHexDateEpoch(t *testing.T) {
	got, err := ParseHexDate("0000")
	if err != nil || got == nil || !got.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("0000 = %v, %v; want 2000-01-01", got, err)
	}
	if _, err := ParseHexDate("00ff"); err == nil {
		t.Error("lowercase hex must be rejected")
	}
	if _, err := ParseHexDate("XYZ0"); err == nil {
		t.Error("non-hex must be rejected")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []*Header{
		{Version: "01", CAID: "FR00", CertID: "0001", EmissionDate: date(2024, 1, 15), SignatureDate: date(2024, 1, 15), DocType: "04"},
		{Version: "02", CAID: "FR01", CertID: "AB12", EmissionDate: nil, SignatureDate: nil, DocType: "01"},
		{Version: "03", CAID: "FR03", CertID: "1234", EmissionDate: date(2022, 6, 1), SignatureDate: date(2022, 6, 2), DocType: "04", Perimeter: "01"},
		{Version: "04", CAID: "FR04", CertID: "9999", EmissionDate: date(2023, 3, 3), SignatureDate: nil, DocType: "06", Perimeter: "01", Country: "FR"},
	}
	for _, h := range tests {
		t.Run("v"+h.Version, func(t *testing.T) {
			wire, err := BuildHeader(h)
			if err != nil {
				t.Fatalf("BuildHeader: %v", err)
			}
			parsed, rest, err := ParseHeader(wire + "TRAILER")
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if rest != "TRAILER" {
				t.Errorf("rest = %q, want TRAILER", rest)
			}
			if parsed.Version != h.Version || parsed.CAID != h.CAID || parsed.CertID != h.CertID ||
				parsed.DocType != h.DocType || parsed.Perimeter != h.Perimeter || parsed.Country != h.Country {
				t.Errorf("parsed = %+v, want %+v", parsed, h)
			}
			if (parsed.EmissionDate == nil) != (h.EmissionDate == nil) ||
				(parsed.EmissionDate != nil && !parsed.EmissionDate.Equal(*h.EmissionDate)) {
				t.Errorf("emission date = %v, want %v", parsed.EmissionDate, h.EmissionDate)
			}
		})
	}
}

func TestHeaderRejectsUnknownVersion(t *testing.T) {
	if _, _, err := ParseHeader("DC99AAAABBBBFFFFFFFF04"); err == nil {
		t.Error("unknown version must fail parsing")
	}
	if _, _, err := ParseHeader("XX01AAAABBBBFFFFFFFF04"); err == nil {
		t.Error("missing DC marker must fail parsing")
	}
}

func TestParseMessageFixedAndVariable(t *testing.T) {
	// Postal code (13, fixed 5) then city (14, variable, GS-terminated)
	// then street (12, ends at US), then signature.
	zone := "1375001" + "14PARIS" + string(rune(groupSeparator)) + "12RUE DE RIVOLI" + string(rune(unitSeparator)) + "SIGBYTES"
	msg, err := ParseMessage(zone)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(msg.Fields) != 3 {
		t.Fatalf("got %d fields, want 3: %+v", len(msg.Fields), msg.Fields)
	}
	want := []struct{ di, value string }{
		{"13", "75001"}, {"14", "PARIS"}, {"12", "RUE DE RIVOLI"},
	}
	for i, w := range want {
		if msg.Fields[i].DI != w.di || msg.Fields[i].Value != w.value {
			t.Errorf("field %d = %s %q, want %s %q", i, msg.Fields[i].DI, msg.Fields[i].Value, w.di, w.value)
		}
	}
	if msg.Signature != "SIGBYTES" {
		t.Errorf("signature = %q, want SIGBYTES", msg.Signature)
	}
}

func TestParseMessageTruncatedField(t *testing.T) {
	zone := "14PAR" + string(rune(recordSeparator)) + "1375001" + string(rune(unitSeparator))
	msg, err := ParseMessage(zone)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if !msg.Fields[0].Truncated {
		t.Error("RS-terminated field must be marked truncated")
	}
	if msg.Fields[1].Value != "75001" {
		t.Errorf("parsing must continue after RS, got %+v", msg.Fields)
	}
}

func TestParseMessageUnknownDI(t *testing.T) {
	zone := "ZZmystery" + string(rune(unitSeparator))
	msg, err := ParseMessage(zone)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Fields[0].Name != "Unknown (ZZ)" {
		t.Errorf("unknown DI name = %q, want Unknown (ZZ)", msg.Fields[0].Name)
	}
	if msg.Fields[0].Value != "mystery" {
		t.Errorf("unknown DI treated as variable-length, got %q", msg.Fields[0].Value)
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Hôtel   de\nVille — ÉTÉ ")
	if got != "HOTEL DE VILLE — ETE" {
		t.Errorf("NormalizeText = %q", got)
	}
}

func TestCrossVerifyMissingCriticalField(t *testing.T) {
	msg := &Message{Fields: []Field{
		{DI: "41", Name: "Tax notice reference", Value: "2442REF999"},
	}}
	result := types.NewModuleResult("twodoc")
	crossVerify(result, msg, "Avis d'impôt sans la référence attendue")
	flags := flagsWithCode(result, "TWODOC_MISSING_FIELD")
	if len(flags) != 1 || flags[0].Severity != types.SeverityCritical {
		t.Fatalf("missing RFR must be critical, got %+v", result.Flags)
	}
}

func TestCrossVerifyNormalizedNameMatch(t *testing.T) {
	msg := &Message{Fields: []Field{
		{DI: "10", Name: "Beneficiary last name", Value: "LEFEBVRE"},
	}}
	result := types.NewModuleResult("twodoc")
	matches := crossVerify(result, msg, "Monsieur Jean Lefèbvre\n12 rue des Lilas")
	if len(matches) != 1 || !matches[0].Found {
		t.Fatalf("accent-insensitive match expected, got %+v", matches)
	}
	if len(result.Flags) != 0 {
		t.Errorf("matched field must not flag, got %+v", result.Flags)
	}
}

func TestCrossVerifyAmountTolerance(t *testing.T) {
	msg := &Message{Fields: []Field{
		{DI: "4V", Name: "Tax amount", Value: "1234.56"},
	}}
	result := types.NewModuleResult("twodoc")
	matches := crossVerify(result, msg, "Montant de l'impôt : 1 234,56 €")
	if len(matches) != 1 || !matches[0].Found {
		t.Fatalf("European rendering of the signed amount should match, got %+v", matches)
	}
}

func TestBalanceMismatch(t *testing.T) {
	msg := &Message{Fields: []Field{
		{DI: "4V", Name: "Tax amount", Value: "2000"},
		{DI: "4X", Name: "Tax already withheld", Value: "500"},
	}}
	result := types.NewModuleResult("twodoc")
	// 2000 and 500 appear but the 1500 balance does not.
	crossVerify(result, msg, "Impôt: 2000 € — déjà prélevé: 500 €")
	if len(flagsWithCode(result, "TWODOC_BALANCE_MISMATCH")) != 1 {
		t.Fatalf("expected TWODOC_BALANCE_MISMATCH, got %+v", result.Flags)
	}

	result = types.NewModuleResult("twodoc")
	crossVerify(result, msg, "Impôt: 2000 € — prélevé: 500 € — solde: 1500 €")
	if len(flagsWithCode(result, "TWODOC_BALANCE_MISMATCH")) != 0 {
		t.Errorf("verbatim balance must not flag, got %+v", result.Flags)
	}
}

func TestTaxBracketMath(t *testing.T) {
	// Income entirely inside the 0% bracket is untaxed.
	if tax := taxForIncome(11000, 1); tax != 0 {
		t.Errorf("taxForIncome(11000, 1) = %v, want 0", tax)
	}
	// 30000 for one part: 11% of (29315-11497) + 30% of (30000-29315).
	want := 0.11*(29315-11497) + 0.30*(30000-29315)
	if tax := taxForIncome(30000, 1); !close(tax, want, 0.01) {
		t.Errorf("taxForIncome(30000, 1) = %v, want %v", tax, want)
	}
	// Two parts halve the per-part income.
	if tax := taxForIncome(22000, 2); tax != 0 {
		t.Errorf("taxForIncome(22000, 2) = %v, want 0 (11000 per part)", tax)
	}
	// Inversion: incomeForTax(taxForIncome(x)) ≈ x above the 0% band.
	for _, income := range []float64{35000, 90000, 200000} {
		tax := taxForIncome(income, 1)
		back := incomeForTax(tax, 1)
		if !close(back, income, 1.0) {
			t.Errorf("incomeForTax(taxForIncome(%v)) = %v", income, back)
		}
	}
}

func close(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestIncomeConsistency(t *testing.T) {
	// Tax of 2460 for one part corresponds to ~31000 income; the ±25% tax
	// band maps to a plausible income of roughly 28300–33000.
	msg := &Message{Fields: []Field{
		{DI: "4V", Name: "Tax amount", Value: "2460"},
		{DI: "43", Name: "Household parts", Value: "1"},
	}}

	result := types.NewModuleResult("twodoc")
	crossVerify(result, msg, "Revenu fiscal de référence : 2 000 €")
	flags := flagsWithCode(result, "TWODOC_INCOME_IMPLAUSIBLE")
	if len(flags) != 1 || flags[0].Severity != types.SeverityCritical {
		t.Fatalf("income far below the plausible band must be critical, got %+v", result.Flags)
	}

	result = types.NewModuleResult("twodoc")
	crossVerify(result, msg, "Revenu fiscal de référence : 450 000 €")
	flags = flagsWithCode(result, "TWODOC_INCOME_IMPLAUSIBLE")
	if len(flags) != 1 || flags[0].Severity != types.SeverityHigh {
		t.Fatalf("income far above the plausible band must be high, got %+v", result.Flags)
	}

	result = types.NewModuleResult("twodoc")
	crossVerify(result, msg, "Revenu fiscal de référence : 30 000 €")
	if len(flagsWithCode(result, "TWODOC_INCOME_IMPLAUSIBLE")) != 0 {
		t.Errorf("income inside the band must not flag, got %+v", result.Flags)
	}
}

// barcodePage renders a synthetic page: white background with one
// square mid-density blob in the top-left quadrant, sized for the
// prefilter's [60,300] px window at 100 DPI.
func barcodePage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	// 100x100 blob at (50,50): dark rows every other line, fused into
	// one 4-connected component by a dark spine column; fill density
	// lands near 50%.
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			if y%2 == 0 || x == 100 {
				img.SetNRGBA(x, y, color.NRGBA{A: 255}) // black
			}
		}
	}
	return img
}

type pageRenderer struct{ img image.Image }

func (p pageRenderer) RenderPage(ctx context.Context, page int, zoomDPI float64) (ports.Bitmap, error) {
	return p.img, nil
}

type matrixDecoder struct{ payload string }

func (d matrixDecoder) DecodeDataMatrix(ctx context.Context, bmp ports.Bitmap) ([]ports.DataMatrixCandidate, error) {
	if d.payload == "" {
		return nil, nil
	}
	return []ports.DataMatrixCandidate{{Payload: []byte(d.payload)}}, nil
}

func buildPayload(t *testing.T) string {
	t.Helper()
	header, err := BuildHeader(&Header{
		Version: "04", CAID: "FR04", CertID: "0001",
		EmissionDate: date(2024, 1, 10), SignatureDate: date(2024, 1, 10),
		DocType: "04", Perimeter: "01", Country: "FR",
	})
	if err != nil {
		t.Fatal(err)
	}
	zone := "10DURAND" + string(rune(groupSeparator)) + "1375011" + string(rune(unitSeparator)) + "SIG"
	return header + zone
}

func TestAnalyzeEndToEnd(t *testing.T) {
	bundle := &types.DocumentBundle{
		PageCount:  1,
		TextByPage: []string{"Mme Durand\n75011 PARIS"},
	}
	renderer := pageRenderer{img: barcodePage(850, 1100)}
	result := Analyze(context.Background(), bundle, renderer, matrixDecoder{payload: buildPayload(t)})

	if len(flagsWithCode(result, "TWODOC_PRESENT")) != 1 {
		t.Fatalf("expected TWODOC_PRESENT, got %+v", result.Flags)
	}
	if len(flagsWithCode(result, "TWODOC_MISSING_FIELD")) != 0 {
		t.Errorf("both signed fields appear in the text, got %+v", result.Flags)
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", result.Confidence)
	}
}

func TestAnalyzeMissingPrimitivesDegrades(t *testing.T) {
	bundle := &types.DocumentBundle{PageCount: 1, TextByPage: []string{"x"}}
	result := Analyze(context.Background(), bundle, nil, nil)
	if len(result.Flags) != 0 || result.Confidence != 0.1 {
		t.Errorf("missing primitives: flags=%v confidence=%v", result.Flags, result.Confidence)
	}
}

func TestAnalyzeNoBarcodeFound(t *testing.T) {
	white := image.NewNRGBA(image.Rect(0, 0, 850, 1100))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	bundle := &types.DocumentBundle{PageCount: 1, TextByPage: []string{"facture"}}
	result := Analyze(context.Background(), bundle, pageRenderer{img: white}, matrixDecoder{payload: "DC..."})
	if len(result.Flags) != 0 {
		t.Errorf("no barcode is not a finding, got %+v", result.Flags)
	}
	if result.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", result.Confidence)
	}
}
