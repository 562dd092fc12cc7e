package images

import (
	"context"
	"image"
	"image/color"
	"strings"
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

func TestScreenshotDetection(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want bool
	}{
		{"exact 1080p", 1920, 1080, true},
		{"within tolerance", 1930, 1100, true},
		{"rotated", 1080, 1920, true},
		{"scan-sized", 2480, 3508, false}, // A4 at 300 DPI
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := &types.DocumentBundle{
				PageCount: 1,
				Images:    []types.ImageDescriptor{{Page: 1, Width: tt.w, Height: tt.h}},
			}
			result := Analyze(context.Background(), bundle, nil)
			got := len(flagsWithCode(result, "IMAGES_SCREENSHOT_DETECTED")) > 0
			if got != tt.want {
				t.Errorf("screenshot(%dx%d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestResolutionMismatch(t *testing.T) {
	bundle := &types.DocumentBundle{
		PageCount: 1,
		Images: []types.ImageDescriptor{
			{Page: 1, Width: 100, Height: 100, DPIX: 72, DPIY: 72},
			{Page: 1, Width: 100, Height: 100, DPIX: 300, DPIY: 300},
		},
	}
	result := Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_RESOLUTION_MISMATCH")) != 1 {
		t.Errorf("expected IMAGES_RESOLUTION_MISMATCH, got %+v", result.Flags)
	}

	// DPI <= 10 images (thumbnails, separators) are excluded.
	bundle.Images[1].DPIX, bundle.Images[1].DPIY = 5, 5
	result = Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_RESOLUTION_MISMATCH")) != 0 {
		t.Errorf("low-DPI images should not participate, got %+v", result.Flags)
	}
}

func TestHeavyCompression(t *testing.T) {
	// 1000x1000 RGB is ~3 MB uncompressed; 10 KB on disk is ratio 300.
	bundle := &types.DocumentBundle{
		PageCount: 1,
		Images:    []types.ImageDescriptor{{Page: 1, Width: 1000, Height: 1000, Filter: "DCTDecode", ByteSize: 10_000}},
	}
	result := Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_HEAVY_COMPRESSION")) != 1 {
		t.Errorf("expected IMAGES_HEAVY_COMPRESSION, got %+v", result.Flags)
	}

	// Same ratio but not a JPEG: no flag.
	bundle.Images[0].Filter = "FlateDecode"
	result = Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_HEAVY_COMPRESSION")) != 0 {
		t.Errorf("non-JPEG should not flag compression, got %+v", result.Flags)
	}
}

func TestNoImagesOnTextHeavyDocument(t *testing.T) {
	bundle := &types.DocumentBundle{
		PageCount:  1,
		TextByPage: []string{strings.Repeat("facture ", 100)},
	}
	result := Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_NO_IMAGES")) != 1 {
		t.Errorf("expected IMAGES_NO_IMAGES, got %+v", result.Flags)
	}
}

func TestImageOnlyPDF(t *testing.T) {
	bundle := &types.DocumentBundle{
		PageCount:  1,
		TextByPage: []string{""},
		Images:     []types.ImageDescriptor{{Page: 1, Width: 2480, Height: 3508}},
	}
	result := Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_IMAGE_ONLY_PDF")) != 1 {
		t.Errorf("expected IMAGES_IMAGE_ONLY_PDF, got %+v", result.Flags)
	}

	bundle.TextByPage = []string{strings.Repeat("x", 150)}
	result = Analyze(context.Background(), bundle, nil)
	if len(flagsWithCode(result, "IMAGES_MOSTLY_IMAGE_PDF")) != 1 {
		t.Errorf("expected IMAGES_MOSTLY_IMAGE_PDF, got %+v", result.Flags)
	}
}

// fakeRenderer serves a fixed bitmap for every page.
type fakeRenderer struct{ img image.Image }

func (f fakeRenderer) RenderPage(ctx context.Context, page int, zoomDPI float64) (ports.Bitmap, error) {
	return f.img, nil
}

// noisyPageWithSmoothPatch builds a scanner-like noisy grayscale page
// with one smooth rectangle (the "pasted" region).
func noisyPageWithSmoothPatch(w, h int, patch image.Rectangle) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(12345)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			if image.Pt(x, y).In(patch) {
				v = 200 // flat digital patch
			} else {
				seed = seed*1664525 + 1013904223
				v = uint8(170 + int(seed>>24)%60) // paper noise
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestPasteNoiseAnomaly(t *testing.T) {
	// Page is 100x100 points, rendered at 150 DPI => ~208x208 px.
	// The amount span covers (40,40)-(60,50) points; in pixel space
	// (top-left origin) that is x [83,125], y [104,125]. The smooth
	// patch extends slightly beyond it.
	patch := image.Rect(75, 96, 133, 133)
	bundle := &types.DocumentBundle{
		PageCount: 1,
		PageSizes: []types.PageSize{{W: 100, H: 100}},
		TextSpans: []types.TextSpan{
			{Page: 1, Text: "1 234,56 €", X: 40, Y: 40, W: 20, H: 10},
		},
	}
	renderer := fakeRenderer{img: noisyPageWithSmoothPatch(208, 208, patch)}
	result := Analyze(context.Background(), bundle, renderer)
	if len(flagsWithCode(result, "IMAGES_PASTE_NOISE_ANOMALY")) != 1 {
		t.Fatalf("expected IMAGES_PASTE_NOISE_ANOMALY, got %+v", result.Flags)
	}
}

func TestPasteDetectionSkipsDigitalPages(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 208, 208))
	for y := 0; y < 208; y++ {
		for x := 0; x < 208; x++ {
			flat.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	bundle := &types.DocumentBundle{
		PageCount: 1,
		PageSizes: []types.PageSize{{W: 100, H: 100}},
		TextSpans: []types.TextSpan{
			{Page: 1, Text: "1 234,56 €", X: 40, Y: 40, W: 20, H: 10},
		},
	}
	result := Analyze(context.Background(), bundle, fakeRenderer{img: flat})
	if len(flagsWithCode(result, "IMAGES_PASTE_NOISE_ANOMALY")) != 0 {
		t.Errorf("flat digital page should be skipped, got %+v", result.Flags)
	}
}
