package images

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"regexp"

	"github.com/disintegration/imaging"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

const (
	pasteRenderDPI = 150.0
	// A page whose high-frequency noise variance falls below this is a
	// purely digital rendering; there is no scanner noise to compare a
	// pasted region against, so detection is skipped.
	digitalPageVariance = 1.0
	neighborhoodMinVar  = 2.0
	regionVarRatio      = 4.0
)

// amountSpanRe marks a text span as amount-bearing: digits with a
// decimal part next to a currency symbol.
var amountSpanRe = regexp.MustCompile(`(?:[€$£]\s*[0-9][0-9 .,]*|[0-9][0-9 .,]*[0-9][,.][0-9]{2}\s*[€$£])`)

// detectPastedAmounts renders each page carrying amount spans to
// grayscale, builds a high-frequency noise layer (original minus 5×5
// Gaussian blur), and compares noise variance inside each amount's
// bounding box against its padded neighborhood. A pasted amount sits on
// a patch whose noise history differs from the paper around it.
func detectPastedAmounts(ctx context.Context, result *types.ModuleResult, bundle *types.DocumentBundle, renderer ports.PageRenderer) {
	regionsByPage := amountRegions(bundle)
	for page := 1; page <= bundle.PageCount; page++ {
		regions := regionsByPage[page]
		if len(regions) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		bmp, err := renderer.RenderPage(ctx, page, pasteRenderDPI)
		if err != nil {
			log.Printf("[images] render page %d: %v", page, err)
			continue
		}
		inspectPageNoise(result, bundle, page, bmp, regions)
		// bmp goes out of scope here; each rasterization is freed before
		// the next page renders.
	}
}

// amountRegions collects the page-point bounding boxes of amount-bearing
// text spans, keyed by page.
func amountRegions(bundle *types.DocumentBundle) map[int][]types.TextSpan {
	out := map[int][]types.TextSpan{}
	for _, s := range bundle.TextSpans {
		if amountSpanRe.MatchString(s.Text) && s.W > 0 && s.H > 0 {
			out[s.Page] = append(out[s.Page], s)
		}
	}
	return out
}

func inspectPageNoise(result *types.ModuleResult, bundle *types.DocumentBundle, page int, bmp ports.Bitmap, regions []types.TextSpan) {
	gray := imaging.Grayscale(bmp)
	blurred := imaging.Blur(gray, 1.0) // ≈5×5 Gaussian kernel
	noise := absDiff(gray, blurred)

	bounds := noise.Bounds()
	pageVar := variance(noise, bounds)
	if pageVar < digitalPageVariance {
		return // purely digital page, no signal exists
	}

	pageH := 842.0
	if page-1 < len(bundle.PageSizes) {
		pageH = bundle.PageSizes[page-1].H
	}
	scale := pasteRenderDPI / 72.0

	for _, span := range regions {
		region := spanToPixels(span, pageH, scale, bounds)
		if region.Empty() {
			continue
		}
		pad := max(region.Dx(), region.Dy())
		neighborhood := image.Rect(region.Min.X-pad, region.Min.Y-pad, region.Max.X+pad, region.Max.Y+pad).Intersect(bounds)

		regionVar := variance(noise, region)
		neighborVar := variance(noise, neighborhood)
		if neighborVar > neighborhoodMinVar && regionVar < neighborVar/regionVarRatio {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "IMAGES_PASTE_NOISE_ANOMALY",
				fmt.Sprintf("Amount %q sits on a patch with different noise history than its surroundings", span.Text)).
				WithDetails(map[string]interface{}{
					"page":                  page,
					"text":                  span.Text,
					"region_variance":       round1(regionVar),
					"neighborhood_variance": round1(neighborVar),
				}))
		}
	}
}

// spanToPixels converts a span's PDF-point box (bottom-left origin) to
// the bitmap's pixel space (top-left origin), clamped to the bitmap.
func spanToPixels(span types.TextSpan, pageH, scale float64, bounds image.Rectangle) image.Rectangle {
	x0 := int(span.X * scale)
	y0 := int((pageH - span.Y - span.H) * scale)
	x1 := int((span.X + span.W) * scale)
	y1 := int((pageH - span.Y) * scale)
	return image.Rect(x0, y0, x1, y1).Intersect(bounds)
}

// absDiff builds the per-pixel absolute difference of two equally sized
// grayscale images, reading the red channel (identical to green/blue
// after Grayscale).
func absDiff(a, b *image.NRGBA) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			av := a.NRGBAAt(x, y).R
			bv := b.NRGBAAt(x, y).R
			d := int(av) - int(bv)
			if d < 0 {
				d = -d
			}
			out.SetGray(x, y, color.Gray{Y: uint8(d)})
		}
	}
	return out
}

// variance computes pixel-value variance over rect of a grayscale image.
func variance(img *image.Gray, rect image.Rectangle) float64 {
	n := rect.Dx() * rect.Dy()
	if n == 0 {
		return 0
	}
	var sum, sumSq float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			v := float64(img.GrayAt(x, y).Y)
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
