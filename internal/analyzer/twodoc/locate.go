package twodoc

import (
	"context"
	"image"
	"log"

	"github.com/disintegration/imaging"

	"github.com/docforensic/docforensic/internal/ports"
)

// Two-phase location constants. The pre-filter runs on a cheap low-DPI
// render; the barcode decoder only ever sees candidate quadrants at the
// higher DPI.
const (
	prefilterDPI      = 100.0
	decodeDPI         = 200.0
	prefilterThreshold = 80

	candidateMinSide = 60
	candidateMaxSide = 300
	candidateMinAspect = 0.6
	candidateMaxAspect = 1.7
	candidateMinDensity = 0.25
	candidateMaxDensity = 0.70
)

// quadrant identifies a region of page 1 worth decoding. 2D-DOC
// barcodes sit in the top half of the first page, so only the top-left
// and top-right quadrants are ever examined.
type quadrant int

const (
	topLeft quadrant = iota
	topRight
)

// locate runs the two-phase filter and returns the decoded payloads of
// the first quadrant that yields any, in decode order. An empty slice
// means no DataMatrix was found; that is not an error.
func locate(ctx context.Context, renderer ports.PageRenderer, decoder ports.DataMatrixDecoder) []string {
	low, err := renderer.RenderPage(ctx, 1, prefilterDPI)
	if err != nil {
		log.Printf("[2ddoc] prefilter render: %v", err)
		return nil
	}
	quadrants := candidateQuadrants(low)
	if len(quadrants) == 0 {
		return nil
	}

	high, err := renderer.RenderPage(ctx, 1, decodeDPI)
	if err != nil {
		log.Printf("[2ddoc] decode render: %v", err)
		return nil
	}
	bounds := high.Bounds()
	for _, q := range quadrants {
		crop := quadrantRect(q, bounds)
		region := imaging.Crop(high, crop)
		candidates, err := decoder.DecodeDataMatrix(ctx, region)
		if err != nil {
			log.Printf("[2ddoc] decode %v: %v", q, err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		var payloads []string
		for _, c := range candidates {
			payloads = append(payloads, string(c.Payload))
		}
		return payloads
	}
	return nil
}

// candidateQuadrants thresholds the low-DPI render and looks for
// square-ish, mid-density blobs of barcode size in the top quadrants.
func candidateQuadrants(bmp ports.Bitmap) []quadrant {
	gray := imaging.Grayscale(bmp)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Dark-pixel mask over the top half only.
	topH := h / 2
	mask := make([]bool, w*topH)
	for y := 0; y < topH; y++ {
		for x := 0; x < w; x++ {
			if gray.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R < prefilterThreshold {
				mask[y*w+x] = true
			}
		}
	}

	var out []quadrant
	seen := map[quadrant]bool{}
	for _, blob := range maskComponents(mask, w, topH) {
		side := blob.rect.Dx()
		if blob.rect.Dy() > side {
			side = blob.rect.Dy()
		}
		if side < candidateMinSide || side > candidateMaxSide {
			continue
		}
		aspect := float64(blob.rect.Dx()) / float64(blob.rect.Dy())
		if aspect < candidateMinAspect || aspect > candidateMaxAspect {
			continue
		}
		density := float64(blob.area) / float64(blob.rect.Dx()*blob.rect.Dy())
		if density < candidateMinDensity || density > candidateMaxDensity {
			continue
		}
		q := topLeft
		if blob.rect.Min.X+blob.rect.Dx()/2 >= w/2 {
			q = topRight
		}
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// quadrantRect maps a quadrant to its pixel rectangle in the high-DPI
// render.
func quadrantRect(q quadrant, bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	switch q {
	case topRight:
		return image.Rect(bounds.Min.X+w/2, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+h/2)
	default:
		return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+w/2, bounds.Min.Y+h/2)
	}
}

type maskBlob struct {
	rect image.Rectangle
	area int
}

// maskComponents labels 4-connected dark blobs; bounding boxes stand in
// for external contours.
func maskComponents(mask []bool, w, h int) []maskBlob {
	visited := make([]bool, len(mask))
	var blobs []maskBlob
	var stack []int
	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		area := 0
		minX, minY, maxX, maxY := w, h, 0, 0
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			area++
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
			for _, next := range [4]int{idx - 1, idx + 1, idx - w, idx + w} {
				if next < 0 || next >= len(mask) || visited[next] || !mask[next] {
					continue
				}
				if (next == idx-1 || next == idx+1) && next/w != y {
					continue
				}
				visited[next] = true
				stack = append(stack, next)
			}
		}
		blobs = append(blobs, maskBlob{rect: image.Rect(minX, minY, maxX+1, maxY+1), area: area})
	}
	return blobs
}
