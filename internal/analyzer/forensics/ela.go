// Package forensics implements the forensic image analyzer (C10):
// error-level analysis of embedded raster images, localizing regions
// whose compression history differs from the rest of the image.
package forensics

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"math"

	"github.com/disintegration/imaging"

	"github.com/docforensic/docforensic/pkg/types"
)

const (
	minImageSide = 200
	// Images beyond this pixel count are skipped for the heavy pass;
	// logged, no flag.
	maxImagePixels = 2_000_000

	elaQuality       = 95
	elaAmplification = 20
	minContourArea   = 500

	majorEditRatio = 0.05
	minorEditRatio = 0.03
)

// EmbeddedImage is the forensic module's input: one decoded raster.
type EmbeddedImage struct {
	Page int
	XRef int
	Img  image.Image
}

// Analyze runs error-level analysis over each embedded image. The image
// decoding is supplied by the caller (the orchestrator decodes from the
// bundle's raw bytes) so this module stays a pure function of its input.
func Analyze(images []EmbeddedImage) *types.ModuleResult {
	result := types.NewModuleResult("forensics")

	analyzed := 0
	for _, embedded := range images {
		bounds := embedded.Img.Bounds()
		w, h := bounds.Dx(), bounds.Dy()
		if w < minImageSide || h < minImageSide {
			continue
		}
		if w*h > maxImagePixels {
			log.Printf("[forensics] image %d on page %d is %dx%d, skipping heavy analysis", embedded.XRef, embedded.Page, w, h)
			continue
		}
		analyzed++
		inspectImage(result, embedded)
	}

	if analyzed > 0 {
		result.Confidence = 0.9
	} else {
		result.Confidence = 0.3
	}
	return result
}

// inspectImage re-encodes the image as JPEG at quality 95 and inspects
// the amplified difference. Regions that survive a μ+3σ binarization
// with a meaningful area have a different compression history than the
// image around them.
func inspectImage(result *types.ModuleResult, embedded EmbeddedImage) {
	ela, err := errorLevel(embedded.Img)
	if err != nil {
		log.Printf("[forensics] ELA on image %d page %d: %v", embedded.XRef, embedded.Page, err)
		return
	}

	mean, stddev := meanStddev(ela)
	threshold := mean + 3*stddev
	if threshold > 255 {
		return // nothing can survive binarization; uniform error level
	}

	mask, w, h := binarize(ela, threshold)
	boxes := connectedComponentBoxes(mask, w, h, minContourArea)
	if len(boxes) == 0 {
		return
	}

	bounds := ela.Bounds()
	totalArea := float64(bounds.Dx() * bounds.Dy())
	editedArea := 0.0
	var boxDetails []map[string]interface{}
	for _, b := range boxes {
		editedArea += float64(b.area)
		boxDetails = append(boxDetails, map[string]interface{}{
			"x": b.rect.Min.X, "y": b.rect.Min.Y,
			"w": b.rect.Dx(), "h": b.rect.Dy(),
		})
	}
	ratio := editedArea / totalArea

	details := map[string]interface{}{
		"page":         embedded.Page,
		"xref":         embedded.XRef,
		"edited_ratio": math.Round(ratio*1000) / 1000,
		"regions":      boxDetails,
	}
	switch {
	case ratio > majorEditRatio:
		result.AddFlag(types.NewFlag(types.SeverityHigh, "FORENSICS_ELA_MAJOR_EDIT",
			fmt.Sprintf("Error-level analysis localizes edits over %.1f%% of an embedded image", ratio*100)).
			WithDetails(details))
	case ratio > minorEditRatio:
		result.AddFlag(types.NewFlag(types.SeverityMedium, "FORENSICS_ELA_MINOR_EDIT",
			fmt.Sprintf("Error-level analysis localizes small edited regions (%.1f%%) in an embedded image", ratio*100)).
			WithDetails(details))
	}
}

// errorLevel computes the amplified grayscale JPEG re-encoding
// difference of img.
func errorLevel(img image.Image) (*image.Gray, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: elaQuality}); err != nil {
		return nil, err
	}
	reencoded, err := jpeg.Decode(&buf)
	if err != nil {
		return nil, err
	}

	orig := imaging.Clone(img)
	comp := imaging.Clone(reencoded)
	bounds := orig.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			o := orig.NRGBAAt(x, y)
			c := comp.NRGBAAt(x, y)
			// Per-channel absolute difference, amplified, folded to
			// grayscale by the max channel.
			d := maxDiff(o.R, c.R, o.G, c.G, o.B, c.B) * elaAmplification
			if d > 255 {
				d = 255
			}
			out.Pix[out.PixOffset(x, y)] = uint8(d)
		}
	}
	return out, nil
}

func maxDiff(r1, r2, g1, g2, b1, b2 uint8) int {
	d := absInt(int(r1) - int(r2))
	if g := absInt(int(g1) - int(g2)); g > d {
		d = g
	}
	if b := absInt(int(b1) - int(b2)); b > d {
		d = b
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func meanStddev(img *image.Gray) (float64, float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float64(img.GrayAt(x, y).Y)
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// binarize returns a row-major boolean mask of pixels above threshold,
// along with the mask dimensions.
func binarize(img *image.Gray, threshold float64) ([]bool, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if float64(img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) > threshold {
				mask[y*w+x] = true
			}
		}
	}
	return mask, w, h
}

type componentBox struct {
	rect image.Rectangle
	area int
}

// connectedComponentBoxes labels 4-connected components in the mask and
// returns the bounding boxes of those with area >= minArea, in scan
// order of their first pixel.
func connectedComponentBoxes(mask []bool, w, h, minArea int) []componentBox {
	visited := make([]bool, len(mask))
	var boxes []componentBox
	var stack []int

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		area := 0
		minX, minY := w, h
		maxX, maxY := 0, 0
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
				// Horizontal neighbors must stay on the same row.
				if (next == idx-1 || next == idx+1) && next/w != y {
					continue
				}
				visited[next] = true
				stack = append(stack, next)
			}
		}
		if area >= minArea {
			boxes = append(boxes, componentBox{
				rect: image.Rect(minX, minY, maxX+1, maxY+1),
				area: area,
			})
		}
	}
	return boxes
}
