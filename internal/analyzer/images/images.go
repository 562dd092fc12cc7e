// Package images implements the image analyzer (C7): embedded-image
// descriptor checks (screenshots, resolution coherence, compression,
// page coverage) and render-based paste detection around monetary
// amounts.
package images

import (
	"context"
	"fmt"

	"github.com/docforensic/docforensic/internal/ports"
	"github.com/docforensic/docforensic/pkg/types"
)

// knownScreenResolutions are common desktop and phone screen sizes; an
// embedded image matching one (±50 px, either orientation) was very
// likely captured from a screen rather than scanned or generated.
var knownScreenResolutions = [][2]int{
	{1920, 1080}, {1366, 768}, {2560, 1440}, {1280, 720}, {1440, 900},
	{1536, 864}, {3840, 2160}, {1680, 1050}, {1600, 900}, {1024, 768},
	{750, 1334}, {828, 1792}, {1080, 1920}, {1125, 2436}, {1242, 2688},
	{1170, 2532}, {1179, 2556}, {1290, 2796},
}

const screenResolutionTolerance = 50

// Analyze runs the descriptor checks over bundle.Images, then (when a
// renderer is wired) the amount-region paste detection. renderer may be
// nil; paste detection is simply skipped.
func Analyze(ctx context.Context, bundle *types.DocumentBundle, renderer ports.PageRenderer) *types.ModuleResult {
	result := types.NewModuleResult("images")

	checkScreenshots(result, bundle.Images)
	checkResolutionCoherence(result, bundle.Images)
	checkCompression(result, bundle.Images)
	checkCounts(result, bundle)
	checkPageCoverage(result, bundle)

	if renderer != nil {
		detectPastedAmounts(ctx, result, bundle, renderer)
	}

	if len(bundle.Images) == 0 {
		result.Confidence = 0.5
	} else {
		result.Confidence = 0.8
	}
	return result
}

func nearScreenResolution(w, h int) (string, bool) {
	for _, res := range knownScreenResolutions {
		for _, dims := range [][2]int{{w, h}, {h, w}} {
			if abs(dims[0]-res[0]) <= screenResolutionTolerance &&
				abs(dims[1]-res[1]) <= screenResolutionTolerance {
				return fmt.Sprintf("%dx%d", res[0], res[1]), true
			}
		}
	}
	return "", false
}

func checkScreenshots(result *types.ModuleResult, images []types.ImageDescriptor) {
	for _, img := range images {
		if res, ok := nearScreenResolution(img.Width, img.Height); ok {
			result.AddFlag(types.NewFlag(types.SeverityHigh, "IMAGES_SCREENSHOT_DETECTED",
				fmt.Sprintf("Embedded image matches screen resolution %s", res)).
				WithDetails(map[string]interface{}{
					"page": img.Page, "width": img.Width, "height": img.Height, "resolution": res,
				}))
			return // one flag regardless of how many screenshots
		}
	}
}

// checkResolutionCoherence flags a document mixing very different image
// DPIs; a pasted-in region rarely matches the source scan's resolution.
func checkResolutionCoherence(result *types.ModuleResult, images []types.ImageDescriptor) {
	minDPI, maxDPI := 0.0, 0.0
	for _, img := range images {
		dpi := (img.DPIX + img.DPIY) / 2
		if dpi <= 10 {
			continue
		}
		if minDPI == 0 || dpi < minDPI {
			minDPI = dpi
		}
		if dpi > maxDPI {
			maxDPI = dpi
		}
	}
	if minDPI > 0 && maxDPI > 2.5*minDPI {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "IMAGES_RESOLUTION_MISMATCH",
			"Embedded images span widely different resolutions").
			WithDetails(map[string]interface{}{"min_dpi": round1(minDPI), "max_dpi": round1(maxDPI)}))
	}
}

// checkCompression flags JPEGs compressed far beyond what scanners and
// generators produce; extreme ratios usually mean repeated re-saving.
func checkCompression(result *types.ModuleResult, images []types.ImageDescriptor) {
	for _, img := range images {
		if img.Filter != "DCTDecode" || img.ByteSize <= 0 {
			continue
		}
		uncompressed := int64(img.Width) * int64(img.Height) * 3
		if uncompressed/img.ByteSize > 50 {
			result.AddFlag(types.NewFlag(types.SeverityMedium, "IMAGES_HEAVY_COMPRESSION",
				"An embedded JPEG is compressed beyond plausible single-pass ratios").
				WithDetails(map[string]interface{}{
					"page": img.Page, "xref": img.XRef,
					"ratio": uncompressed / img.ByteSize,
				}))
			return
		}
	}
}

func checkCounts(result *types.ModuleResult, bundle *types.DocumentBundle) {
	if bundle.PageCount == 0 {
		return
	}
	perPage := float64(len(bundle.Images)) / float64(bundle.PageCount)
	if perPage > 15 {
		result.AddFlag(types.NewFlag(types.SeverityMedium, "IMAGES_EXCESSIVE_COUNT",
			fmt.Sprintf("Document averages %.0f images per page", perPage)).
			WithDetails(map[string]interface{}{"images": len(bundle.Images), "pages": bundle.PageCount}))
	}
	if len(bundle.Images) == 0 && totalTextLen(bundle) > 500 {
		result.AddFlag(types.NewFlag(types.SeverityLow, "IMAGES_NO_IMAGES",
			"Text-heavy document carries no images at all (no logo, no signature)"))
	}
}

// checkPageCoverage detects image-only documents: pages dominated by a
// full-page raster with little or no text layer behind it.
func checkPageCoverage(result *types.ModuleResult, bundle *types.DocumentBundle) {
	if bundle.PageCount == 0 {
		return
	}
	fullPageImagePages := map[int]bool{}
	for _, img := range bundle.Images {
		if img.Width > 500 && img.Height > 700 {
			fullPageImagePages[img.Page] = true
		}
	}
	coverage := float64(len(fullPageImagePages)) / float64(bundle.PageCount)
	if coverage < 0.8 {
		return
	}
	charsPerPage := float64(totalTextLen(bundle)) / float64(bundle.PageCount)
	switch {
	case charsPerPage < 50:
		result.AddFlag(types.NewFlag(types.SeverityHigh, "IMAGES_IMAGE_ONLY_PDF",
			"Document is essentially a picture: full-page images with no text layer").
			WithDetails(map[string]interface{}{"coverage": round1(coverage * 100), "chars_per_page": round1(charsPerPage)}))
	case charsPerPage < 200:
		result.AddFlag(types.NewFlag(types.SeverityMedium, "IMAGES_MOSTLY_IMAGE_PDF",
			"Document is mostly full-page images with a thin text layer").
			WithDetails(map[string]interface{}{"coverage": round1(coverage * 100), "chars_per_page": round1(charsPerPage)}))
	}
}

func totalTextLen(bundle *types.DocumentBundle) int {
	n := 0
	for _, t := range bundle.TextByPage {
		n += len(t)
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
