package extract

import (
	"bytes"
	"image"
	"log"

	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/model"
)

// DecodedImage is one embedded raster image decoded to pixels.
type DecodedImage struct {
	Page int
	XRef int
	Img  image.Image
}

// DecodeImages decodes every embedded raster image in the container to
// a Go image, for the forensic analyzer. It operates on the already-read
// container bytes so the file itself is not opened again. Images the
// codec cannot decode are skipped with a debug log.
func DecodeImages(raw []byte) []DecodedImage {
	reader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil
	}

	var out []DecodedImage
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		resources := page.Resources
		if resources == nil {
			continue
		}
		xobjDict, found := core.GetDict(core.TraceToDirectObject(resources.XObject))
		if !found || xobjDict == nil {
			continue
		}
		for _, key := range xobjDict.Keys() {
			stream, ok := core.GetStream(xobjDict.Get(key))
			if !ok {
				continue
			}
			ximg, err := model.NewXObjectImageFromStream(stream)
			if err != nil || ximg == nil {
				continue
			}
			img, err := ximg.ToImage()
			if err != nil {
				log.Printf("[extract] decode image %s page %d: %v", key, i, err)
				continue
			}
			goImg, err := img.ToGoImage()
			if err != nil {
				log.Printf("[extract] convert image %s page %d: %v", key, i, err)
				continue
			}
			out = append(out, DecodedImage{
				Page: i,
				XRef: int(stream.ObjectNumber),
				Img:  goImg,
			})
		}
	}
	return out
}
