// Package extract implements the primitive extractors (C1): opening the
// container, hashing its bytes, and pulling out the metadata, per-page
// text, font records, image descriptors, and structural primitives every
// analyzer module consumes via a types.DocumentBundle.
//
// Parsing uses github.com/unidoc/unipdf/v3 for PDF object-model access,
// the pack's only real PDF library (grounded on the extractor/text_test.go
// and model/font_test.go files retrieved alongside this spec).
package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/docforensic/docforensic/pkg/types"
)

// InvalidContainerError is returned when the file is missing, unreadable,
// or the container magic/cross-reference table cannot be parsed. Hash
// still identifies the file when its bytes were readable, so corrupt
// uploads can be reported by content hash.
type InvalidContainerError struct {
	Path string
	Hash string
	Err  error
}

func (e *InvalidContainerError) Error() string {
	return fmt.Sprintf("extract: invalid container %s: %v", e.Path, e.Err)
}

func (e *InvalidContainerError) Unwrap() error { return e.Err }

const hashChunkSize = 8192

// hashFile computes the SHA-256 content hash by feeding the file to the
// hasher in fixed-size chunks as it is read. The bytes read are also
// kept, and returned whole, as the bundle's raw container bytes.
func hashFile(path string) (string, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	h := sha256.New()
	var raw bytes.Buffer
	buf := make([]byte, hashChunkSize)
	tee := io.TeeReader(f, &raw)
	for {
		n, rerr := tee.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", nil, rerr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), raw.Bytes(), nil
}

// Load opens path, computes its content hash independently of parsing
// success, and extracts every primitive a downstream module needs. On a
// container the PDF parser cannot open at all, the hash is still returned
// alongside an InvalidContainerError so the caller can still identify the
// file; all other malformed-data conditions degrade to absent fields
// rather than aborting extraction.
func Load(path string) (*types.DocumentBundle, error) {
	hash, raw, err := hashFile(path)
	if err != nil {
		return nil, &InvalidContainerError{Path: path, Err: err}
	}

	bundle := &types.DocumentBundle{
		FilePath:    path,
		ContentHash: hash,
		RawBytes:    raw,
		RawMetadata: map[string]string{},
	}

	reader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return bundle, &InvalidContainerError{Path: path, Hash: hash, Err: err}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return bundle, &InvalidContainerError{Path: path, Hash: hash, Err: err}
	}
	bundle.PageCount = numPages

	extractMetadata(reader, bundle)
	extractPagesAndFonts(reader, bundle)
	extractStructure(reader, bundle)

	return bundle, nil
}

// extractMetadata fills Metadata and RawMetadata from the document info
// dictionary. Any individual field that cannot be read is simply left
// absent rather than failing the whole extraction.
func extractMetadata(reader *model.PdfReader, bundle *types.DocumentBundle) {
	info, err := reader.GetPdfInfo()
	if err != nil || info == nil {
		return
	}

	set := func(key string, val *core.PdfObjectString) string {
		if val == nil {
			return ""
		}
		s := strings.TrimSpace(val.Decoded())
		if s != "" {
			bundle.RawMetadata[key] = s
		}
		return s
	}

	bundle.Metadata.Producer = set("Producer", info.Producer)
	bundle.Metadata.Creator = set("Creator", info.Creator)
	bundle.Metadata.Author = set("Author", info.Author)
	bundle.Metadata.Title = set("Title", info.Title)
	bundle.Metadata.Subject = set("Subject", info.Subject)
	bundle.Metadata.Keywords = set("Keywords", info.Keywords)

	if info.CreationDate != nil {
		t := info.CreationDate.ToGoTime()
		bundle.Metadata.CreationInstant = &t
		bundle.RawMetadata["CreationDate"] = t.Format(time.RFC3339)
	}
	if info.ModifiedDate != nil {
		t := info.ModifiedDate.ToGoTime()
		bundle.Metadata.ModificationInstant = &t
		bundle.RawMetadata["ModDate"] = t.Format(time.RFC3339)
	}

	collectRawInfoKeys(reader, bundle)
}

// collectRawInfoKeys walks the trailer's Info dictionary verbatim so
// RawMetadata is a superset of the structured view, including custom
// keys the recognized-field extraction ignores.
func collectRawInfoKeys(reader *model.PdfReader, bundle *types.DocumentBundle) {
	trailer, err := reader.GetTrailer()
	if err != nil || trailer == nil {
		return
	}
	infoDict, ok := core.GetDict(core.TraceToDirectObject(trailer.Get("Info")))
	if !ok {
		return
	}
	for _, key := range infoDict.Keys() {
		name := string(key)
		if _, present := bundle.RawMetadata[name]; present {
			continue
		}
		if val, ok := core.GetStringVal(core.TraceToDirectObject(infoDict.Get(key))); ok && val != "" {
			bundle.RawMetadata[name] = val
		}
	}
}

// extractPagesAndFonts walks every page, extracting its text layer, font
// records, images, and annotations. A page that cannot be parsed yields
// empty text and no fonts/images for that page rather than aborting.
func extractPagesAndFonts(reader *model.PdfReader, bundle *types.DocumentBundle) {
	fontIndex := map[string]*types.FontRecord{}
	bundle.TextByPage = make([]string, bundle.PageCount)
	bundle.PageSizes = make([]types.PageSize, bundle.PageCount)

	for i := 1; i <= bundle.PageCount; i++ {
		bundle.PageSizes[i-1] = types.PageSize{W: 595, H: 842} // A4 fallback
		page, err := reader.GetPage(i)
		if err != nil {
			log.Printf("[extract] page %d: %v", i, err)
			continue
		}
		if mbox, err := page.GetMediaBox(); err == nil && mbox != nil {
			if w, h := mbox.Urx-mbox.Llx, mbox.Ury-mbox.Lly; w > 0 && h > 0 {
				bundle.PageSizes[i-1] = types.PageSize{W: w, H: h}
			}
		}

		if text, spans, err := extractPageText(page, i); err == nil {
			bundle.TextByPage[i-1] = text
			bundle.TextSpans = append(bundle.TextSpans, spans...)
		} else {
			log.Printf("[extract] page %d text: %v", i, err)
		}

		collectPageFonts(page, i, fontIndex)
		collectPageImages(page, i, bundle)
		collectPageAnnotations(page, i, bundle)
	}

	for _, rec := range fontIndex {
		bundle.Fonts = append(bundle.Fonts, *rec)
	}
}

func extractPageText(page *model.PdfPage, pageNum int) (string, []types.TextSpan, error) {
	ex, err := extractor.New(page)
	if err != nil {
		return "", nil, err
	}
	pageText, _, _, err := ex.ExtractPageText()
	if err != nil {
		return "", nil, err
	}
	return pageText.Text(), buildSpans(pageText.Marks().Elements(), pageNum), nil
}

// buildSpans merges consecutive text marks drawn with the same font on
// the same baseline into spans, so layout-aware checks (mid-line font
// switches, amount-region location) see words rather than glyphs.
func buildSpans(marks []extractor.TextMark, pageNum int) []types.TextSpan {
	const baselineTolerance = 1.0 // points

	var spans []types.TextSpan
	var cur *types.TextSpan
	for _, m := range marks {
		if m.Meta || strings.TrimSpace(m.Text) == "" && cur == nil {
			continue
		}
		fontName := ""
		if m.Font != nil {
			fontName = m.Font.BaseFont()
		}
		sameLine := cur != nil && fontName == cur.FontName &&
			m.BBox.Lly > cur.Y-baselineTolerance && m.BBox.Lly < cur.Y+baselineTolerance
		if sameLine {
			cur.Text += m.Text
			if m.BBox.Urx > cur.X+cur.W {
				cur.W = m.BBox.Urx - cur.X
			}
			if m.BBox.Ury-m.BBox.Lly > cur.H {
				cur.H = m.BBox.Ury - m.BBox.Lly
			}
			continue
		}
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			spans = append(spans, *cur)
		}
		cur = &types.TextSpan{
			Page:     pageNum,
			Text:     m.Text,
			FontName: fontName,
			X:        m.BBox.Llx,
			Y:        m.BBox.Lly,
			W:        m.BBox.Urx - m.BBox.Llx,
			H:        m.BBox.Ury - m.BBox.Lly,
		}
	}
	if cur != nil && strings.TrimSpace(cur.Text) != "" {
		spans = append(spans, *cur)
	}
	return spans
}

// isSubsetPrefix reports whether name begins with exactly six uppercase
// Latin letters followed by '+' — the PDF subset-font naming convention
// (e.g. "AOMFKK+Helvetica").
var subsetPrefixRe = regexp.MustCompile(`^[A-Z]{6}\+`)

func isSubsetPrefix(name string) bool {
	return subsetPrefixRe.MatchString(name)
}

func collectPageFonts(page *model.PdfPage, pageNum int, index map[string]*types.FontRecord) {
	resources := page.Resources
	if resources == nil {
		return
	}
	fontDict, found := core.GetDict(core.TraceToDirectObject(resources.Font))
	if !found || fontDict == nil {
		return
	}
	for _, key := range fontDict.Keys() {
		obj := fontDict.Get(key)
		fontObj, err := model.NewPdfFontFromPdfObject(obj)
		name := string(key)
		embedded := false
		if err == nil && fontObj != nil {
			if base := fontObj.BaseFont(); base != "" {
				name = base
			}
			if desc := fontObj.FontDescriptor(); desc != nil {
				embedded = desc.FontFile != nil || desc.FontFile2 != nil || desc.FontFile3 != nil
			}
		}
		rec, ok := index[name]
		if !ok {
			rec = &types.FontRecord{
				Name:       name,
				IsSubset:   isSubsetPrefix(name),
				IsEmbedded: embedded,
			}
			index[name] = rec
		}
		rec.UsageCount++
		rec.PagesUsed = appendUniquePage(rec.PagesUsed, pageNum)
	}
}

func appendUniquePage(pages []int, p int) []int {
	for _, existing := range pages {
		if existing == p {
			return pages
		}
	}
	return append(pages, p)
}

func collectPageImages(page *model.PdfPage, pageNum int, bundle *types.DocumentBundle) {
	resources := page.Resources
	if resources == nil {
		return
	}
	xobjDict, found := core.GetDict(core.TraceToDirectObject(resources.XObject))
	if !found || xobjDict == nil {
		return
	}
	// Placement size defaults to the page box. Without walking the
	// content stream the true CTM is unknown; a full-page placement is
	// the common case for scanned/flattened invoices and gives a usable
	// DPI estimate for the resolution checks.
	pageW, pageH := 595.0, 842.0 // A4 points fallback
	if mbox, err := page.GetMediaBox(); err == nil && mbox != nil {
		if w := mbox.Urx - mbox.Llx; w > 0 {
			pageW = w
		}
		if h := mbox.Ury - mbox.Lly; h > 0 {
			pageH = h
		}
	}
	for _, key := range xobjDict.Keys() {
		stream, ok := core.GetStream(xobjDict.Get(key))
		if !ok {
			continue
		}
		img, err := model.NewXObjectImageFromStream(stream)
		if err != nil || img == nil {
			continue
		}
		desc := types.ImageDescriptor{
			XRef:     int(stream.ObjectNumber),
			Page:     pageNum,
			ByteSize: int64(len(stream.Stream)),
		}
		if img.Width != nil {
			desc.Width = int(*img.Width)
		}
		if img.Height != nil {
			desc.Height = int(*img.Height)
		}
		if img.BitsPerComponent != nil {
			desc.BitsPerComponent = int(*img.BitsPerComponent)
		}
		if img.ColorSpace != nil {
			desc.Colorspace = img.ColorSpace.String()
		}
		if img.Filter != nil {
			desc.Filter = img.Filter.GetFilterName()
		}
		desc.PlacementW = pageW
		desc.PlacementH = pageH
		if pageW > 0 {
			desc.DPIX = float64(desc.Width) * 72.0 / pageW
		}
		if pageH > 0 {
			desc.DPIY = float64(desc.Height) * 72.0 / pageH
		}
		bundle.Images = append(bundle.Images, desc)
	}
}

func collectPageAnnotations(page *model.PdfPage, pageNum int, bundle *types.DocumentBundle) {
	annots, err := page.GetAnnotations()
	if err != nil {
		return
	}
	for _, a := range annots {
		dict, ok := core.GetDict(core.TraceToDirectObject(a.GetContainingPdfObject()))
		if !ok {
			continue
		}
		subtype, _ := core.GetNameVal(dict.Get("Subtype"))
		opacity := 1.0
		if ca, err := core.GetNumberAsFloat(core.TraceToDirectObject(dict.Get("CA"))); err == nil {
			opacity = ca
		}
		bundle.Annotations = append(bundle.Annotations, types.Annotation{
			Page:    pageNum,
			Subtype: subtype,
			Opacity: opacity,
		})
	}
}
