package extract

import (
	"regexp"

	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/docforensic/docforensic/pkg/types"
)

// extractStructure reads the document catalog for the primitives the
// structure analyzer (C9) and font/metadata cross-checks need: JavaScript
// actions, embedded files, AcroForm presence, the XMP toolkit string, a
// declared signature, and the freed-object count. Every lookup degrades
// to its zero value on failure; structure extraction never aborts the
// rest of C1.
func extractStructure(reader *model.PdfReader, bundle *types.DocumentBundle) {
	catalog, err := catalogDict(reader)
	if err != nil || catalog == nil {
		return
	}

	bundle.HasJavaScript = catalogHasJavaScript(catalog)
	bundle.EmbeddedFiles = catalogEmbeddedFiles(catalog)
	bundle.HasAcroForm = catalogHasAcroForm(catalog)
	bundle.XMPToolkit = catalogXMPToolkit(catalog)
	bundle.Signature = catalogSignature(catalog)
	bundle.FreedObjectCount = countFreedObjects(reader)
}

func catalogDict(reader *model.PdfReader) (*core.PdfObjectDictionary, error) {
	trailer, err := reader.GetTrailer()
	if err != nil || trailer == nil {
		return nil, err
	}
	return resolveDict(trailer.Get("Root")), nil
}

func resolveDict(obj core.PdfObject) *core.PdfObjectDictionary {
	if obj == nil {
		return nil
	}
	obj = core.TraceToDirectObject(obj)
	if d, ok := core.GetDict(obj); ok {
		return d
	}
	return nil
}

// catalogHasJavaScript reports whether the catalog's /Names dictionary
// carries a JavaScript name tree. Only that catalog-level tree is
// checked; JavaScript actions attached to annotations are not examined
// here or anywhere else.
func catalogHasJavaScript(catalog *core.PdfObjectDictionary) bool {
	names := resolveDict(catalog.Get("Names"))
	if names == nil {
		return false
	}
	return names.Get("JavaScript") != nil
}

func catalogEmbeddedFiles(catalog *core.PdfObjectDictionary) []string {
	names := resolveDict(catalog.Get("Names"))
	if names == nil {
		return nil
	}
	ef := resolveDict(names.Get("EmbeddedFiles"))
	if ef == nil {
		return nil
	}
	namesArr, ok := core.GetArray(core.TraceToDirectObject(ef.Get("Names")))
	if !ok {
		return nil
	}
	var files []string
	// The Names array alternates name-string, file-spec-reference.
	for i := 0; i < namesArr.Len(); i += 2 {
		if s, ok := core.GetString(namesArr.Get(i)); ok {
			files = append(files, s.Str())
		}
	}
	return files
}

func catalogHasAcroForm(catalog *core.PdfObjectDictionary) bool {
	form := resolveDict(catalog.Get("AcroForm"))
	if form == nil {
		return false
	}
	fields, ok := core.GetArray(core.TraceToDirectObject(form.Get("Fields")))
	return ok && fields.Len() > 0
}

func catalogXMPToolkit(catalog *core.PdfObjectDictionary) string {
	metadataStream, ok := core.GetStream(catalog.Get("Metadata"))
	if !ok || metadataStream == nil {
		return ""
	}
	data, err := core.DecodeStream(metadataStream)
	if err != nil {
		return ""
	}
	m := xmpToolkitRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return string(m[1])
}

var xmpToolkitRe = regexp.MustCompile(`x:xmptk=["']([^"']+)["']`)

// catalogSignature reports the first signature found in the document's
// AcroForm fields, if any. A full cryptographic verification is out of
// scope for extraction (that's the structure analyzer's job against a
// trust store); here we only surface the signer name (/Name), signing
// date, sub-filter, raw Contents blob and ByteRange end so C9 can
// classify the result.
func catalogSignature(catalog *core.PdfObjectDictionary) *types.SignatureRecord {
	form := resolveDict(catalog.Get("AcroForm"))
	if form == nil {
		return nil
	}
	fields, ok := core.GetArray(core.TraceToDirectObject(form.Get("Fields")))
	if !ok {
		return nil
	}
	for i := 0; i < fields.Len(); i++ {
		field := resolveDict(fields.Get(i))
		if field == nil {
			continue
		}
		ft, _ := core.GetNameVal(field.Get("FT"))
		if ft != "Sig" {
			continue
		}
		sigDict := resolveDict(field.Get("V"))
		if sigDict == nil {
			continue
		}
		rec := &types.SignatureRecord{}
		if name, ok := core.GetStringVal(sigDict.Get("Name")); ok {
			rec.SignerDN = name
		}
		if t, err := ParsePDFDate(stringVal(sigDict.Get("M"))); err == nil {
			rec.SignedAt = t
		}
		if sf, ok := core.GetNameVal(sigDict.Get("SubFilter")); ok {
			rec.SubFilter = sf
		}
		if contents, ok := core.GetString(core.TraceToDirectObject(sigDict.Get("Contents"))); ok {
			rec.Contents = contents.Bytes()
		}
		if br, ok := core.GetArray(core.TraceToDirectObject(sigDict.Get("ByteRange"))); ok && br.Len() >= 4 {
			// ByteRange is [off0 len0 off1 len1]; the signature covers up
			// to off1+len1.
			off, okOff := core.GetIntVal(br.Get(2))
			length, okLen := core.GetIntVal(br.Get(3))
			if okOff && okLen {
				rec.ByteRangeEnd = int64(off) + int64(length)
			}
		}
		return rec
	}
	return nil
}

func stringVal(obj core.PdfObject) string {
	if s, ok := core.GetStringVal(obj); ok {
		return s
	}
	return ""
}

// countFreedObjects estimates the number of freed objects as the highest
// live object number minus the count of live objects, the "deleted
// objects" signal structure checks against a threshold. Free ('f')
// cross-reference entries are not read directly.
func countFreedObjects(reader *model.PdfReader) int {
	ids := reader.GetObjectNums()
	// unipdf's public API surfaces only live object numbers; the gap
	// between the highest numbered object and the count of live objects
	// approximates the freed-object population without needing direct
	// xref-table access.
	if len(ids) == 0 {
		return 0
	}
	maxID := 0
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	freed := maxID - len(ids)
	if freed < 0 {
		return 0
	}
	return freed
}
