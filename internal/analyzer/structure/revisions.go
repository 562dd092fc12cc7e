package structure

import (
	"bytes"
	"log"
	"sort"
	"strings"

	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// RevisionDiff summarizes what one incremental generation changed
// relative to the previous one. It is reported inside the
// incremental-updates flag's details for UI consumption, not as its own
// flag.
type RevisionDiff struct {
	Generation   int                 `json:"generation"` // 1-based, 2 = first incremental save
	AddedLines   map[int][]string    `json:"added_lines,omitempty"`
	RemovedLines map[int][]string    `json:"removed_lines,omitempty"`
	ObjectKinds  map[string]int      `json:"object_kinds,omitempty"`
}

const maxDiffLinesPerPage = 10

// diffRevisions re-parses the document at each generation boundary and
// computes per-page line-level text diffs plus a per-revision census of
// the kinds of objects the revision added (see diffObjects; objects it
// rewrote under an existing number are not counted). Generations the parser cannot
// open (a truncated prefix is not always a valid document) are skipped.
func diffRevisions(raw []byte, ends []int64) []RevisionDiff {
	if len(ends) < 2 {
		return nil
	}

	gens := make([]*generation, 0, len(ends))
	for _, end := range ends {
		g, err := parseGeneration(raw[:end])
		if err != nil {
			log.Printf("[structure] generation at %d: %v", end, err)
			gens = append(gens, nil)
			continue
		}
		gens = append(gens, g)
	}

	var diffs []RevisionDiff
	for i := 1; i < len(gens); i++ {
		prev, cur := gens[i-1], gens[i]
		if prev == nil || cur == nil {
			continue
		}
		diff := RevisionDiff{Generation: i + 1}
		diff.AddedLines, diff.RemovedLines = diffPages(prev.pages, cur.pages)
		diff.ObjectKinds = diffObjects(prev.objects, cur.objects)
		diffs = append(diffs, diff)
	}
	return diffs
}

func parseGeneration(prefix []byte) (*generation, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(prefix))
	if err != nil {
		return nil, err
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, err
	}
	g := &generation{objects: map[int]string{}}
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			g.pages = append(g.pages, "")
			continue
		}
		text := ""
		if ex, err := extractor.New(page); err == nil {
			if t, err := ex.ExtractText(); err == nil {
				text = t
			}
		}
		g.pages = append(g.pages, text)
	}
	for _, n := range reader.GetObjectNums() {
		obj, err := reader.GetIndirectObjectByNumber(n)
		if err != nil {
			continue
		}
		g.objects[n] = classifyObject(obj)
	}
	return g, nil
}

// generation is the parsed view of one saved state of the document.
type generation struct {
	pages   []string
	objects map[int]string // object number -> kind
}

func classifyObject(obj core.PdfObject) string {
	obj = core.TraceToDirectObject(obj)
	if stream, ok := core.GetStream(obj); ok {
		if d := stream.PdfObjectDictionary; d != nil {
			if sub, ok := core.GetNameVal(d.Get("Subtype")); ok && sub == "Image" {
				return "image"
			}
		}
		return "content-stream"
	}
	d, ok := core.GetDict(obj)
	if !ok {
		return "other"
	}
	if typ, ok := core.GetNameVal(d.Get("Type")); ok {
		switch typ {
		case "Font":
			return "font"
		case "Annot":
			return "annotation"
		case "Page":
			return "page"
		case "Catalog":
			return "catalog"
		case "XObject":
			return "xobject"
		}
	}
	if d.Get("Subtype") != nil && d.Get("Rect") != nil {
		return "annotation"
	}
	return "other"
}

// diffPages computes line-level set diffs per page index (1-based in
// the returned maps), capped to keep flag details bounded.
func diffPages(prev, cur []string) (added, removed map[int][]string) {
	added, removed = map[int][]string{}, map[int][]string{}
	n := len(cur)
	if len(prev) > n {
		n = len(prev)
	}
	for p := 0; p < n; p++ {
		var prevText, curText string
		if p < len(prev) {
			prevText = prev[p]
		}
		if p < len(cur) {
			curText = cur[p]
		}
		if prevText == curText {
			continue
		}
		prevLines := lineCounts(prevText)
		curLines := lineCounts(curText)
		if a := lineDelta(curLines, prevLines); len(a) > 0 {
			added[p+1] = a
		}
		if r := lineDelta(prevLines, curLines); len(r) > 0 {
			removed[p+1] = r
		}
	}
	if len(added) == 0 {
		added = nil
	}
	if len(removed) == 0 {
		removed = nil
	}
	return added, removed
}

func lineCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			counts[line]++
		}
	}
	return counts
}

// lineDelta returns the lines present (more often) in a than in b,
// sorted so the diff is deterministic, capped to keep details bounded.
func lineDelta(a, b map[string]int) []string {
	var out []string
	for line, count := range a {
		if count > b[line] {
			out = append(out, line)
		}
	}
	sort.Strings(out)
	if len(out) > maxDiffLinesPerPage {
		out = out[:maxDiffLinesPerPage]
	}
	return out
}

// diffObjects tallies, by kind, the objects whose number is present in
// cur but absent from prev. An object that cur rewrites under a number
// prev already had is not counted.
func diffObjects(prev, cur map[int]string) map[string]int {
	kinds := map[string]int{}
	for num, kind := range cur {
		if _, existed := prev[num]; !existed {
			kinds[kind]++
		}
	}
	if len(kinds) == 0 {
		return nil
	}
	return kinds
}
