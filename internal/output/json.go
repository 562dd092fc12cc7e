package output

import (
	"encoding/json"
	"io"

	"github.com/docforensic/docforensic/pkg/types"
)

// RenderJSON writes the analysis result to w in the stable wire shape:
// {content_hash, trust_score, risk_level, analysis_time_ms, modules:[...],
// summary?}. Array orderings are meaningful and preserved; object key
// order is whatever the encoder emits.
func RenderJSON(w io.Writer, result *types.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ParseJSON reads a previously rendered analysis result back; the
// round-trip partner of RenderJSON.
func ParseJSON(r io.Reader) (*types.AnalysisResult, error) {
	var result types.AnalysisResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
