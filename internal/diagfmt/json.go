package diagfmt

import (
	"encoding/json"
	"io"

	"mod2fix/internal/report"
)

// BatchEntry is one analysed input in a batch document.
type BatchEntry struct {
	Path   string         `json:"path"`
	Report *report.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// BatchOutput is the root of the batch JSON document.
type BatchOutput struct {
	Reports []BatchEntry `json:"reports"`
	Count   int          `json:"count"`
	Clean   int          `json:"clean"`
	Failed  int          `json:"failed"`
}

// BuildBatchOutput tallies entries without serialising them.
func BuildBatchOutput(entries []BatchEntry) BatchOutput {
	out := BatchOutput{Reports: entries, Count: len(entries)}
	if out.Reports == nil {
		out.Reports = []BatchEntry{}
	}
	for _, e := range entries {
		switch {
		case e.Error != "" || e.Report == nil:
			out.Failed++
		case e.Report.Clean():
			out.Clean++
		}
	}
	return out
}

// JSON writes r as a single JSON document.
func JSON(w io.Writer, r report.Report, opts JSONOpts) error {
	return encodeJSON(w, r, opts)
}

// JSONBatch writes a document covering many inputs, in the given order.
func JSONBatch(w io.Writer, entries []BatchEntry, opts JSONOpts) error {
	return encodeJSON(w, BuildBatchOutput(entries), opts)
}

func encodeJSON(w io.Writer, v any, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
