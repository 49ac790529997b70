package main

import (
	"fmt"
	"io"

	"mod2fix/internal/diagfmt"
	"mod2fix/internal/driver"
	"mod2fix/internal/source"
)

type renderOptions struct {
	format diagfmt.Format
	color  bool
	tips   bool
	indent bool
	base   string // paths are shown relative to base; empty keeps them as given
}

type batchStats struct {
	total  int
	issues int
	failed int
}

func (st *batchStats) add(res driver.Result) {
	st.total++
	switch {
	case res.Err != nil:
		st.failed++
	case !res.Report.Clean():
		st.issues++
	}
}

func displayName(path, base string) string {
	if path == driver.StdinPath {
		return "<stdin>"
	}
	if base == "" {
		return path
	}
	if rel, err := source.RelativePath(path, base); err == nil {
		return rel
	}
	return path
}

// renderSingle writes one successful result in the chosen format.
func renderSingle(out io.Writer, res driver.Result, opts renderOptions) (batchStats, error) {
	var st batchStats
	st.add(res)
	var err error
	switch opts.format {
	case diagfmt.FormatJSON:
		err = diagfmt.JSON(out, res.Report, diagfmt.JSONOpts{Indent: opts.indent})
	case diagfmt.FormatShort:
		err = diagfmt.Short(out, "", res.Report)
	case diagfmt.FormatMsgPack:
		err = diagfmt.MsgPack(out, res.Report)
	default:
		name := ""
		if res.Path != driver.StdinPath {
			name = displayName(res.Path, opts.base)
		}
		err = diagfmt.Pretty(out, name, res.Report, diagfmt.PrettyOpts{Color: opts.color, ShowTips: opts.tips})
	}
	return st, err
}

// renderBatch writes every result to out. Failures go to errOut for the
// text formats and into the document for JSON.
func renderBatch(out, errOut io.Writer, results []driver.Result, opts renderOptions) (batchStats, error) {
	var st batchStats
	for _, res := range results {
		st.add(res)
	}

	if opts.format == diagfmt.FormatJSON {
		entries := make([]diagfmt.BatchEntry, 0, len(results))
		for i := range results {
			res := &results[i]
			entry := diagfmt.BatchEntry{Path: displayName(res.Path, opts.base)}
			if res.Err != nil {
				entry.Error = res.Err.Error()
			} else {
				entry.Report = &res.Report
			}
			entries = append(entries, entry)
		}
		return st, diagfmt.JSONBatch(out, entries, diagfmt.JSONOpts{Indent: opts.indent})
	}

	printed := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(errOut, "mod2fix: %v\n", res.Err)
			continue
		}
		name := displayName(res.Path, opts.base)
		var err error
		if opts.format == diagfmt.FormatShort {
			err = diagfmt.Short(out, name, res.Report)
		} else {
			if printed > 0 {
				if _, err := fmt.Fprintln(out); err != nil {
					return st, err
				}
			}
			// tips once, after the last report
			tips := opts.tips && printed == st.total-st.failed-1
			err = diagfmt.Pretty(out, name, res.Report, diagfmt.PrettyOpts{Color: opts.color, ShowTips: tips})
		}
		if err != nil {
			return st, err
		}
		printed++
	}
	return st, nil
}
