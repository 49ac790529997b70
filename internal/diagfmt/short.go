package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"mod2fix/internal/report"
)

// Short writes one line per fact:
//
//	[name: ]env <version> <loader>
//	[name: ]error <code> <category>
//	[name: ]dep <requiring> -> <required> <download url>
//	[name: ]clean
func Short(w io.Writer, name string, r report.Report) error {
	prefix := ""
	if name != "" {
		prefix = name + ": "
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%senv %s %s\n", prefix, r.Environment.GameVersion, r.Environment.Loader)
	for _, f := range r.Errors {
		fmt.Fprintf(&b, "%serror %s %s\n", prefix, f.Code.ID(), f.Category)
	}
	for _, d := range r.Dependencies {
		fmt.Fprintf(&b, "%sdep %s -> %s %s\n", prefix, d.RequiringMod, d.RequiredMod, d.Download.DownloadURL)
	}
	if r.Clean() {
		fmt.Fprintf(&b, "%sclean\n", prefix)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
