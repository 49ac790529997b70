package diagfmt

import (
	"fmt"
	"strings"
)

// Format names an output encoding for reports.
type Format string

const (
	FormatPretty  Format = "pretty"
	FormatJSON    Format = "json"
	FormatShort   Format = "short"
	FormatMsgPack Format = "msgpack"
)

// ParseFormat resolves a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPretty, nil
	case FormatPretty, FormatJSON, FormatShort, FormatMsgPack:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected pretty|json|short|msgpack)", s)
	}
}

// Binary reports whether the format must not be written to a terminal.
func (f Format) Binary() bool { return f == FormatMsgPack }

// PrettyOpts configures human-readable output.
type PrettyOpts struct {
	Color    bool
	ShowTips bool
	Width    int // rule width, 0 selects 80
}

func (o PrettyOpts) width() int {
	if o.Width <= 0 {
		return 80
	}
	return o.Width
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	Indent bool
}
