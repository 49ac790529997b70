package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"mod2fix/internal/diag"
	"mod2fix/internal/report"
)

const title = "mod2fix - Diagnostic Report"

// CleanMessage is printed when a report has no findings.
const CleanMessage = "No errors or missing dependencies detected!"

var tips = []string{
	"Always use mods for the same Minecraft version",
	"Don't mix Forge and Fabric mods",
	"Check Modrinth/CurseForge for mod compatibility",
	"Read mod descriptions for required dependencies",
}

type palette struct {
	rule    *color.Color
	heading *color.Color
	label   *color.Color
	bad     *color.Color
	good    *color.Color
	link    *color.Color
	code    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		rule:    color.New(color.FgHiBlack),
		heading: color.New(color.FgCyan, color.Bold),
		label:   color.New(color.Bold),
		bad:     color.New(color.FgRed, color.Bold),
		good:    color.New(color.FgGreen, color.Bold),
		link:    color.New(color.FgBlue, color.Underline),
		code:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.rule, p.heading, p.label, p.bad, p.good, p.link, p.code} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty renders r for a terminal. name, when non-empty, identifies the
// analysed file in the header.
func Pretty(w io.Writer, name string, r report.Report, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	width := opts.width()
	rule := p.rule.Sprint(strings.Repeat("=", width))
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString(p.heading.Sprint(center(title, width)) + "\n")
	if name != "" {
		b.WriteString(center(runewidth.Truncate(name, width, "..."), width) + "\n")
	}
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "%s %s\n", p.label.Sprint("Minecraft Version:"), r.Environment.GameVersion)
	fmt.Fprintf(&b, "%s %s\n", p.label.Sprint("Mod Loader:"), strings.ToUpper(r.Environment.Loader.String()))

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n\n%s\n%s\n", p.heading.Sprintf("ERRORS DETECTED: %d", len(r.Errors)), rule)
		for i, f := range r.Errors {
			fmt.Fprintf(&b, "\n%s %s\n", p.bad.Sprintf("Error #%d:", i+1), f.Category)
			if f.Code != diag.UnknownCode {
				fmt.Fprintf(&b, "   Code: %s\n", p.code.Sprint(f.Code.ID()))
			}
			fmt.Fprintf(&b, "   Reason: %s\n", f.Reason)
			fmt.Fprintf(&b, "   Solution: %s\n", f.Remediation)
		}
	}

	if len(r.Dependencies) > 0 {
		fmt.Fprintf(&b, "\n\n%s\n%s\n", p.heading.Sprint("MISSING DEPENDENCIES"), rule)
		for _, g := range groupDependencies(r.Dependencies) {
			fmt.Fprintf(&b, "\n%s\n", p.bad.Sprintf("%s is missing:", g.requiring))
			for _, d := range g.required {
				fmt.Fprintf(&b, "\n   %s\n", p.label.Sprint(d.RequiredMod))
				fmt.Fprintf(&b, "      Mod Page: %s\n", p.link.Sprint(d.Download.PageURL))
				fmt.Fprintf(&b, "      Version Page: %s\n", p.link.Sprint(d.Download.VersionURL))
				fmt.Fprintf(&b, "      Direct Download: %s\n", p.link.Sprint(d.Download.DownloadURL))
			}
		}
	}

	if r.Clean() {
		fmt.Fprintf(&b, "\n%s\n", p.good.Sprint(CleanMessage))
	}

	if opts.ShowTips {
		b.WriteString("\n" + rule + "\n")
		b.WriteString(p.label.Sprint("Tips:") + "\n")
		for _, tip := range tips {
			b.WriteString("   * " + tip + "\n")
		}
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

type dependencyGroup struct {
	requiring string
	required  []diag.DependencyFinding
}

// groupDependencies keeps first-seen order of requiring mods.
func groupDependencies(deps []diag.DependencyFinding) []dependencyGroup {
	var groups []dependencyGroup
	index := make(map[string]int, len(deps))
	for _, d := range deps {
		i, ok := index[d.RequiringMod]
		if !ok {
			i = len(groups)
			index[d.RequiringMod] = i
			groups = append(groups, dependencyGroup{requiring: d.RequiringMod})
		}
		groups[i].required = append(groups[i].required, d)
	}
	return groups
}

func center(s string, width int) string {
	pad := (width - runewidth.StringWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
