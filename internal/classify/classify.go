// Package classify scans crash report text for dependency statements and
// known failure signatures.
//
// Matching is plain substring search and whitespace tokenisation; no pattern
// engine is involved, so cost stays linear in the input length.
package classify

import (
	"strings"

	"mod2fix/internal/diag"
	"mod2fix/internal/modref"
)

// Result holds the classifier output; both slices are non-nil.
type Result struct {
	Dependencies []diag.DependencyFinding
	Errors       []diag.ErrorFinding
}

// Options tune a Classifier.
type Options struct {
	// CollapseDuplicates keeps only the first finding for each
	// (requiring, required) pair. Off by default: every statement counts.
	CollapseDuplicates bool
}

// Classifier evaluates a fixed table. It is immutable and safe for
// concurrent use.
type Classifier struct {
	table Table
	opts  Options
}

// New returns a Classifier over a private copy of table.
func New(table Table, opts Options) *Classifier {
	return &Classifier{table: table.Clone(), opts: opts}
}

// Table returns a copy of the rows this classifier evaluates.
func (c *Classifier) Table() Table {
	return c.table.Clone()
}

// Findings classifies text with the built-in table and default options.
func Findings(text string) Result {
	return New(builtin, Options{}).Classify(text)
}

// Classify never fails; unrecognised input yields empty slices.
func (c *Classifier) Classify(text string) Result {
	deps := Dependencies(text)
	if c.opts.CollapseDuplicates {
		deps = collapse(deps)
	}
	bag := diag.NewBag(0)
	for _, sig := range c.table {
		if sig.matches(text) {
			bag.Add(sig.finding())
		}
	}
	return Result{
		Dependencies: deps,
		Errors:       bag.Items(),
	}
}

// Dependencies returns one finding per "mod A requires [mod] B" statement in
// text order. Statements do not span lines.
func Dependencies(text string) []diag.DependencyFinding {
	out := make([]diag.DependencyFinding, 0)
	for line := range strings.Lines(text) {
		if !strings.Contains(line, "requires") {
			continue
		}
		fields := strings.Fields(line)
		for i := 0; i+3 < len(fields); {
			if !strings.EqualFold(fields[i], "mod") || fields[i+2] != "requires" {
				i++
				continue
			}
			requiring := fields[i+1]
			next := i + 3
			if strings.EqualFold(fields[next], "mod") && next+1 < len(fields) {
				next++
			}
			required := fields[next]
			out = append(out, diag.DependencyFinding{
				RequiringMod: requiring,
				RequiredMod:  required,
				Download:     modref.For(required),
			})
			i = next + 1
		}
	}
	return out
}

func collapse(deps []diag.DependencyFinding) []diag.DependencyFinding {
	type pair struct{ from, to string }
	seen := make(map[pair]struct{}, len(deps))
	out := make([]diag.DependencyFinding, 0, len(deps))
	for _, d := range deps {
		key := pair{d.RequiringMod, d.RequiredMod}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
