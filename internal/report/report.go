// Package report merges extractor and classifier output into the
// diagnostic report handed to renderers.
package report

import (
	"mod2fix/internal/classify"
	"mod2fix/internal/diag"
	"mod2fix/internal/extract"
)

// Report is built fresh per call and never mutated afterwards.
type Report struct {
	Environment  extract.Environment      `json:"environment"`
	Dependencies []diag.DependencyFinding `json:"dependencies"`
	Errors       []diag.ErrorFinding      `json:"errors"`
}

// Clean reports the "no issues detected" state. It is distinct from a
// failed or missing analysis, which never produces a Report at all.
func (r Report) Clean() bool {
	return len(r.Dependencies) == 0 && len(r.Errors) == 0
}

// Options select the table and dependency policy. The zero value means the
// built-in table with duplicate statements kept.
type Options struct {
	Table                         classify.Table
	CollapseDuplicateDependencies bool
}

// Builder reuses one classifier across many reports.
type Builder struct {
	classifier *classify.Classifier
}

// NewBuilder prepares a Builder for opts.
func NewBuilder(opts Options) *Builder {
	table := opts.Table
	if table == nil {
		table = classify.DefaultTable()
	}
	return &Builder{
		classifier: classify.New(table, classify.Options{
			CollapseDuplicates: opts.CollapseDuplicateDependencies,
		}),
	}
}

// Build analyses text with the built-in table.
func Build(text string) Report {
	return NewBuilder(Options{}).Build(text)
}

// BuildWithOptions analyses text with opts.
func BuildWithOptions(text string, opts Options) Report {
	return NewBuilder(opts).Build(text)
}

// Build runs the extractor and the classifier over text. The two stages
// share nothing but the input, so they run one after the other.
func (b *Builder) Build(text string) Report {
	env := extract.Extract(text)
	res := b.classifier.Classify(text)
	return Report{
		Environment:  env,
		Dependencies: res.Dependencies,
		Errors:       res.Errors,
	}
}

// Table returns the rows the builder evaluates.
func (b *Builder) Table() classify.Table {
	return b.classifier.Table()
}
