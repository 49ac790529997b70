// Package fuzztests houses Go fuzz harnesses that exercise the analysis
// pipeline (source -> extract/classify -> report). Its goal is to smoke test
// robustness and guard against panics or broken report invariants on
// arbitrary inputs.
//
// Does not: generate corpora, write files, run the CLI.
//
// Depends on: internal/source, internal/report, internal/classify,
// internal/extract, internal/modref.
package fuzztests
