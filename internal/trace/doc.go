// Package trace records where mod2fix spends its time and what it decided.
//
// Enable tracing via command-line flags:
//
//	mod2fix analyze --trace=- --trace-level=detail crash-reports/
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Failures only (unreadable files, rejected requests)
//   - LevelPhase: Command and stage boundaries
//   - LevelDetail: Per-file and per-request events
//   - LevelDebug: Everything
//
// # Scopes
//
//   - ScopeCommand: Top-level CLI operations and server lifetime
//   - ScopeStage: Batch stages (discover, analyze, render)
//   - ScopeFile: One crash report or one HTTP request
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "analyze", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
package trace
