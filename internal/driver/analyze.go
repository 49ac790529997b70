// Package driver runs the analysis engine over files, streams and whole
// directories of crash reports.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"mod2fix/internal/observ"
	"mod2fix/internal/report"
	"mod2fix/internal/source"
	"mod2fix/internal/trace"
)

// Options configure an Analyzer.
type Options struct {
	Report   report.Options
	Source   source.Options
	Jobs     int // parallel files, <= 0 selects GOMAXPROCS
	Progress ProgressSink
	Cache    *ReportCache  // optional
	Timer    *observ.Timer // optional
	Stdin    io.Reader     // read for "-", nil selects os.Stdin
}

// Result is the outcome for one input. Err is set when the input could not
// be read; Report is then the zero value.
type Result struct {
	Path    string
	Report  report.Report
	Err     error
	Elapsed time.Duration
	Cached  bool
}

// Analyzer shares one report builder across inputs.
type Analyzer struct {
	opts    Options
	builder *report.Builder
}

// New prepares an Analyzer.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts, builder: report.NewBuilder(opts.Report)}
}

// Options returns the configuration the analyzer was built with.
func (a *Analyzer) Options() Options { return a.opts }

// AnalyzeText builds a report for text. It never fails.
func (a *Analyzer) AnalyzeText(text string) report.Report {
	return a.builder.Build(text)
}

// AnalyzeReader loads r through the source layer and builds its report.
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.Reader) (report.Report, error) {
	rep, _, err := a.analyzeReader(ctx, r)
	return rep, err
}

func (a *Analyzer) analyzeReader(ctx context.Context, r io.Reader) (report.Report, bool, error) {
	text, err := source.Read(r, a.opts.Source)
	if err != nil {
		return report.Report{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return report.Report{}, false, err
	}
	return a.analyzeCached(ctx, text)
}

func (a *Analyzer) analyzeCached(ctx context.Context, text string) (report.Report, bool, error) {
	if a.opts.Cache == nil {
		return a.builder.Build(text), false, nil
	}
	key, err := CacheKey(text, a.builder.Table(), a.opts.Report.CollapseDuplicateDependencies)
	if err != nil {
		return a.builder.Build(text), false, nil
	}
	if rep, ok, err := a.opts.Cache.Get(key); err != nil {
		trace.Error(ctx, trace.ScopeFile, "cache.get", err)
	} else if ok {
		return rep, true, nil
	}
	rep := a.builder.Build(text)
	if err := a.opts.Cache.Put(key, len(text), rep); err != nil {
		trace.Error(ctx, trace.ScopeFile, "cache.put", err)
	}
	return rep, false, nil
}

// AnalyzeFile analyses one path; "-" reads Options.Stdin.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) Result {
	span, ctx := trace.StartSpan(ctx, trace.ScopeFile, "file:"+path)
	sink := a.opts.Progress
	start := time.Now()

	emit(sink, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	rep, cached, err := a.load(ctx, path)
	res := Result{Path: path, Report: rep, Err: err, Elapsed: time.Since(start), Cached: cached}

	if err != nil {
		trace.Error(ctx, trace.ScopeFile, "file:"+path, err)
		emit(sink, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: res.Elapsed})
		span.End("error")
		return res
	}
	findings := len(rep.Errors) + len(rep.Dependencies)
	span.WithExtra("errors", strconv.Itoa(len(rep.Errors))).
		WithExtra("dependencies", strconv.Itoa(len(rep.Dependencies))).
		WithExtra("cached", strconv.FormatBool(cached)).
		End("")
	emit(sink, Event{File: path, Stage: StageAnalyze, Status: StatusDone, Elapsed: res.Elapsed, Findings: findings})
	return res
}

func (a *Analyzer) load(ctx context.Context, path string) (report.Report, bool, error) {
	if path == StdinPath {
		in := a.opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		rep, cached, err := a.analyzeReader(ctx, in)
		if err != nil {
			return report.Report{}, false, fmt.Errorf("stdin: %w", err)
		}
		return rep, cached, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return report.Report{}, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil && info.IsDir() {
		return report.Report{}, false, fmt.Errorf("%s is a directory", path)
	}
	rep, cached, err := a.analyzeReader(ctx, f)
	if err != nil {
		return report.Report{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return rep, cached, nil
}

// AnalyzePaths expands directories and analyses every file concurrently.
// Results follow the expanded path order. Per-file failures are recorded on
// their Result; the returned error is reserved for discovery failures and
// cancellation.
func (a *Analyzer) AnalyzePaths(ctx context.Context, paths []string) ([]Result, error) {
	batch, ctx := trace.StartSpan(ctx, trace.ScopeStage, "analyze")
	defer batch.End("")
	sink := a.opts.Progress

	endDiscover := a.opts.Timer.Track("discover")
	emit(sink, Event{Stage: StageDiscover, Status: StatusWorking})
	files, err := ExpandPaths(paths)
	if err != nil {
		endDiscover("failed")
		emit(sink, Event{Stage: StageDiscover, Status: StatusError, Err: err})
		return nil, err
	}
	endDiscover(fmt.Sprintf("%d files", len(files)))
	emit(sink, Event{Stage: StageDiscover, Status: StatusDone})
	batch.WithExtra("files", strconv.Itoa(len(files)))

	for _, f := range files {
		emit(sink, Event{File: f, Stage: StageLoad, Status: StatusQueued})
	}
	if len(files) == 0 {
		return []Result{}, nil
	}

	jobs := a.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	endAnalyze := a.opts.Timer.Track("analyze")
	// indices are unique per goroutine, no mutex needed
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: path, Err: err}
				return err
			}
			results[i] = a.AnalyzeFile(gctx, path)
			return nil
		})
	}
	err = g.Wait()
	endAnalyze(fmt.Sprintf("jobs=%d", jobs))
	return results, err
}

// AnalyzeText builds a report for text with opts.
func AnalyzeText(text string, opts Options) report.Report {
	return New(opts).AnalyzeText(text)
}

// AnalyzeReader builds a report for everything read from r.
func AnalyzeReader(ctx context.Context, r io.Reader, opts Options) (report.Report, error) {
	return New(opts).AnalyzeReader(ctx, r)
}

// AnalyzeFile analyses one path.
func AnalyzeFile(ctx context.Context, path string, opts Options) Result {
	return New(opts).AnalyzeFile(ctx, path)
}

// AnalyzePaths analyses files and directories.
func AnalyzePaths(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	return New(opts).AnalyzePaths(ctx, paths)
}
