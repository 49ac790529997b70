package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"mod2fix/internal/config"
	"mod2fix/internal/diagfmt"
	"mod2fix/internal/driver"
	"mod2fix/internal/observ"
)

// exit statuses beyond the generic 1
const exitIssues = 2

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file|directory|->...",
	Short: "Analyze crash reports and game logs",
	Long: `Analyze one or more crash reports. Directories are searched for *.txt,
*.log and *.log.gz files; "-" (or no argument) reads standard input.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "pretty", "output format (pretty|json|short|msgpack)")
	analyzeCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	analyzeCmd.Flags().Int("jobs", 0, "max parallel files for directories (0=auto)")
	analyzeCmd.Flags().String("ui", "auto", "progress view for batches (auto|on|off)")
	analyzeCmd.Flags().Bool("collapse-deps", false, "report each (mod, required mod) pair once")
	analyzeCmd.Flags().Int64("max-input-bytes", 0, "reject inputs larger than this after decompression (0=config default)")
	analyzeCmd.Flags().Bool("no-tips", false, "omit the tips footer from pretty output")
	analyzeCmd.Flags().Bool("fail-on-issues", false, "exit with status 2 when any report has findings")
	analyzeCmd.Flags().Bool("cache", false, "reuse reports from the on-disk cache")
	analyzeCmd.Flags().Bool("clear-cache", false, "drop every cached report before analyzing")
}

type analyzeFlags struct {
	format       diagfmt.Format
	output       string
	ui           uiMode
	noTips       bool
	failOnIssues bool
	clearCache   bool
}

func readAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) (analyzeFlags, error) {
	var af analyzeFlags
	flags := cmd.Flags()

	formatStr, err := flags.GetString("format")
	if err != nil {
		return af, fmt.Errorf("failed to get format flag: %w", err)
	}
	if af.format, err = diagfmt.ParseFormat(formatStr); err != nil {
		return af, err
	}
	if af.output, err = flags.GetString("output"); err != nil {
		return af, fmt.Errorf("failed to get output flag: %w", err)
	}
	uiStr, err := flags.GetString("ui")
	if err != nil {
		return af, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if af.ui, err = readUIMode(uiStr); err != nil {
		return af, err
	}
	if af.noTips, err = flags.GetBool("no-tips"); err != nil {
		return af, fmt.Errorf("failed to get no-tips flag: %w", err)
	}
	if af.failOnIssues, err = flags.GetBool("fail-on-issues"); err != nil {
		return af, fmt.Errorf("failed to get fail-on-issues flag: %w", err)
	}
	if af.clearCache, err = flags.GetBool("clear-cache"); err != nil {
		return af, fmt.Errorf("failed to get clear-cache flag: %w", err)
	}

	if err := applyAnalyzeOverrides(cmd, &cfg.Analyze); err != nil {
		return af, err
	}
	return af, cfg.Validate()
}

// applyAnalyzeOverrides copies explicitly given flags over the [analyze] table.
func applyAnalyzeOverrides(cmd *cobra.Command, ac *config.AnalyzeConfig) error {
	flags := cmd.Flags()
	if flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		ac.Jobs = jobs
	}
	if flags.Changed("collapse-deps") {
		collapse, err := flags.GetBool("collapse-deps")
		if err != nil {
			return fmt.Errorf("failed to get collapse-deps flag: %w", err)
		}
		ac.CollapseDuplicateDependencies = collapse
	}
	if flags.Changed("max-input-bytes") {
		n, err := flags.GetInt64("max-input-bytes")
		if err != nil {
			return fmt.Errorf("failed to get max-input-bytes flag: %w", err)
		}
		if n > 0 {
			ac.MaxInputBytes = n
		}
	}
	if flags.Changed("cache") {
		cache, err := flags.GetBool("cache")
		if err != nil {
			return fmt.Errorf("failed to get cache flag: %w", err)
		}
		ac.Cache = cache
	}
	return nil
}

// runAnalyze renders one report for a single input and a batch otherwise.
// Unreadable inputs exit 1; --fail-on-issues exits 2 when anything was found.
func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	af, err := readAnalyzeFlags(cmd, &cfg)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{driver.StdinPath}
	}

	files, err := driver.ExpandPaths(args)
	if err != nil {
		return err
	}
	batch := len(files) != 1 || len(args) != 1 || isDir(args[0])
	if batch && af.format == diagfmt.FormatMsgPack {
		return errors.New("msgpack output needs exactly one input file")
	}

	out, closeOut, err := openOutput(cmd, af.output)
	if err != nil {
		return err
	}
	defer closeOut()
	if af.format.Binary() && isTerminalWriter(out) {
		return errors.New("refusing to write msgpack to a terminal; use --output or a pipe")
	}

	opts := driver.Options{
		Report: cfg.ReportOptions(),
		Source: cfg.SourceOptions(),
		Jobs:   cfg.Analyze.Jobs,
		Stdin:  cmd.InOrStdin(),
	}
	if timingsFlag(cmd) {
		opts.Timer = observ.NewTimer()
	}
	if cfg.Analyze.Cache || af.clearCache {
		cache, err := driver.OpenReportCache("mod2fix")
		if err != nil {
			return err
		}
		if af.clearCache {
			if err := cache.DropAll(); err != nil {
				return err
			}
		}
		if cfg.Analyze.Cache {
			opts.Cache = cache
		}
	}

	ctx := cmd.Context()
	var results []driver.Result
	useUI := batch && len(files) > 1 && !quietFlag(cmd) && shouldUseTUI(af.ui) && !slices.Contains(files, driver.StdinPath)
	if useUI {
		results, err = runAnalyzeWithUI(ctx, "mod2fix analyze", files, opts)
	} else {
		results, err = driver.AnalyzePaths(ctx, files, opts)
	}
	if err != nil {
		return err
	}

	colored, err := colorFor(cmd, out)
	if err != nil {
		return err
	}
	ro := renderOptions{
		format: af.format,
		color:  colored,
		tips:   !af.noTips,
		indent: isTerminalWriter(out),
	}
	if wd, err := os.Getwd(); err == nil {
		ro.base = wd
	}

	var st batchStats
	if batch {
		st, err = renderBatch(out, cmd.ErrOrStderr(), results, ro)
	} else {
		if res := results[0]; res.Err != nil {
			return res.Err
		}
		st, err = renderSingle(out, results[0], ro)
	}
	if err != nil {
		return err
	}

	if batch && !quietFlag(cmd) && af.format == diagfmt.FormatPretty {
		fmt.Fprintf(cmd.ErrOrStderr(), "analyzed %d file(s): %d with issues, %d failed\n", st.total, st.issues, st.failed)
	}
	if opts.Timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}

	switch {
	case st.failed > 0:
		cmd.SilenceErrors = true
		return exitError{code: 1}
	case af.failOnIssues && st.issues > 0:
		cmd.SilenceErrors = true
		return exitError{code: exitIssues}
	}
	return nil
}

func isDir(path string) bool {
	if path == driver.StdinPath {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// openOutput returns stdout, or a created file for --output.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "mod2fix: closing %s: %v\n", path, err)
		}
	}, nil
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
