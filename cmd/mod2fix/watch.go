package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mod2fix/internal/diagfmt"
	"mod2fix/internal/driver"
	"mod2fix/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <directory>",
	Short: "Analyze crash reports as they appear in a directory",
	Long: `Watch a directory such as .minecraft/crash-reports and analyze every log
file that is created or rewritten, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a changed file is analyzed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := diagfmt.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	if format.Binary() {
		return fmt.Errorf("watch does not support %s output", format)
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}

	out := cmd.OutOrStdout()
	colored, err := colorFor(cmd, out)
	if err != nil {
		return err
	}
	ro := renderOptions{format: format, color: colored}

	analyzer := driver.New(driver.Options{
		Report: cfg.ReportOptions(),
		Source: cfg.SourceOptions(),
	})
	w := watch.New(args[0], analyzer, watchPrinter(out, cmd.ErrOrStderr(), ro))
	w.SetDebounce(debounce)

	if !quietFlag(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", args[0])
	}
	if err := w.Run(cmd.Context()); err != nil {
		return err
	}
	if !quietFlag(cmd) {
		st := w.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "analyzed %d file(s), %d error(s)\n", st.Analyzed, st.Errors)
	}
	return nil
}

// watchPrinter renders each result as a one-entry batch so file names are shown.
func watchPrinter(out, errOut io.Writer, ro renderOptions) watch.Handler {
	return func(res driver.Result) {
		if _, err := renderBatch(out, errOut, []driver.Result{res}, ro); err != nil {
			fmt.Fprintf(errOut, "mod2fix: %v\n", err)
		}
	}
}
