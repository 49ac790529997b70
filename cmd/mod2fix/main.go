package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mod2fix/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "mod2fix",
	Short: "Minecraft crash report analyzer",
	Long: `mod2fix reads Minecraft crash reports and game logs, reports the game
version and mod loader, classifies known failure signatures and lists
missing mod dependencies with Modrinth links.`,
	SilenceUsage:      true,
	PersistentPreRunE: rootPreRun,
}

// cleanup is set by rootPreRun and run once Execute returns.
var cleanup = func() {}

// exitError carries a process status without printing anything.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(signaturesCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("config", "", "path to "+configFileHint+" (default: nearest one above the working directory)")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")
}

// main executes the root command with a context cancelled by SIGINT or
// SIGTERM. Errors exit 1; exitError exits with its own code.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cleanup()
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func rootPreRun(cmd *cobra.Command, _ []string) error {
	stopTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		stopTrace()
		return err
	}
	cleanup = func() {
		stopProfiling()
		stopTrace()
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
