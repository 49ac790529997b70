package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mod2fix/internal/config"
)

const configFileHint = config.FileName

// loadConfig honours --config, falling back to the nearest mod2fix.toml and
// then to the built-in defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

// colorFor resolves --color for out; auto only colours an *os.File terminal.
func colorFor(cmd *cobra.Command, out io.Writer) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := readColorMode(value)
	if err != nil {
		return false, err
	}
	f, _ := out.(*os.File)
	return colorEnabled(mode, f), nil
}

func quietFlag(cmd *cobra.Command) bool {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return quiet
}

func timingsFlag(cmd *cobra.Command) bool {
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return timings
}
