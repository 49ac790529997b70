package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mod2fix/internal/config"
	"mod2fix/internal/driver"
	"mod2fix/internal/server"
	"mod2fix/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Serve POST /api/analyze, GET /healthz and GET /metrics until interrupted.
Settings come from the [serve] table of mod2fix.toml; flags override them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :5000)")
	serveCmd.Flags().Float64("rate", 0, "requests per second across all clients (0 disables limiting)")
	serveCmd.Flags().Int("burst", 0, "rate limiter burst size")
	serveCmd.Flags().String("cors-origin", "", "Access-Control-Allow-Origin value (default from config, *)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeOverrides(cmd, &cfg.Serve); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	analyzer := driver.New(driver.Options{
		Report: cfg.ReportOptions(),
		Source: cfg.SourceOptions(),
	})
	srv := server.New(server.Options{
		Addr:         cfg.Serve.Addr,
		MaxBodyBytes: cfg.Serve.MaxBodyBytes,
		RateLimit:    cfg.Serve.RateLimit,
		Burst:        cfg.Serve.Burst,
		CORSOrigin:   cfg.Serve.CORSOrigin,
		Analyzer:     analyzer,
	})
	if !quietFlag(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "mod2fix %s listening on %s\n", version.Version, srv.Addr())
	}
	return srv.ListenAndServe(cmd.Context())
}

// applyServeOverrides copies explicitly given flags over the [serve] table.
func applyServeOverrides(cmd *cobra.Command, sc *config.ServeConfig) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("addr") {
		if sc.Addr, err = flags.GetString("addr"); err != nil {
			return fmt.Errorf("failed to get addr flag: %w", err)
		}
	}
	if flags.Changed("rate") {
		if sc.RateLimit, err = flags.GetFloat64("rate"); err != nil {
			return fmt.Errorf("failed to get rate flag: %w", err)
		}
	}
	if flags.Changed("burst") {
		if sc.Burst, err = flags.GetInt("burst"); err != nil {
			return fmt.Errorf("failed to get burst flag: %w", err)
		}
	}
	if flags.Changed("cors-origin") {
		if sc.CORSOrigin, err = flags.GetString("cors-origin"); err != nil {
			return fmt.Errorf("failed to get cors-origin flag: %w", err)
		}
	}
	return nil
}
