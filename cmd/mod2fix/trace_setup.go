package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mod2fix/internal/trace"
)

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone implies phase-level events
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(parent, trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(trace.Config{Level: level, OutputPath: traceOutput})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(parent, tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	span, ctx := trace.StartSpan(ctx, trace.ScopeCommand, cmd.CommandPath())
	cmd.SetContext(ctx)

	return func() {
		span.End("")
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
