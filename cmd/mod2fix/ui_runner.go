package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mod2fix/internal/driver"
	"mod2fix/internal/ui"
)

type analyzeOutcome struct {
	results []driver.Result
	err     error
}

// runAnalyzeWithUI runs the batch while the progress view draws on stderr,
// keeping stdout clean for the report itself.
func runAnalyzeWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan analyzeOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.AnalyzePaths(ctx, files, optsCopy)
		outcomeCh <- analyzeOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
