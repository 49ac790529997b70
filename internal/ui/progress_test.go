package ui

import (
	"errors"
	"strings"
	"testing"

	"mod2fix/internal/driver"
)

func TestApplyEvents(t *testing.T) {
	m := NewProgressModel("analyze", []string{"a.txt", "b.log", "c.log.gz"}, nil).(*progressModel)

	m.applyEvent(driver.Event{Stage: driver.StageDiscover, Status: driver.StatusWorking})
	if m.stageLabel != "discovering" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}
	m.applyEvent(driver.Event{File: "a.txt", Stage: driver.StageLoad, Status: driver.StatusWorking})
	if m.items[0].status != "reading" {
		t.Fatalf("a.txt status = %q", m.items[0].status)
	}
	m.applyEvent(driver.Event{File: "a.txt", Stage: driver.StageAnalyze, Status: driver.StatusDone, Findings: 2})
	m.applyEvent(driver.Event{File: "b.log", Stage: driver.StageAnalyze, Status: driver.StatusDone})
	m.applyEvent(driver.Event{File: "c.log.gz", Stage: driver.StageLoad, Status: driver.StatusError, Err: errors.New("boom")})
	m.applyEvent(driver.Event{File: "c.log.gz", Stage: driver.StageLoad, Status: driver.StatusError})
	m.applyEvent(driver.Event{File: "unknown.txt", Status: driver.StatusDone})

	if m.finished != 3 || m.issues != 1 || m.failed != 1 {
		t.Fatalf("tally finished=%d issues=%d failed=%d", m.finished, m.issues, m.failed)
	}
	view := m.View()
	for _, want := range []string{"2 issues", "a.txt", "error", "3/3 analysed, 1 with issues, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewCapsRows(t *testing.T) {
	files := make([]string, maxRows+5)
	for i := range files {
		files[i] = strings.Repeat("f", i+1) + ".txt"
	}
	m := NewProgressModel("analyze", files, nil).(*progressModel)
	if !strings.Contains(m.View(), "5 more files") {
		t.Fatalf("row cap not applied:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("crash-reports/crash-2024-01-01.txt", 12); got != "crash-rep..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("truncate = %q", got)
	}
}
