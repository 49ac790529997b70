package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"mod2fix/internal/classify"
	"mod2fix/internal/diag"
	"mod2fix/internal/observ"
	"mod2fix/internal/report"
	"mod2fix/internal/source"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func crashDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b-crash.txt"), []byte("Minecraft 1.20.1 fabric\nMod A requires B\n"))
	writeFile(t, filepath.Join(dir, "a-latest.log"), []byte("Mixin apply failed"))
	writeFile(t, filepath.Join(dir, "logs", "2024-01-01-1.log.gz"), gzipped(t, "forge ClassNotFoundException"))
	writeFile(t, filepath.Join(dir, "notes.md"), []byte("Mixin"))
	writeFile(t, filepath.Join(dir, ".git", "HEAD.txt"), []byte("Mixin"))
	return dir
}

func TestListLogFiles(t *testing.T) {
	dir := crashDir(t)
	files, err := ListLogFiles(dir)
	if err != nil {
		t.Fatalf("ListLogFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a-latest.log"),
		filepath.Join(dir, "b-crash.txt"),
		filepath.Join(dir, "logs", "2024-01-01-1.log.gz"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
}

func TestIsLogFile(t *testing.T) {
	for name, want := range map[string]bool{
		"crash-2024-01-01_12.00.00-client.txt": true,
		"latest.log":                           true,
		"debug.LOG":                            true,
		"2024-01-01-3.log.gz":                  true,
		"mods.toml":                            false,
		"archive.gz":                           false,
	} {
		if got := IsLogFile(name); got != want {
			t.Errorf("IsLogFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestAnalyzePathsOrderAndContent(t *testing.T) {
	dir := crashDir(t)
	timer := observ.NewTimer()
	results, err := AnalyzePaths(context.Background(), []string{dir}, Options{Jobs: 2, Timer: timer})
	if err != nil {
		t.Fatalf("AnalyzePaths: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if filepath.Base(results[0].Path) != "a-latest.log" || filepath.Base(results[2].Path) != "2024-01-01-1.log.gz" {
		t.Fatalf("order = %s, %s, %s", results[0].Path, results[1].Path, results[2].Path)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("%s: %v", r.Path, r.Err)
		}
	}
	if got := results[0].Report.Errors; len(got) != 1 || got[0].Code != diag.MixinConflict {
		t.Fatalf("a-latest.log errors = %+v", got)
	}
	if got := results[1].Report; got.Environment.GameVersion != "1.20.1" || len(got.Dependencies) != 1 {
		t.Fatalf("b-crash.txt report = %+v", got)
	}
	if got := results[2].Report.Errors; len(got) != 1 || got[0].Code != diag.MissingClass {
		t.Fatalf("gzip log errors = %+v", got)
	}
	if n := len(timer.Report().Phases); n != 2 {
		t.Fatalf("timer phases = %d, want discover+analyze", n)
	}
}

func TestAnalyzePathsRecordsFileErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	writeFile(t, big, []byte(strings.Repeat("x", 64)))
	missing := filepath.Join(dir, "missing.txt")

	results, err := AnalyzePaths(context.Background(), []string{missing, big}, Options{Source: source.Options{MaxBytes: 16}})
	if err != nil {
		t.Fatalf("AnalyzePaths: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if !errors.Is(results[0].Err, os.ErrNotExist) {
		t.Fatalf("missing err = %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, source.ErrTooLarge) {
		t.Fatalf("big err = %v", results[1].Err)
	}
}

func TestAnalyzeFileStdin(t *testing.T) {
	res := AnalyzeFile(context.Background(), StdinPath, Options{Stdin: strings.NewReader("Mod x requires y")})
	if res.Err != nil {
		t.Fatalf("stdin: %v", res.Err)
	}
	if len(res.Report.Dependencies) != 1 {
		t.Fatalf("dependencies = %+v", res.Report.Dependencies)
	}
}

func TestAnalyzePathsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AnalyzePaths(ctx, []string{crashDir(t)}, Options{Jobs: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestProgressEvents(t *testing.T) {
	dir := crashDir(t)
	var mu sync.Mutex
	perFile := map[string][]Status{}
	sink := SinkFunc(func(ev Event) {
		if ev.File == "" {
			return
		}
		mu.Lock()
		perFile[ev.File] = append(perFile[ev.File], ev.Status)
		mu.Unlock()
	})
	if _, err := AnalyzePaths(context.Background(), []string{dir}, Options{Progress: sink}); err != nil {
		t.Fatalf("AnalyzePaths: %v", err)
	}
	if len(perFile) != 3 {
		t.Fatalf("files with events = %d", len(perFile))
	}
	want := []Status{StatusQueued, StatusWorking, StatusDone}
	for f, got := range perFile {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s events (-want +got):\n%s", f, diff)
		}
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{File: "x"})
	if ev := <-ch; ev.File != "x" {
		t.Fatalf("event = %+v", ev)
	}
	ChannelSink{}.OnEvent(Event{})
}

func TestReportCache(t *testing.T) {
	cache, err := NewReportCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}
	text := "Minecraft 1.18.2 forge\nMod a requires b\n"
	key, err := CacheKey(text, classify.DefaultTable(), false)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	if _, ok, err := cache.Get(key); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}
	want := report.Build(text)
	if err := cache.Put(key, len(text), want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := cache.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cached report (-want +got):\n%s", diff)
	}

	other, _ := CacheKey(text, classify.DefaultTable(), true)
	if other == key {
		t.Fatalf("collapse policy must change the key")
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := cache.Get(key); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestAnalyzerUsesCache(t *testing.T) {
	cache, err := NewReportCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}
	path := filepath.Join(t.TempDir(), "crash.txt")
	writeFile(t, path, []byte("Mixin"))
	a := New(Options{Cache: cache})

	first := a.AnalyzeFile(context.Background(), path)
	second := a.AnalyzeFile(context.Background(), path)
	if first.Cached || !second.Cached {
		t.Fatalf("cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if diff := cmp.Diff(first.Report, second.Report); diff != "" {
		t.Fatalf("cached report differs:\n%s", diff)
	}
}
