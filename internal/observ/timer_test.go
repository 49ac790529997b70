package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	end := tm.Track("discover")
	time.Sleep(time.Millisecond)
	end("3 files")
	idx := tm.Begin("analyze")
	tm.End(idx, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(r.Phases))
	}
	if r.Phases[0].Name != "discover" || r.Phases[0].Note != "3 files" || r.Phases[0].DurationMS <= 0 {
		t.Fatalf("phase 0 = %+v", r.Phases[0])
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %v below phase %v", r.TotalMS, r.Phases[0].DurationMS)
	}

	s := tm.Summary()
	for _, want := range []string{"timings:", "discover", "// 3 files", "analyze", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestTimerConcurrentAndNil(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Track("file")("")
		}()
	}
	wg.Wait()
	if n := len(tm.Report().Phases); n != 16 {
		t.Fatalf("phases = %d, want 16", n)
	}

	var nilTimer *Timer
	nilTimer.Track("x")("")
	if r := nilTimer.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer report = %+v", r)
	}
}
