package driver

import "time"

// Stage describes a step in analysing a batch.
type Stage string

const (
	// StageDiscover expands the command-line paths into log files.
	StageDiscover Stage = "discover"
	// StageLoad reads and decodes one file.
	StageLoad Stage = "load"
	// StageAnalyze builds the report for one file.
	StageAnalyze Stage = "analyze"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a file (or for the whole batch when File is empty).
type Event struct {
	File     string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
	Findings int // errors + dependencies, set on StatusDone
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use; events for one file arrive in order.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
