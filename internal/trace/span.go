package trace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	globalSeq   uint64
	globalSpans uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 {
	return atomic.AddUint64(&globalSpans, 1)
}

// goroutineID parses the header of runtime.Stack: "goroutine 123 [running]:".
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	gid, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span tracks one logical operation from Begin to End.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	gid      uint64
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

// Begin starts a new span and emits SpanBegin event.
// parent is the parent span ID (0 if root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Level().ShouldEmit(KindSpanBegin, scope) {
		return &Span{tracer: Nop, started: time.Now()}
	}

	id := NextSpanID()
	gid := goroutineID()
	now := time.Now()
	t.Emit(&Event{
		Time:     now,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   id,
		ParentID: parent,
		GID:      gid,
		Name:     name,
	})

	return &Span{
		tracer:   t,
		id:       id,
		parentID: parent,
		gid:      gid,
		scope:    scope,
		name:     name,
		started:  now,
	}
}

// StartSpan begins a span under the span carried by ctx and returns a
// context carrying the new one.
func StartSpan(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	s := Begin(FromContext(ctx), scope, name, CurrentSpan(ctx).SpanID)
	return s, WithSpan(ctx, s)
}

// End emits SpanEnd event and returns the duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	if s.tracer == nil || !s.tracer.Enabled() {
		return dur
	}

	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra adds a key-value pair to the end event.
// Returns the span for method chaining.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under the span carried by ctx.
func Point(ctx context.Context, scope Scope, name, detail string, extra map[string]string) {
	emitInstant(ctx, KindPoint, scope, name, detail, extra)
}

// Error emits a failure event. It passes every level except off.
func Error(ctx context.Context, scope Scope, name string, err error) {
	if err == nil {
		return
	}
	emitInstant(ctx, KindError, scope, name, err.Error(), nil)
}

func emitInstant(ctx context.Context, kind Kind, scope Scope, name, detail string, extra map[string]string) {
	t := FromContext(ctx)
	if !t.Level().ShouldEmit(kind, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     kind,
		Scope:    scope,
		ParentID: CurrentSpan(ctx).SpanID,
		GID:      goroutineID(),
		Name:     name,
		Detail:   detail,
		Extra:    extra,
	})
}
