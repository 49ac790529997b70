package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota // no tracing
	LevelError               // failures only
	LevelPhase               // command + stage boundaries
	LevelDetail              // per-file events
	LevelDebug               // everything
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
	}
}

// ShouldEmit reports whether an event of kind at scope passes this level.
// Error events pass every level except off; per-file points need debug.
func (l Level) ShouldEmit(kind Kind, scope Scope) bool {
	if l == LevelOff {
		return false
	}
	if kind == KindError {
		return true
	}
	switch l {
	case LevelPhase:
		return scope <= ScopeStage
	case LevelDetail:
		return scope < ScopeFile || kind != KindPoint
	case LevelDebug:
		return true
	}
	return false
}
