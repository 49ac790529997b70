package diag

import (
	"fmt"
	"strconv"
	"strings"

	"mod2fix/internal/modref"
)

// ErrorFinding is one recognised failure category in a crash report.
type ErrorFinding struct {
	Code        Code   `json:"code"`
	Category    string `json:"category"`
	Reason      string `json:"reason"`
	Remediation string `json:"remediation"`
}

// DependencyFinding records a "mod A requires B" statement.
type DependencyFinding struct {
	RequiringMod string           `json:"requiringMod"`
	RequiredMod  string           `json:"requiredMod"`
	Download     modref.Reference `json:"downloadReference"`
}

// MarshalText keeps the code stable in JSON and msgpack output.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.ID()), nil
}

// UnmarshalText accepts exactly the forms produced by ID: MC followed by a
// built-in code below UserSignatureBase, or USR followed by a configured one.
func (c *Code) UnmarshalText(text []byte) error {
	s := string(text)
	var rest string
	var user bool
	switch {
	case strings.HasPrefix(s, "USR"):
		rest, user = s[len("USR"):], true
	case strings.HasPrefix(s, "MC"):
		rest = s[len("MC"):]
	default:
		return fmt.Errorf("invalid finding code %q", s)
	}
	n, err := strconv.ParseUint(rest, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid finding code %q: %w", s, err)
	}
	if code := Code(n); code.IsUser() != user {
		return fmt.Errorf("invalid finding code %q: number out of range for prefix", s)
	}
	*c = Code(n)
	return nil
}
