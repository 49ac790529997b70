// Package config loads mod2fix.toml.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"mod2fix/internal/classify"
	"mod2fix/internal/diag"
	"mod2fix/internal/report"
	"mod2fix/internal/source"
)

// FileName is looked up from the working directory towards the root.
const FileName = "mod2fix.toml"

// maxSignatures keeps every user row code within USR9000..USR65535.
const maxSignatures = math.MaxUint16 - int(diag.UserSignatureBase)

// ErrUnknownKeys is returned when the file sets keys mod2fix does not know,
// which is almost always a typo.
var ErrUnknownKeys = errors.New("unknown configuration keys")

// Config is the decoded file. Keys absent from the file keep Default values.
type Config struct {
	Path       string            `toml:"-"`
	Analyze    AnalyzeConfig     `toml:"analyze"`
	Serve      ServeConfig       `toml:"serve"`
	Signatures []SignatureConfig `toml:"signature"`
}

type AnalyzeConfig struct {
	MaxInputBytes                 int64 `toml:"max_input_bytes"`
	CollapseDuplicateDependencies bool  `toml:"collapse_duplicate_dependencies"`
	Jobs                          int   `toml:"jobs"`
	Cache                         bool  `toml:"cache"`
}

type ServeConfig struct {
	Addr         string  `toml:"addr"`
	MaxBodyBytes int64   `toml:"max_body_bytes"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second, 0 disables limiting
	Burst        int     `toml:"burst"`
	CORSOrigin   string  `toml:"cors_origin"` // empty disables CORS headers
}

// SignatureConfig is one [[signature]] row appended to the built-in table.
type SignatureConfig struct {
	Match       []string `toml:"match"`
	Category    string   `toml:"category"`
	Reason      string   `toml:"reason"`
	Remediation string   `toml:"remediation"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Analyze: AnalyzeConfig{
			MaxInputBytes: source.DefaultMaxBytes,
		},
		Serve: ServeConfig{
			Addr:         ":5000",
			MaxBodyBytes: source.DefaultMaxBytes,
			RateLimit:    5,
			Burst:        10,
			CORSOrigin:   "*",
		},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest file; without one it returns Default.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes and validates path.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: %s", path, ErrUnknownKeys, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and signature rows.
func (c Config) Validate() error {
	switch {
	case c.Analyze.MaxInputBytes < 0:
		return fmt.Errorf("[analyze].max_input_bytes must not be negative")
	case c.Analyze.Jobs < 0:
		return fmt.Errorf("[analyze].jobs must not be negative")
	case c.Serve.MaxBodyBytes < 0:
		return fmt.Errorf("[serve].max_body_bytes must not be negative")
	case c.Serve.RateLimit < 0:
		return fmt.Errorf("[serve].rate_limit must not be negative")
	case c.Serve.Burst < 0:
		return fmt.Errorf("[serve].burst must not be negative")
	}
	if len(c.Signatures) > maxSignatures {
		return fmt.Errorf("too many [[signature]] rows (%d)", len(c.Signatures))
	}
	for i, s := range c.Signatures {
		if strings.TrimSpace(s.Category) == "" {
			return fmt.Errorf("[[signature]] #%d: missing category", i+1)
		}
		hasMatch := false
		for _, m := range s.Match {
			if m != "" {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return fmt.Errorf("[[signature]] #%d (%s): match needs at least one non-empty pattern", i+1, s.Category)
		}
	}
	return nil
}

// Table returns the built-in signatures followed by the configured rows.
func (c Config) Table() classify.Table {
	extra := make([]classify.Signature, 0, len(c.Signatures))
	for i, s := range c.Signatures {
		n, err := safecast.Conv[uint16](i)
		if err != nil {
			break
		}
		extra = append(extra, classify.Signature{
			Code:        diag.UserCode(n),
			Match:       append([]string(nil), s.Match...),
			Category:    s.Category,
			Reason:      s.Reason,
			Remediation: s.Remediation,
		})
	}
	return classify.DefaultTable().Extend(extra...)
}

// ReportOptions maps [analyze] and the signature rows onto the engine.
func (c Config) ReportOptions() report.Options {
	return report.Options{
		Table:                         c.Table(),
		CollapseDuplicateDependencies: c.Analyze.CollapseDuplicateDependencies,
	}
}

// SourceOptions maps [analyze] onto the input loader.
func (c Config) SourceOptions() source.Options {
	return source.Options{MaxBytes: c.Analyze.MaxInputBytes}
}
