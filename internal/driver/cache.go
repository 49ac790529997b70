package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"mod2fix/internal/classify"
	"mod2fix/internal/diag"
	"mod2fix/internal/report"
)

// Current schema version - increment when cachePayload format changes
const cacheSchemaVersion uint16 = 1

// Digest identifies an input text together with the analysis settings.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// CacheKey hashes text with everything that can change its report: the
// signature table and the duplicate-dependency policy.
func CacheKey(text string, table classify.Table, collapse bool) (Digest, error) {
	settings, err := msgpack.Marshal(struct {
		Table    classify.Table
		Collapse bool
	}{table, collapse})
	if err != nil {
		return Digest{}, fmt.Errorf("failed to fingerprint settings: %w", err)
	}
	h := sha256.New()
	sum := sha256.Sum256(settings)
	_, _ = h.Write(sum[:])
	_, _ = h.Write([]byte(text))
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// ReportCache stores finished reports on disk keyed by Digest, so re-running
// over a folder of old crash reports skips unchanged files.
// Thread-safe for concurrent access.
type ReportCache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema uint16
	Size   uint32 // input bytes, for inspection only
	Report report.Report
}

// OpenReportCache opens the cache at $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func OpenReportCache(app string) (*ReportCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewReportCache(filepath.Join(base, app))
}

// NewReportCache opens a cache rooted at dir, creating it if needed.
func NewReportCache(dir string) (*ReportCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &ReportCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *ReportCache) Dir() string { return c.dir }

func (c *ReportCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "reports", key.String()+".mp")
}

// Put serializes and writes a report. The file is replaced atomically.
func (c *ReportCache) Put(key Digest, size int, r report.Report) error {
	if c == nil {
		return nil
	}
	size32, err := safecast.Conv[uint32](size)
	if err != nil {
		size32 = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	enc := msgpack.NewEncoder(f)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&cachePayload{Schema: cacheSchemaVersion, Size: size32, Report: r}); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a report. A missing entry or one written by another schema
// version is a miss, not an error.
func (c *ReportCache) Get(key Digest) (report.Report, bool, error) {
	if c == nil {
		return report.Report{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report.Report{}, false, nil
		}
		return report.Report{}, false, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	dec.SetCustomStructTag("json")
	var payload cachePayload
	if err := dec.Decode(&payload); err != nil {
		return report.Report{}, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if payload.Schema != cacheSchemaVersion {
		return report.Report{}, false, nil
	}
	return normalizeReport(payload.Report), true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *ReportCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// normalizeReport restores the non-nil list guarantee after decoding.
func normalizeReport(r report.Report) report.Report {
	if r.Dependencies == nil {
		r.Dependencies = []diag.DependencyFinding{}
	}
	if r.Errors == nil {
		r.Errors = []diag.ErrorFinding{}
	}
	return r
}
