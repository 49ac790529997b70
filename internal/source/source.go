// Package source loads crash report text from files and streams before it is
// handed to the engine.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxBytes caps decoded input; crash reports are far below this.
const DefaultMaxBytes int64 = 8 << 20

// ErrTooLarge is returned when decoded input exceeds Options.MaxBytes.
var ErrTooLarge = errors.New("input exceeds size limit")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// Options control loading.
type Options struct {
	// MaxBytes is the decoded size limit; <= 0 selects DefaultMaxBytes.
	MaxBytes int64
}

func (o Options) limit() int64 {
	if o.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return o.MaxBytes
}

// Load reads path, transparently decompressing gzip content.
func Load(path string, opts Options) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	text, err := Read(f, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// Read consumes r and returns normalised text.
func Read(r io.Reader, opts Options) (string, error) {
	br := bufio.NewReader(r)
	var in io.Reader = br
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return "", fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		in = zr
	}

	max := opts.limit()
	data, err := io.ReadAll(io.LimitReader(in, max+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if int64(len(data)) > max {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, max)
	}
	return Normalize(data), nil
}

// Normalize strips a UTF-8 byte order mark, turns CRLF line endings into LF
// and composes the text to NFC so that pasted and file-loaded logs compare
// equal.
func Normalize(data []byte) string {
	data, _ = removeBOM(data)
	data, _ = normalizeCRLF(data)
	return norm.NFC.String(string(data))
}
