// Package extract pulls coarse environment facts (game version, mod loader)
// out of raw crash report text.
package extract

import "strings"

// Unknown is reported for any fact that could not be extracted.
const Unknown = "unknown"

// Loader names the mod-loading framework of an installation.
type Loader string

const (
	LoaderFabric  Loader = "Fabric"
	LoaderForge   Loader = "Forge"
	LoaderQuilt   Loader = "Quilt"
	LoaderUnknown Loader = Unknown
)

func (l Loader) String() string {
	if l == "" {
		return Unknown
	}
	return string(l)
}

// Environment is the pair of facts derived once per report.
type Environment struct {
	GameVersion string `json:"gameVersion"`
	Loader      Loader `json:"loaderName"`
}

// loaderOrder is the detection priority. Quilt goes first since Quilt logs
// mention fabric all over the place; Fabric beats Forge when both appear.
var loaderOrder = []struct {
	needle string
	loader Loader
}{
	{"quilt", LoaderQuilt},
	{"fabric", LoaderFabric},
	{"forge", LoaderForge},
}

// Extract returns the environment described by text. It never fails.
func Extract(text string) Environment {
	return Environment{
		GameVersion: GameVersion(text),
		Loader:      DetectLoader(text),
	}
}

// GameVersion returns the version token following the first "Minecraft <ver>"
// occurrence, or Unknown.
func GameVersion(text string) string {
	const word = "Minecraft"
	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], word)
		if idx < 0 {
			break
		}
		start := pos + idx
		pos = start + len(word)
		if start > 0 && isWordByte(text[start-1]) {
			continue
		}
		i := pos
		for i < len(text) && isSpace(text[i]) {
			i++
		}
		if i == pos {
			continue
		}
		if v, ok := scanVersion(text[i:]); ok {
			return v
		}
	}
	return Unknown
}

// DetectLoader returns the loader named in text, honouring loaderOrder.
func DetectLoader(text string) Loader {
	for _, c := range loaderOrder {
		if containsFold(text, c.needle) {
			return c.loader
		}
	}
	return LoaderUnknown
}

// scanVersion matches digits '.' digits ['.' digits] at the start of s.
func scanVersion(s string) (string, bool) {
	end := scanDigits(s, 0)
	if end == 0 {
		return "", false
	}
	parts := 1
	for parts < 3 && end < len(s) && s[end] == '.' {
		next := scanDigits(s, end+1)
		if next == end+1 {
			break
		}
		end = next
		parts++
	}
	if parts < 2 {
		return "", false
	}
	return s[:end], true
}

func scanDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// containsFold reports whether s contains the lowercase ASCII needle,
// ignoring ASCII case.
func containsFold(s, needle string) bool {
	n := len(needle)
	if n == 0 {
		return true
	}
	first := needle[0]
	for i := 0; i+n <= len(s); i++ {
		if lower(s[i]) != first {
			continue
		}
		j := 1
		for j < n && lower(s[i+j]) == needle[j] {
			j++
		}
		if j == n {
			return true
		}
	}
	return false
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
