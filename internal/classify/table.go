package classify

import (
	"strings"

	"mod2fix/internal/diag"
)

// Signature is one row of the classification table. A row fires when any of
// its Match substrings occurs in the text (case-sensitive).
type Signature struct {
	Code        diag.Code `json:"code"`
	Match       []string  `json:"match"`
	Category    string    `json:"category"`
	Reason      string    `json:"reason"`
	Remediation string    `json:"remediation"`
}

// Table is evaluated top to bottom; output follows row order.
type Table []Signature

var builtin = Table{
	{
		Code:        diag.MissingClass,
		Match:       []string{"ClassNotFoundException"},
		Category:    "Missing Class",
		Reason:      "Missing dependency or corrupted mod",
		Remediation: "Reinstall the mod or check for missing dependencies",
	},
	{
		Code:        diag.MixinConflict,
		Match:       []string{"Mixin"},
		Category:    "Mixin Conflict",
		Reason:      "Incompatible mods modifying the same code",
		Remediation: "Remove conflicting mods one by one to identify the issue",
	},
	{
		Code:        diag.MissingClassDefinition,
		Match:       []string{"NoClassDefFoundError"},
		Category:    "Missing Class Definition",
		Reason:      "A class the mod was built against is absent at runtime",
		Remediation: "Install the missing dependency or update the mod that references it",
	},
	{
		Code:        diag.DuplicateMod,
		Match:       []string{"Duplicate mod", "DuplicateModsFoundException", "Found duplicate"},
		Category:    "Duplicate Mod",
		Reason:      "Duplicate mod files",
		Remediation: "Remove the duplicate mod from the mods folder",
	},
	{
		Code:        diag.IncompatibleMods,
		Match:       []string{"Incompatible mods found", "ModResolutionException"},
		Category:    "Incompatible Mods",
		Reason:      "The loader rejected the mod set because of unmet or conflicting requirements",
		Remediation: "Install or update the mods named in the incompatibility message",
	},
	{
		Code:        diag.VersionMismatch,
		Match:       []string{"requires version", "requires Minecraft version"},
		Category:    "Version Mismatch",
		Reason:      "A mod requires a different version of the game or of another mod",
		Remediation: "Update the mod or the game to a compatible version",
	},
	{
		Code:        diag.WrongJavaVersion,
		Match:       []string{"UnsupportedClassVersionError"},
		Category:    "Wrong Java Version",
		Reason:      "A mod was compiled for a newer Java runtime",
		Remediation: "Install the Java version required by your Minecraft version",
	},
	{
		Code:        diag.OutOfMemory,
		Match:       []string{"java.lang.OutOfMemoryError"},
		Category:    "Out of Memory",
		Reason:      "The game ran out of allocated memory",
		Remediation: "Allocate more memory to the game or remove memory-heavy mods",
	},
	{
		// the trailing space keeps ids such as FabricAPI from matching
		Code: diag.WrongLoader,
		Match: []string{
			"requires Forge ", "requires Fabric ", "requires Quilt ",
			"requires forge ", "requires fabric ", "requires quilt ",
			"Incompatible mod set",
		},
		Category:    "Wrong Mod Loader",
		Reason:      "A mod was built for a different mod loader",
		Remediation: "Install the build of the mod made for your loader, or switch loaders",
	},
	{
		Code:        diag.MissingDependency,
		Match:       []string{"Missing required mod", "Missing dependency", "depends on mod"},
		Category:    "Missing Dependency",
		Reason:      "A required mod is not installed",
		Remediation: "Install the mod named in the message",
	},
}

// DefaultTable returns a copy of the built-in rows.
func DefaultTable() Table {
	return builtin.Clone()
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, sig := range t {
		sig.Match = append([]string(nil), sig.Match...)
		out[i] = sig
	}
	return out
}

// Extend returns t followed by extra. Rows of extra never replace rows of t.
func (t Table) Extend(extra ...Signature) Table {
	out := t.Clone()
	for _, sig := range extra {
		sig.Match = append([]string(nil), sig.Match...)
		out = append(out, sig)
	}
	return out
}

// matches reports whether any non-empty pattern of sig occurs in text.
func (s Signature) matches(text string) bool {
	for _, m := range s.Match {
		if m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func (s Signature) finding() diag.ErrorFinding {
	return diag.ErrorFinding{
		Code:        s.Code,
		Category:    s.Category,
		Reason:      s.Reason,
		Remediation: s.Remediation,
	}
}
