package report

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mod2fix/internal/classify"
	"mod2fix/internal/diag"
	"mod2fix/internal/extract"
	"mod2fix/internal/modref"
)

const sampleCrash = `---- Minecraft Crash Report ----
// Who set us up the TNT?

Time: 2024-01-15 18:04:11
Description: Mod loading failed

Minecraft 1.20.1 running on fabric-loader 0.15.3
Mod Sodium requires Mod FabricAPI
org.spongepowered.asm.mixin.transformer.throwables.MixinTransformerError: An unexpected critical error was encountered
Caused by: java.lang.ClassNotFoundException: net.fabricmc.fabric.api.event.Event
`

func TestBuildSample(t *testing.T) {
	got := Build(sampleCrash)
	want := Report{
		Environment: extract.Environment{GameVersion: "1.20.1", Loader: extract.LoaderFabric},
		Dependencies: []diag.DependencyFinding{{
			RequiringMod: "Sodium",
			RequiredMod:  "FabricAPI",
			Download:     modref.For("FabricAPI"),
		}},
		Errors: []diag.ErrorFinding{
			{
				Code:        diag.MissingClass,
				Category:    "Missing Class",
				Reason:      "Missing dependency or corrupted mod",
				Remediation: "Reinstall the mod or check for missing dependencies",
			},
			{
				Code:        diag.MixinConflict,
				Category:    "Mixin Conflict",
				Reason:      "Incompatible mods modifying the same code",
				Remediation: "Remove conflicting mods one by one to identify the issue",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if got.Clean() {
		t.Fatalf("sample report must not be clean")
	}
}

func TestBuildClean(t *testing.T) {
	got := Build("the game exited with code 0")
	if !got.Clean() {
		t.Fatalf("expected clean report, got %+v", got)
	}
	if got.Dependencies == nil || got.Errors == nil {
		t.Fatalf("clean report must carry empty, non-nil lists")
	}
	if got.Environment.GameVersion != extract.Unknown || got.Environment.Loader != extract.LoaderUnknown {
		t.Fatalf("environment = %+v, want unknown/unknown", got.Environment)
	}
}

func TestBuildIdempotent(t *testing.T) {
	first := Build(sampleCrash)
	second := Build(sampleCrash)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated builds differ:\n%s", diff)
	}
}

func TestBuilderReuse(t *testing.T) {
	b := NewBuilder(Options{})
	a := b.Build(sampleCrash)
	_ = b.Build("Mod X requires Y")
	c := b.Build(sampleCrash)
	if diff := cmp.Diff(a, c); diff != "" {
		t.Fatalf("builder leaked state between calls:\n%s", diff)
	}
}

func TestBuildWithOptions(t *testing.T) {
	text := "Mod A requires B\nMod A requires B\nsomething Sodium-specific"
	extra := classify.Signature{
		Code:     diag.UserCode(0),
		Match:    []string{"Sodium-specific"},
		Category: "Sodium",
	}
	got := BuildWithOptions(text, Options{
		Table:                         classify.DefaultTable().Extend(extra),
		CollapseDuplicateDependencies: true,
	})
	if len(got.Dependencies) != 1 {
		t.Fatalf("dependencies = %d, want 1", len(got.Dependencies))
	}
	if len(got.Errors) != 1 || got.Errors[0].Category != "Sodium" {
		t.Fatalf("errors = %+v, want the configured row", got.Errors)
	}
}

func TestBuildNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inputs := []string{
		"",
		"\x00\xff\xfe",
		strings.Repeat("Mod ", 10000),
		strings.Repeat("Minecraft ", 5000) + "1.",
		strings.Repeat("requires ", 3000),
	}
	for range 200 {
		buf := make([]byte, rng.Intn(512))
		rng.Read(buf)
		inputs = append(inputs, string(buf))
	}
	for _, in := range inputs {
		_ = Build(in)
	}
}

func TestBuildLargeInput(t *testing.T) {
	var sb strings.Builder
	for i := range 20000 {
		sb.WriteString("[12:00:00] [main/INFO]: loading chunk ")
		sb.WriteString(strings.Repeat("x", i%40))
		sb.WriteByte('\n')
	}
	sb.WriteString("Mod a requires b\n")
	got := Build(sb.String())
	if len(got.Dependencies) != 1 {
		t.Fatalf("dependencies = %d, want 1", len(got.Dependencies))
	}
}
