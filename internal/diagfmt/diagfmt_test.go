package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mod2fix/internal/report"
)

const crash = "Minecraft 1.19.2 with Forge\n" +
	"Mod create requires Mod flywheel\n" +
	"Mod create requires kotlinforforge\n" +
	"Mod jei requires forge\n" +
	"java.lang.ClassNotFoundException: x\n"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPretty, false},
		{"pretty", FormatPretty, false},
		{" JSON ", FormatJSON, false},
		{"short", FormatShort, false},
		{"msgpack", FormatMsgPack, false},
		{"sarif", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !FormatMsgPack.Binary() || FormatJSON.Binary() {
		t.Fatalf("Binary() mismatch")
	}
}

func TestPrettyFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, "crash-2024.txt", report.Build(crash), PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"mod2fix - Diagnostic Report",
		"crash-2024.txt",
		"Minecraft Version: 1.19.2",
		"Mod Loader: FORGE",
		"ERRORS DETECTED: 1",
		"Error #1: Missing Class",
		"Code: MC1001",
		"Solution: Reinstall the mod or check for missing dependencies",
		"MISSING DEPENDENCIES",
		"create is missing:",
		"Mod Page: https://modrinth.com/mod/flywheel",
		"Direct Download: https://cdn.modrinth.com/data/kotlinforforge/versions/latest.jar",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, CleanMessage) {
		t.Errorf("clean message printed for a report with findings")
	}
	if strings.Count(out, "is missing:") != 2 {
		t.Errorf("dependencies not grouped by requiring mod:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour escapes written with Color=false")
	}
	if strings.Contains(out, "Tips:") {
		t.Errorf("tips printed without ShowTips")
	}
}

func TestPrettyClean(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, "", report.Build("all good"), PrettyOpts{ShowTips: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()
	for _, want := range []string{CleanMessage, "Minecraft Version: unknown", "Mod Loader: UNKNOWN", "Tips:", "Don't mix Forge and Fabric mods"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ERRORS DETECTED") || strings.Contains(out, "MISSING DEPENDENCIES") {
		t.Errorf("empty sections printed:\n%s", out)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, "", report.Build(crash), PrettyOpts{Color: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected colour escapes with Color=true")
	}
}

func TestCenter(t *testing.T) {
	if got := center("ab", 6); got != "  ab" {
		t.Fatalf("center = %q", got)
	}
	if got := center("日本", 8); got != "  日本" {
		t.Fatalf("wide center = %q", got)
	}
	if got := center("toolong", 3); got != "toolong" {
		t.Fatalf("overflow center = %q", got)
	}
}

func TestJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, report.Build("nothing here"), JSONOpts{}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := `{"environment":{"gameVersion":"unknown","loaderName":"unknown"},"dependencies":[],"errors":[]}` + "\n"
	if buf.String() != want {
		t.Fatalf("JSON =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := JSON(&buf, report.Build(crash), JSONOpts{Indent: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var back report.Report
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(report.Build(crash), back); diff != "" {
		t.Fatalf("JSON round trip (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), `"downloadUrl": "https://cdn.modrinth.com/data/flywheel/versions/latest.jar"`) {
		t.Fatalf("indented output missing download url:\n%s", buf.String())
	}
}

func TestJSONBatch(t *testing.T) {
	clean := report.Build("")
	dirty := report.Build(crash)
	entries := []BatchEntry{
		{Path: "a.txt", Report: &dirty},
		{Path: "b.txt", Report: &clean},
		{Path: "c.txt", Error: "permission denied"},
	}
	var buf bytes.Buffer
	if err := JSONBatch(&buf, entries, JSONOpts{}); err != nil {
		t.Fatalf("JSONBatch: %v", err)
	}
	var out struct {
		Reports []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"reports"`
		Count  int `json:"count"`
		Clean  int `json:"clean"`
		Failed int `json:"failed"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 3 || out.Clean != 1 || out.Failed != 1 {
		t.Fatalf("tally = %+v", out)
	}
	if out.Reports[0].Path != "a.txt" || out.Reports[2].Error != "permission denied" {
		t.Fatalf("entries = %+v", out.Reports)
	}

	buf.Reset()
	if err := JSONBatch(&buf, nil, JSONOpts{}); err != nil {
		t.Fatalf("JSONBatch(nil): %v", err)
	}
	if !strings.Contains(buf.String(), `"reports":[]`) {
		t.Fatalf("empty batch = %s", buf.String())
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	if err := Short(&buf, "", report.Build(crash)); err != nil {
		t.Fatalf("Short: %v", err)
	}
	want := "env 1.19.2 Forge\n" +
		"error MC1001 Missing Class\n" +
		"dep create -> flywheel https://cdn.modrinth.com/data/flywheel/versions/latest.jar\n" +
		"dep create -> kotlinforforge https://cdn.modrinth.com/data/kotlinforforge/versions/latest.jar\n" +
		"dep jei -> forge https://cdn.modrinth.com/data/forge/versions/latest.jar\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("Short (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := Short(&buf, "x.log", report.Build("")); err != nil {
		t.Fatalf("Short: %v", err)
	}
	if buf.String() != "x.log: env unknown unknown\nx.log: clean\n" {
		t.Fatalf("Short clean = %q", buf.String())
	}
}

func TestMsgPackRoundTrip(t *testing.T) {
	for _, text := range []string{crash, ""} {
		want := report.Build(text)
		var buf bytes.Buffer
		if err := MsgPack(&buf, want); err != nil {
			t.Fatalf("MsgPack: %v", err)
		}
		got, err := DecodeMsgPack(&buf)
		if err != nil {
			t.Fatalf("DecodeMsgPack: %v", err)
		}
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("msgpack round trip (-want +got):\n%s", diff)
		}
	}
	if _, err := DecodeMsgPack(strings.NewReader("\xc1")); err == nil {
		t.Fatalf("expected decode error on invalid input")
	}
}
