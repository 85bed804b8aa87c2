package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrcl/maprot/internal/workspace"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		root, p, def string
		want         string
	}{
		{"/srv", "", "maps", "/srv/maps"},
		{"/srv", "bsp", "maps", "/srv/bsp"},
		{"/srv", "/abs/maps", "maps", "/abs/maps"},
		{"", "", "maps", "maps"},
	}
	for _, tt := range tests {
		if got := resolve(tt.root, tt.p, tt.def); got != tt.want {
			t.Fatalf("resolve(%q, %q, %q): got %q want %q", tt.root, tt.p, tt.def, got, tt.want)
		}
	}
}

func TestCurrentLayoutDefaults(t *testing.T) {
	t.Cleanup(func() { workDir, mapsDir, outputDir = "", "", "" })
	workDir, mapsDir, outputDir = "/srv/q2", "", ""
	l := currentLayout()
	want := workspace.DefaultLayout("/srv/q2")
	if l != want {
		t.Fatalf("layout: got %+v want %+v", l, want)
	}
	if got := stateFile(); got != "/srv/q2/.maprot/state.db" {
		t.Fatalf("state file: got %q", got)
	}
}

func TestContainerPath(t *testing.T) {
	t.Parallel()
	l := workspace.DefaultLayout("/srv")
	tests := map[string]string{
		"dust":           "/srv/maps/dust.bsp",
		"DUST.BSP":       "DUST.BSP",
		"other/snow.bsp": "other/snow.bsp",
		"/tmp/port":      "/tmp/port",
	}
	for arg, want := range tests {
		if got := containerPath(l, arg); got != want {
			t.Fatalf("containerPath(%q): got %q want %q", arg, got, want)
		}
	}
}

func TestParseDelta(t *testing.T) {
	t.Parallel()
	tests := map[string]int{"up": -1, "down": 1, "3": 3, "-2": -2}
	for in, want := range tests {
		got, err := parseDelta(in)
		if err != nil || got != want {
			t.Fatalf("parseDelta(%q): got %d, %v want %d", in, got, err, want)
		}
	}
	if _, err := parseDelta("sideways"); err == nil {
		t.Fatalf("parseDelta(sideways): expected error")
	}
}

func TestCheckArtifacts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write := func(name, text string) {
		if err := os.WriteFile(filepath.Join(dir, name+".ent"), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("dust", "{\n\"classname\" \"worldspawn\"\n}\n")
	write("snow", "{\n\"classname\" \"worldspawn\"\n{\n}\n")

	var out bytes.Buffer
	bad := checkArtifacts(&out, dir, []string{"dust", "snow", "port"})
	if bad != 2 {
		t.Fatalf("bad: got %d want 2\n%s", bad, out.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || lines[0] != "dust: ok" || !strings.Contains(lines[1], "line 3") {
		t.Fatalf("report: got %q", lines)
	}
}

func TestGeneratedReportRequiresConfigFiles(t *testing.T) {
	t.Parallel()
	l := workspace.DefaultLayout(t.TempDir())
	if _, err := generatedReport(l, []string{"dust"}); err == nil {
		t.Fatalf("generatedReport: expected error without maplist.txt")
	}
}
