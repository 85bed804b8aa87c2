package workspace

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/pkg/bsp"
	"github.com/mrcl/maprot/pkg/ent"
)

func entityText(name, next string) string {
	return "{\n\"classname\" \"worldspawn\"\n\"message\" \"" + name + "\"\n}\n" +
		"{\n\"classname\" \"info_team_start\"\n\"message\" \"allies\"\n\"nextmap\" \"" + next + "\"\n}\n"
}

func container(entities string) []byte {
	buf := make([]byte, bsp.HeaderSize, bsp.HeaderSize+len(entities)+1)
	binary.LittleEndian.PutUint32(buf[0:], bsp.Magic)
	binary.LittleEndian.PutUint32(buf[4:], 38)
	binary.LittleEndian.PutUint32(buf[8:], bsp.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(entities)+1))
	buf = append(buf, entities...)
	return append(buf, 0)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

func TestListContainers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"snow.bsp", "Dust.BSP", "readme.txt", "port.bsp"} {
		writeFile(t, filepath.Join(dir, name), nil)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.bsp"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListContainers(dir)
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	want := []string{"Dust.BSP", "port.bsp", "snow.bsp"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, filepath.Base(got[i]), want[i])
		}
	}
}

func TestListContainersMissingDir(t *testing.T) {
	t.Parallel()
	_, err := ListContainers(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNoMapsDir) {
		t.Fatalf("expected ErrNoMapsDir, got %v", err)
	}
}

func TestExtractAllContinuesPastFailures(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := DefaultLayout(root)
	writeFile(t, filepath.Join(l.MapsDir, "dust.bsp"), container(entityText("Dust", "snow")))
	writeFile(t, filepath.Join(l.MapsDir, "broken.bsp"), []byte("short"))
	writeFile(t, filepath.Join(l.MapsDir, "snow.bsp"), container(entityText("Snow", "dust")))

	outcomes, err := ExtractAll(testContext(), l.MapsDir, l.EntsDir)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes want 3", len(outcomes))
	}
	if Failed(outcomes) != 1 {
		t.Fatalf("failed: got %d want 1", Failed(outcomes))
	}
	if outcomes[0].Kind() != bsp.KindHeaderTooShort {
		t.Fatalf("broken.bsp kind: got %v", outcomes[0].Kind())
	}
	data, err := os.ReadFile(filepath.Join(l.EntsDir, "snow.ent"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != entityText("Snow", "dust") {
		t.Fatalf("artifact content: got %q", data)
	}
}

func TestExtractAllEmpty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := DefaultLayout(root)
	if err := os.MkdirAll(l.MapsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := ExtractAll(testContext(), l.MapsDir, l.EntsDir); !errors.Is(err, ErrNoContainers) {
		t.Fatalf("expected ErrNoContainers, got %v", err)
	}
	if _, err := ExtractAll(testContext(), filepath.Join(root, "missing"), l.EntsDir); !errors.Is(err, ErrNoMapsDir) {
		t.Fatalf("expected ErrNoMapsDir, got %v", err)
	}
}

func TestExtractOneMissingFile(t *testing.T) {
	t.Parallel()
	o := ExtractOne(filepath.Join(t.TempDir(), "gone.bsp"), t.TempDir())
	if o.OK() || o.Kind() != bsp.KindIO {
		t.Fatalf("expected io failure, got %+v", o)
	}
	if !strings.HasPrefix(o.Status(), "gone: ") {
		t.Fatalf("status: %q", o.Status())
	}
}

func TestInventory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := DefaultLayout(root)
	writeFile(t, filepath.Join(l.MapsDir, "dust.bsp"), nil)
	writeFile(t, filepath.Join(l.MapsDir, "snow.bsp"), nil)
	writeFile(t, ArtifactPath(l.EntsDir, "dust"), []byte(entityText("Dust", "snow")))

	entries, err := Inventory(l.MapsDir, l.EntsDir)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	dust, snow := entries[0], entries[1]
	if dust.Status != StatusGenerated || dust.Summary.MapName != "Dust" || dust.Summary.AlliesNext != "snow" {
		t.Fatalf("dust: %+v", dust)
	}
	if dust.Summary.AxisNext != ent.NotAvailable {
		t.Fatalf("dust axis: got %q", dust.Summary.AxisNext)
	}
	if snow.Status != StatusMissing || snow.Summary != ent.Unavailable() {
		t.Fatalf("snow: %+v", snow)
	}

	e, ok, err := Lookup(l.MapsDir, l.EntsDir, "snow")
	if err != nil || !ok || e.Map != "snow" {
		t.Fatalf("Lookup: %+v %v %v", e, ok, err)
	}
	if _, ok, _ := Lookup(l.MapsDir, l.EntsDir, "port"); ok {
		t.Fatal("Lookup found a map that does not exist")
	}
}

func TestGenerateRewritesSuccessors(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := DefaultLayout(root)
	for _, m := range []string{"dust", "snow", "port"} {
		writeFile(t, ArtifactPath(l.EntsDir, m), []byte(entityText(m, "old")))
	}
	rot, err := rotation.New("dust", "snow", "port")
	if err != nil {
		t.Fatalf("rotation: %v", err)
	}

	report, err := Generate(testContext(), rot, l, GenerateOptions{Settings: servercfg.DefaultSettings()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Written() != 3 {
		t.Fatalf("written: got %d want 3", report.Written())
	}

	want := map[string]string{"dust": "snow", "snow": "port", "port": "dust"}
	for m, next := range want {
		s, err := ent.ReadSummary(ArtifactPath(l.ModifiedDir, m))
		if err != nil {
			t.Fatalf("read %s: %v", m, err)
		}
		if s.AlliesNext != next {
			t.Errorf("%s: nextmap got %q want %q", m, s.AlliesNext, next)
		}
	}

	cfg, err := os.ReadFile(report.Config)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(cfg), `set sv_maplist "dust snow port"`) {
		t.Fatalf("config lacks rotation:\n%s", cfg)
	}
	if report.Maplist != filepath.Join(root, servercfg.MaplistFile) {
		t.Fatalf("maplist path: %q", report.Maplist)
	}
}

func TestGenerateSkipsMissingAndUnbalanced(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := DefaultLayout(root)
	writeFile(t, ArtifactPath(l.EntsDir, "dust"), []byte(entityText("Dust", "x")))
	writeFile(t, ArtifactPath(l.EntsDir, "snow"), []byte("{\n\"classname\" \"info_team_start\"\n"))
	rot, _ := rotation.New("dust", "snow", "port")

	report, err := Generate(testContext(), rot, l, GenerateOptions{Strict: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Written() != 1 {
		t.Fatalf("written: got %d want 1", report.Written())
	}
	if !errors.Is(report.Maps[1].Err, ent.ErrUnbalanced) {
		t.Fatalf("snow: expected ErrUnbalanced, got %v", report.Maps[1].Err)
	}
	if !errors.Is(report.Maps[2].Err, ErrMissingArtifact) {
		t.Fatalf("port: expected ErrMissingArtifact, got %v", report.Maps[2].Err)
	}
	if _, err := os.Stat(ArtifactPath(l.ModifiedDir, "snow")); err == nil {
		t.Fatal("strict mode wrote an unbalanced artifact")
	}
}

func TestGenerateEmptyRotation(t *testing.T) {
	t.Parallel()
	rot, _ := rotation.New()
	if _, err := Generate(testContext(), rot, DefaultLayout(t.TempDir()), GenerateOptions{}); !errors.Is(err, rotation.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
