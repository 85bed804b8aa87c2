package bundle

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCreateAndVerify(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	p := Params{
		Dir:         filepath.Join(t.TempDir(), "bundles"),
		MaplistPath: writeFile(t, src, "maplist.txt", "[maplist]\ndust\nsnow\n###\n"),
		ConfigPath:  writeFile(t, src, "server.cfg", "map dust\n"),
		EntityFiles: []string{
			writeFile(t, src, "snow.ent", `{"classname" "worldspawn"}`),
			writeFile(t, src, "dust.ent", `{"classname" "worldspawn"}`),
		},
		Rotation: []string{"dust", "snow"},
		Time:     time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	archive, manifest, err := Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(archive) != "maprot-20260304-050607.tar.zst" {
		t.Fatalf("archive name: got %q", filepath.Base(archive))
	}
	if len(manifest.Files) != 4 {
		t.Fatalf("manifest files: got %d want 4", len(manifest.Files))
	}
	if e := manifest.Files["ents/dust.ent"]; e.Type != TypeEntity || e.Size != int64(len(`{"classname" "worldspawn"}`)) {
		t.Fatalf("dust entry: %+v", e)
	}

	got, err := Verify(archive)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Timestamp != "2026-03-04T05:06:07Z" || strings.Join(got.Rotation, ",") != "dust,snow" {
		t.Fatalf("manifest round trip: %+v", got)
	}
	if got.Files["server.cfg"].SHA256 != manifest.Files["server.cfg"].SHA256 {
		t.Fatal("digest changed between create and verify")
	}
}

func TestCreateMissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, _, err := Create(Params{Dir: dir, ConfigPath: filepath.Join(dir, "absent.cfg")})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	left, _ := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if len(left) != 0 {
		t.Fatalf("partial archive left behind: %v", left)
	}
}

func writeRawArchive(t *testing.T, path string, files map[string]string, manifest *Manifest) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	tw := tar.NewWriter(enc)
	add := func(name string, data []byte) {
		if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}); err != nil {
			t.Fatalf("header: %v", err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for name, content := range files {
		add(name, []byte(content))
	}
	if manifest != nil {
		data, err := json.Marshal(manifest)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		add(ManifestName, data)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close zstd: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad"+Extension)
	writeRawArchive(t, path, map[string]string{"server.cfg": "map evil\n"}, &Manifest{
		Version: formatVersion,
		Files: map[string]FileEntry{
			"server.cfg":    {SHA256: strings.Repeat("0", 64), Size: 9},
			"ents/dust.ent": {SHA256: strings.Repeat("0", 64), Size: 1},
		},
	})

	_, err := Verify(path)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected ErrDigestMismatch, got %v", err)
	}
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
}

func TestVerifyWithoutManifest(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bare"+Extension)
	writeRawArchive(t, path, map[string]string{"server.cfg": "x"}, nil)
	if _, err := Verify(path); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest, got %v", err)
	}
}
