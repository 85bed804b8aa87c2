// Package bundle packs a generated rotation into a single compressed archive
// that can be verified and deployed later.
package bundle

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

const (
	ManifestName  = "manifest.json"
	Extension     = ".tar.zst"
	formatVersion = 1
)

// Entry types recorded in the manifest.
const (
	TypeMaplist = "maplist"
	TypeConfig  = "config"
	TypeEntity  = "entity"
)

var (
	ErrNoManifest     = errors.New("bundle has no manifest")
	ErrDigestMismatch = errors.New("digest mismatch")
	ErrMissingFile    = errors.New("file listed in manifest is missing")
)

// Manifest describes the contents of a bundle.
type Manifest struct {
	Version   int                  `json:"version"`
	Tool      string               `json:"tool"`
	Timestamp string               `json:"timestamp"`
	Rotation  []string             `json:"rotation"`
	Files     map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the bundle.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Type   string `json:"type"`
}

// Params holds the inputs of Create. Empty paths are skipped.
type Params struct {
	Dir         string
	MaplistPath string
	ConfigPath  string
	// EntityFiles are stored under ents/ by base name.
	EntityFiles []string
	Rotation    []string
	// Time stamps the manifest and the file name; zero means now.
	Time time.Time
}

// Create writes <Dir>/maprot-<timestamp>.tar.zst and returns its path and manifest.
func Create(p Params) (string, *Manifest, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("bundle: create dir %s: %w", p.Dir, err)
	}
	now := p.Time
	if now.IsZero() {
		now = time.Now()
	}
	archivePath := filepath.Join(p.Dir, "maprot-"+now.UTC().Format("20060102-150405")+Extension)

	manifest := &Manifest{
		Version:   formatVersion,
		Tool:      "maprot",
		Timestamp: now.UTC().Format(time.RFC3339),
		Rotation:  p.Rotation,
		Files:     make(map[string]FileEntry),
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("bundle: create %s: %w", archivePath, err)
	}
	err = writeArchive(f, p, manifest, now)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(archivePath)
		return "", nil, err
	}
	return archivePath, manifest, nil
}

func writeArchive(w io.Writer, p Params, manifest *Manifest, now time.Time) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	tw := tar.NewWriter(enc)

	type source struct{ local, name, typ string }
	var sources []source
	if p.MaplistPath != "" {
		sources = append(sources, source{p.MaplistPath, filepath.Base(p.MaplistPath), TypeMaplist})
	}
	if p.ConfigPath != "" {
		sources = append(sources, source{p.ConfigPath, filepath.Base(p.ConfigPath), TypeConfig})
	}
	ents := append([]string(nil), p.EntityFiles...)
	sort.Strings(ents)
	for _, e := range ents {
		sources = append(sources, source{e, path.Join("ents", filepath.Base(e)), TypeEntity})
	}

	for _, s := range sources {
		entry, err := addFile(tw, s.local, s.name, now)
		if err != nil {
			return err
		}
		entry.Type = s.typ
		manifest.Files[s.name] = entry
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: marshal manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    ManifestName,
		Size:    int64(len(data)),
		Mode:    0o644,
		ModTime: now,
	}); err != nil {
		return fmt.Errorf("bundle: write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("bundle: write manifest: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("bundle: close tar: %w", err)
	}
	return enc.Close()
}

func addFile(tw *tar.Writer, local, name string, now time.Time) (FileEntry, error) {
	f, err := os.Open(local)
	if err != nil {
		return FileEntry{}, fmt.Errorf("bundle: open %s: %w", local, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("bundle: stat %s: %w", local, err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Size:    st.Size(),
		Mode:    0o644,
		ModTime: now,
	}); err != nil {
		return FileEntry{}, fmt.Errorf("bundle: write header %s: %w", name, err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tw, h), f)
	if err != nil {
		return FileEntry{}, fmt.Errorf("bundle: write %s: %w", name, err)
	}
	return FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// Verify reads the bundle at archivePath and checks every file against the
// manifest digests.
func Verify(archivePath string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	defer dec.Close()

	seen := make(map[string]FileEntry)
	var manifest *Manifest
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bundle: read %s: %w", archivePath, err)
		}
		if hdr.Name == ManifestName {
			manifest = &Manifest{}
			if err := json.NewDecoder(tr).Decode(manifest); err != nil {
				return nil, fmt.Errorf("bundle: decode manifest: %w", err)
			}
			continue
		}
		h := sha256.New()
		n, err := io.Copy(h, tr)
		if err != nil {
			return nil, fmt.Errorf("bundle: read %s: %w", hdr.Name, err)
		}
		seen[hdr.Name] = FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}
	}
	if manifest == nil {
		return nil, ErrNoManifest
	}

	names := make([]string, 0, len(manifest.Files))
	for name := range manifest.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs []error
	for _, name := range names {
		want := manifest.Files[name]
		got, ok := seen[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFile, name))
		case got.SHA256 != want.SHA256 || got.Size != want.Size:
			errs = append(errs, fmt.Errorf("%w: %s", ErrDigestMismatch, name))
		}
	}
	return manifest, errors.Join(errs...)
}
