// Package workspace drives the per-map pipeline over a directory layout:
// containers in a maps directory, extracted entity text next to them, and
// rewritten copies ready for deployment.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrcl/maprot/pkg/bsp"
)

// Default directory names, relative to the work dir.
const (
	DefaultMapsDir     = "maps"
	DefaultEntsDir     = "ents"
	DefaultModifiedDir = "ents_modificados"
)

var (
	ErrNoMapsDir    = errors.New("maps directory not found")
	ErrNoContainers = errors.New("no .bsp files found")
)

// Layout names the directories the pipeline reads and writes.
type Layout struct {
	MapsDir     string
	EntsDir     string
	ModifiedDir string
	// OutputDir receives maplist.txt and server.cfg.
	OutputDir string
}

// DefaultLayout places every directory under root, the way a fresh checkout
// of a server's working copy is organized.
func DefaultLayout(root string) Layout {
	return Layout{
		MapsDir:     filepath.Join(root, DefaultMapsDir),
		EntsDir:     filepath.Join(root, DefaultEntsDir),
		ModifiedDir: filepath.Join(root, DefaultModifiedDir),
		OutputDir:   root,
	}
}

// ListContainers returns the container files in dir sorted by name. The
// extension match ignores case.
func ListContainers(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoMapsDir, dir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoMapsDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), bsp.Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// MapName is the identifier used in rotations: the base name without extension.
func MapName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactPath is where the entity text for map lives in dir.
func ArtifactPath(dir, mapName string) string {
	return filepath.Join(dir, mapName+bsp.ArtifactExtension)
}

func artifactExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
