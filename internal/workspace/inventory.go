package workspace

import (
	"github.com/mrcl/maprot/pkg/ent"
)

// Artifact states shown in the inventory.
const (
	StatusGenerated = "generated"
	StatusMissing   = "missing"
)

// Entry is one row of the map inventory.
type Entry struct {
	Map      string      `json:"map"`
	Path     string      `json:"path"`
	Artifact string      `json:"artifact,omitempty"`
	Status   string      `json:"status"`
	Summary  ent.Summary `json:"summary"`
	// Error is set when the artifact exists but could not be read.
	Error string `json:"error,omitempty"`
}

// Inventory lists every container in mapsDir with the state of its entity
// artifact in entsDir. Maps without an artifact carry placeholder summaries.
func Inventory(mapsDir, entsDir string) ([]Entry, error) {
	paths, err := ListContainers(mapsDir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, Describe(p, entsDir))
	}
	return entries, nil
}

// Describe builds the inventory row for one container path.
func Describe(containerPath, entsDir string) Entry {
	name := MapName(containerPath)
	e := Entry{Map: name, Path: containerPath, Status: StatusMissing, Summary: ent.Unavailable()}

	artifact := ArtifactPath(entsDir, name)
	if !artifactExists(artifact) {
		return e
	}
	e.Artifact = artifact
	e.Status = StatusGenerated
	summary, err := ent.ReadSummary(artifact)
	e.Summary = summary
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Lookup returns the inventory row for name, or false when mapsDir has no
// such container.
func Lookup(mapsDir, entsDir, name string) (Entry, bool, error) {
	entries, err := Inventory(mapsDir, entsDir)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Map == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}
