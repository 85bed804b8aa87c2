package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/pkg/bsp"
)

// Outcome is the result of extracting one container.
type Outcome struct {
	Path     string
	Artifact string
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Kind classifies a failed outcome; successful outcomes report bsp.KindNone.
func (o Outcome) Kind() bsp.ErrorKind { return bsp.Kind(o.Err) }

// Status is the human-readable line shown for the outcome.
func (o Outcome) Status() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", MapName(o.Path), o.Err)
	}
	return fmt.Sprintf("%s: extracted to %s", MapName(o.Path), o.Artifact)
}

// ExtractAll writes the entity text of every container in mapsDir to entsDir.
// A failing container is recorded in its Outcome and the batch continues.
func ExtractAll(ctx context.Context, mapsDir, entsDir string) ([]Outcome, error) {
	paths, err := ListContainers(mapsDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoContainers, mapsDir)
	}
	if err := os.MkdirAll(entsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", entsDir, err)
	}

	log := logger.FromContext(ctx)
	outcomes := make([]Outcome, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o := extract(p, entsDir)
		if o.Err != nil {
			log.Warn("extract failed", "path", p, "kind", o.Kind().String(), "err", o.Err)
		} else {
			log.Debug("extracted", "path", p, "artifact", o.Artifact)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// ExtractOne extracts a single container into entsDir, creating it if needed.
func ExtractOne(path, entsDir string) Outcome {
	if err := os.MkdirAll(entsDir, 0o755); err != nil {
		return Outcome{Path: path, Err: fmt.Errorf("create %s: %w", entsDir, err)}
	}
	return extract(path, entsDir)
}

func extract(path, entsDir string) Outcome {
	f, err := bsp.Parse(path)
	if err != nil {
		return Outcome{Path: path, Err: err}
	}
	artifact, err := bsp.WriteEntityArtifact(entsDir, path, f.Text())
	if err != nil {
		return Outcome{Path: path, Err: fmt.Errorf("write artifact: %w", err)}
	}
	return Outcome{Path: path, Artifact: artifact}
}

// Failed counts the outcomes that carry an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
