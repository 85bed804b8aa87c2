package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/pkg/ent"
)

// ErrMissingArtifact marks a rotation entry whose entity text was never extracted.
var ErrMissingArtifact = errors.New("entity artifact missing")

// GenerateOptions controls a generation run.
type GenerateOptions struct {
	Settings servercfg.Settings
	// Strict skips artifacts whose braces do not pair up instead of rewriting
	// them best effort.
	Strict bool
}

// MapResult is the outcome of rewriting one rotation entry.
type MapResult struct {
	Map     string `json:"map"`
	Next    string `json:"next"`
	Output  string `json:"output,omitempty"`
	Err     error  `json:"-"`
	Message string `json:"error,omitempty"`
}

// Report summarizes a generation run.
type Report struct {
	Maps    []MapResult `json:"maps"`
	Maplist string      `json:"maplist"`
	Config  string      `json:"config"`
	// Warnings are non-fatal observations such as an oversized maplist.
	Warnings []string `json:"warnings,omitempty"`
}

// Written counts the entries whose modified artifact was produced.
func (r *Report) Written() int {
	n := 0
	for _, m := range r.Maps {
		if m.Err == nil {
			n++
		}
	}
	return n
}

// Generate rewrites every entity artifact named in rot so that its nextmap is
// the circular successor, writing the results to l.ModifiedDir, and then
// writes maplist.txt and server.cfg for the whole rotation to l.OutputDir.
// A missing or unreadable artifact is recorded and skipped.
func Generate(ctx context.Context, rot *rotation.Rotation, l Layout, opts GenerateOptions) (*Report, error) {
	if rot.Len() == 0 {
		return nil, rotation.ErrEmpty
	}
	if err := os.MkdirAll(l.ModifiedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", l.ModifiedDir, err)
	}
	if err := os.MkdirAll(l.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", l.OutputDir, err)
	}

	log := logger.FromContext(ctx)
	report := &Report{}
	for _, link := range rot.Links() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := rewriteOne(link, l, opts.Strict)
		if res.Err != nil {
			res.Message = res.Err.Error()
			log.Warn("skipped map", "map", link.Map, "err", res.Err)
		} else {
			log.Debug("rewrote nextmap", "map", link.Map, "next", link.Next)
		}
		report.Maps = append(report.Maps, res)
	}

	maps := rot.Maps()
	if len(maps) > rotation.MaxMaplistEntries {
		w := fmt.Sprintf("rotation has %d maps; the server reads at most %d from %s",
			len(maps), rotation.MaxMaplistEntries, servercfg.MaplistFile)
		report.Warnings = append(report.Warnings, w)
		log.Warn(w)
	}

	var err error
	if report.Maplist, err = servercfg.WriteMaplist(l.OutputDir, maps); err != nil {
		return report, err
	}
	if report.Config, err = servercfg.WriteConfig(l.OutputDir, maps, opts.Settings); err != nil {
		return report, err
	}
	return report, nil
}

func rewriteOne(link rotation.Link, l Layout, strict bool) MapResult {
	res := MapResult{Map: link.Map, Next: link.Next}
	src := ArtifactPath(l.EntsDir, link.Map)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			res.Err = fmt.Errorf("%w: %s", ErrMissingArtifact, src)
		} else {
			res.Err = fmt.Errorf("%w: %w", ent.ErrUnreadable, err)
		}
		return res
	}

	text := string(data)
	if strict {
		if err := ent.Validate(text); err != nil {
			res.Err = fmt.Errorf("%s: %w", src, err)
			return res
		}
	}

	dst := ArtifactPath(l.ModifiedDir, link.Map)
	if err := os.WriteFile(dst, []byte(ent.RewriteNextmap(text, link.Next)), 0o644); err != nil {
		res.Err = fmt.Errorf("write %s: %w", dst, err)
		return res
	}
	res.Output = dst
	return res
}
