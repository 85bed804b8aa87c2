package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v5"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/workspace"
)

type mapsResponse struct {
	Maps []workspace.Entry `json:"maps"`
}

type extractRequest struct {
	// Map limits extraction to one container; empty extracts all.
	Map string `json:"map"`
}

type extractResult struct {
	Map      string `json:"map"`
	Path     string `json:"path"`
	Artifact string `json:"artifact,omitempty"`
	Kind     string `json:"kind"`
	Error    string `json:"error,omitempty"`
}

type extractResponse struct {
	RunID   string          `json:"run_id"`
	Results []extractResult `json:"results"`
	Failed  int             `json:"failed"`
}

func (s *Server) handleListMaps(c *echo.Context) error {
	entries, err := workspace.Inventory(s.cfg.Layout.MapsDir, s.cfg.Layout.EntsDir)
	if err != nil {
		if errors.Is(err, workspace.ErrNoMapsDir) {
			return writeNotFound(c, err.Error())
		}
		return writeServerError(c, err)
	}
	s.metrics.observeInventory(entries)
	if entries == nil {
		entries = []workspace.Entry{}
	}
	return writeJSON(c, http.StatusOK, mapsResponse{Maps: entries})
}

func (s *Server) handleGetMap(c *echo.Context) error {
	name := c.Param("name")
	entry, ok, err := workspace.Lookup(s.cfg.Layout.MapsDir, s.cfg.Layout.EntsDir, name)
	if err != nil {
		if errors.Is(err, workspace.ErrNoMapsDir) {
			return writeNotFound(c, err.Error())
		}
		return writeServerError(c, err)
	}
	if !ok {
		return writeNotFound(c, "map not found: "+name)
	}
	return writeJSON(c, http.StatusOK, entry)
}

func (s *Server) handleExtract(c *echo.Context) error {
	req, err := decodeJSON[extractRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	ctx := c.Request().Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	var outcomes []workspace.Outcome
	if req.Map != "" {
		if filepath.Base(req.Map) != req.Map {
			return writeBadRequest(c, "map must be a bare name")
		}
		entry, ok, err := workspace.Lookup(s.cfg.Layout.MapsDir, s.cfg.Layout.EntsDir, req.Map)
		if err != nil {
			return writeServerError(c, err)
		}
		if !ok {
			return writeNotFound(c, "map not found: "+req.Map)
		}
		outcomes = []workspace.Outcome{workspace.ExtractOne(entry.Path, s.cfg.Layout.EntsDir)}
	} else {
		outcomes, err = workspace.ExtractAll(ctx, s.cfg.Layout.MapsDir, s.cfg.Layout.EntsDir)
		if err != nil {
			if errors.Is(err, workspace.ErrNoMapsDir) || errors.Is(err, workspace.ErrNoContainers) {
				return writeNotFound(c, err.Error())
			}
			return writeServerError(c, err)
		}
	}

	r := s.beginRun(ctx, journal.KindExtract, s.cfg.Layout.MapsDir)
	resp := extractResponse{RunID: r.id, Results: make([]extractResult, 0, len(outcomes))}
	for _, o := range outcomes {
		res := extractResult{
			Map:      workspace.MapName(o.Path),
			Path:     o.Path,
			Artifact: o.Artifact,
			Kind:     o.Kind().String(),
		}
		if o.Err != nil {
			res.Error = o.Err.Error()
			resp.Failed++
		}
		s.metrics.extracted.WithLabelValues(o.Kind().String()).Inc()
		r.item(ctx, filepath.Base(o.Path), o.Err)
		resp.Results = append(resp.Results, res)
	}
	r.finish(ctx, nil)

	status := http.StatusOK
	if len(outcomes) > 0 && resp.Failed == len(outcomes) {
		status = http.StatusUnprocessableEntity
	}
	return writeJSON(c, status, resp)
}
