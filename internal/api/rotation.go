package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/workspace"
)

type rotationResponse struct {
	Name  string          `json:"name"`
	Maps  []string        `json:"maps"`
	Links []rotation.Link `json:"links"`
}

type putRotationRequest struct {
	Maps []string `json:"maps"`
}

type addMapRequest struct {
	Map string `json:"map"`
	// Index inserts at a position; nil appends.
	Index *int `json:"index,omitempty"`
}

type generateResponse struct {
	RunID string `json:"run_id"`
	*workspace.Report
}

func (s *Server) rotationResponse(rot *rotation.Rotation) rotationResponse {
	links := rot.Links()
	if links == nil {
		links = []rotation.Link{}
	}
	return rotationResponse{Name: s.cfg.RotationName, Maps: rot.Maps(), Links: links}
}

func (s *Server) handleGetRotation(c *echo.Context) error {
	rot, err := s.cfg.Store.Load(s.cfg.RotationName)
	if err != nil {
		return writeServerError(c, err)
	}
	return writeJSON(c, http.StatusOK, s.rotationResponse(rot))
}

func (s *Server) handlePutRotation(c *echo.Context) error {
	req, err := decodeJSON[putRotationRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	rot, err := rotation.New(req.Maps...)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "maps")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cfg.Store.Save(s.cfg.RotationName, rot); err != nil {
		return writeServerError(c, err)
	}
	return writeJSON(c, http.StatusOK, s.rotationResponse(rot))
}

func (s *Server) handleAddRotationMap(c *echo.Context) error {
	req, err := decodeJSON[addMapRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rot, err := s.cfg.Store.Update(s.cfg.RotationName, func(r *rotation.Rotation) error {
		if req.Index != nil {
			return r.Insert(*req.Index, req.Map)
		}
		return r.Add(req.Map)
	})
	if err != nil {
		return s.writeRotationError(c, err)
	}
	return writeJSON(c, http.StatusOK, s.rotationResponse(rot))
}

func (s *Server) handleRemoveRotationMap(c *echo.Context) error {
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()
	rot, err := s.cfg.Store.Update(s.cfg.RotationName, func(r *rotation.Rotation) error {
		return r.Remove(name)
	})
	if err != nil {
		return s.writeRotationError(c, err)
	}
	return writeJSON(c, http.StatusOK, s.rotationResponse(rot))
}

func (s *Server) writeRotationError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, rotation.ErrNotFound):
		return writeNotFound(c, err.Error())
	case errors.Is(err, rotation.ErrDuplicate):
		return writeError(c, http.StatusConflict, "conflict_error", err.Error(), "map")
	case errors.Is(err, rotation.ErrBadName), errors.Is(err, rotation.ErrPosition):
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "map")
	default:
		return writeServerError(c, err)
	}
}

func (s *Server) handleGenerate(c *echo.Context) error {
	ctx := c.Request().Context()

	s.mu.Lock()
	defer s.mu.Unlock()
	rot, err := s.cfg.Store.Load(s.cfg.RotationName)
	if err != nil {
		return writeServerError(c, err)
	}
	if rot.Len() == 0 {
		return writeBadRequest(c, rotation.ErrEmpty.Error())
	}

	r := s.beginRun(ctx, journal.KindGenerate, s.cfg.RotationName)
	report, err := workspace.Generate(ctx, rot, s.cfg.Layout, workspace.GenerateOptions{
		Settings: s.cfg.Settings,
		Strict:   s.cfg.Strict,
	})
	if report != nil {
		for _, m := range report.Maps {
			result := "ok"
			if m.Err != nil {
				result = "skipped"
			}
			s.metrics.rewritten.WithLabelValues(result).Inc()
			r.item(ctx, m.Map, m.Err)
		}
	}
	r.finish(ctx, err)
	if err != nil {
		return writeServerError(c, err)
	}
	s.metrics.generations.Inc()
	s.log.Info("generated rotation", "run", r.id, "maps", rot.Len(), "written", report.Written())
	return writeJSON(c, http.StatusOK, generateResponse{RunID: r.id, Report: report})
}

func (s *Server) handleRuns(c *echo.Context) error {
	if s.cfg.Journal == nil {
		return writeNotFound(c, "run journal not configured")
	}
	runs, err := s.cfg.Journal.Recent(c.Request().Context(), 50)
	if err != nil {
		return writeServerError(c, err)
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	return writeJSON(c, http.StatusOK, map[string]any{"runs": runs})
}
