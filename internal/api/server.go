// Package api serves the map workspace over HTTP: the inventory, the stored
// rotation and the extract and generate drivers.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/internal/version"
	"github.com/mrcl/maprot/internal/webui"
	"github.com/mrcl/maprot/internal/workspace"
)

// Config wires the server to a workspace.
type Config struct {
	Layout       workspace.Layout
	Store        *rotation.Store
	RotationName string
	Settings     servercfg.Settings
	Strict       bool
	// Journal is optional; without it runs are not recorded.
	Journal *journal.Journal
	// Registry defaults to a private registry with Go and process collectors.
	Registry *prometheus.Registry
	Logger   logger.Logger
}

type Server struct {
	cfg     Config
	metrics *Metrics
	log     logger.Logger

	// mu serializes handlers that write into the workspace.
	mu sync.Mutex
}

func NewServer(cfg Config) *Server {
	if cfg.RotationName == "" {
		cfg.RotationName = rotation.DefaultName
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Server{cfg: cfg, metrics: newMetrics(cfg.Registry), log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.handleMetrics)

	e.GET("/v1/maps", s.handleListMaps)
	e.GET("/v1/maps/:name", s.handleGetMap)
	e.POST("/v1/extract", s.handleExtract)

	e.GET("/v1/rotation", s.handleGetRotation)
	e.PUT("/v1/rotation", s.handlePutRotation)
	e.POST("/v1/rotation/maps", s.handleAddRotationMap)
	e.DELETE("/v1/rotation/maps/:name", s.handleRemoveRotationMap)
	e.POST("/v1/rotation/generate", s.handleGenerate)

	e.GET("/v1/runs", s.handleRuns)

	e.GET("/", s.handleDashboard)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleDashboard(c *echo.Context) error {
	webui.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.Handler(s.refreshGauges).ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) refreshGauges() {
	if entries, err := workspace.Inventory(s.cfg.Layout.MapsDir, s.cfg.Layout.EntsDir); err == nil {
		s.metrics.observeInventory(entries)
	}
	if rot, err := s.cfg.Store.Load(s.cfg.RotationName); err == nil {
		s.metrics.rotationLen.Set(float64(rot.Len()))
	}
}

// run records one driver invocation in the journal when one is configured.
type run struct {
	s  *Server
	id string
}

func (s *Server) beginRun(ctx context.Context, kind, detail string) *run {
	r := &run{s: s}
	if s.cfg.Journal != nil {
		id, err := s.cfg.Journal.Begin(ctx, kind, detail)
		if err == nil {
			r.id = id
			return r
		}
		s.log.Warn("journal begin failed", "err", err)
	}
	r.id = uuid.NewString()
	return r
}

func (r *run) item(ctx context.Context, subject string, err error) {
	if r.s.cfg.Journal == nil {
		return
	}
	if jerr := r.s.cfg.Journal.Item(ctx, r.id, subject, err); jerr != nil {
		r.s.log.Warn("journal item failed", "run", r.id, "err", jerr)
	}
}

func (r *run) finish(ctx context.Context, fatal error) {
	if r.s.cfg.Journal == nil {
		return
	}
	if jerr := r.s.cfg.Journal.Finish(ctx, r.id, fatal); jerr != nil {
		r.s.log.Warn("journal finish failed", "run", r.id, "err", jerr)
	}
}
