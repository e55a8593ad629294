// Package api serves a read-only HTTP view of the engine: health, prometheus
// metrics, host and fleet stats, and per-user record lists.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecteru2/core/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/monitor"
	"github.com/projecteru2/vpsbot/types"
)

const shutdownTimeout = 5 * time.Second

// Fleet is the read side of lifecycle.Manager.
type Fleet interface {
	Stats(ctx context.Context) (lifecycle.FleetStats, error)
	Owned(ctx context.Context, owner string) ([]lifecycle.Entry, error)
}

// HostSampler reports host resource usage.
type HostSampler interface {
	Stats(ctx context.Context) (monitor.HostStats, error)
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Host      *monitor.HostStats   `json:"host,omitempty"`
	HostError string               `json:"host_error,omitempty"`
	Fleet     lifecycle.FleetStats `json:"fleet"`
}

// Server wires the routes onto a gin engine.
type Server struct {
	addr   string
	fleet  Fleet
	host   HostSampler
	router *gin.Engine
}

// New builds a Server listening on addr.
func New(addr string, fleet Fleet, host HostSampler) *Server {
	s := &Server{addr: addr, fleet: fleet, host: host, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.healthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1 := s.router.Group("/v1")
	v1.GET("/stats", s.stats)
	v1.GET("/users/:id/vps", s.userVPS)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := log.WithFunc("api.Run")
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second} //nolint:mnd
	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	ctx := c.Request.Context()
	fleet, err := s.fleet.Stats(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	resp := StatsResponse{Fleet: fleet}
	if s.host != nil {
		if h, err := s.host.Stats(ctx); err != nil {
			resp.HostError = err.Error()
		} else {
			resp.Host = &h
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) userVPS(c *gin.Context) {
	entries, err := s.fleet.Owned(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": c.Param("id"), "vps": entries})
}

func fail(c *gin.Context, err error) {
	log.WithFunc("api").Warnf(c.Request.Context(), "%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, types.ErrMaintenance):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
