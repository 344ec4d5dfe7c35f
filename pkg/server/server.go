// Package server exposes the harvester over HTTP: health, repository and
// study lookups, and an authenticated trigger for harvest runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coolbeans/ddiharvest/pkg/harvest"
	"github.com/coolbeans/ddiharvest/pkg/index"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when a harvest is triggered while another
// one is still running.
var ErrRunInProgress = errors.New("a harvest is already running")

// Pinger is implemented by sinks that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the trigger and diagnostic API.
type Server struct {
	runner  *harvest.Runner
	tracker *harvest.Tracker
	tokens  *TokenService
	ctx     context.Context

	mu     sync.Mutex
	active string
	wg     sync.WaitGroup
}

// New creates a server. Harvests it starts run under ctx. When tokens is
// nil the trigger endpoint is unauthenticated.
func New(ctx context.Context, runner *harvest.Runner, tokens *TokenService) *Server {
	if runner.Tracker == nil {
		runner.Tracker = harvest.NewTracker(50)
	}
	return &Server{
		runner:  runner,
		tracker: runner.Tracker,
		tokens:  tokens,
		ctx:     ctx,
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.health)
	r.GET("/repositories", s.listRepositories)
	r.GET("/studies/:lang/:id", s.getStudy)

	harvests := r.Group("/harvests")
	harvests.GET("", s.listHarvests)
	harvests.GET("/:id", s.getHarvest)
	if s.tokens != nil {
		harvests.POST("", requireScope(*s.tokens, ScopeHarvest), s.triggerHarvest)
	} else {
		harvests.POST("", s.triggerHarvest)
	}
	return r
}

// Trigger starts a harvest in the background and returns its run id.
func (s *Server) Trigger(opts harvest.RunOptions) (string, error) {
	if err := s.checkRepositories(opts.Repositories); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		return "", ErrRunInProgress
	}
	if opts.ID == "" {
		opts.ID = harvest.NewRunID()
	}
	s.active = opts.ID
	s.mu.Unlock()

	startedAt := time.Now().UTC()
	s.tracker.Put(&harvest.Report{
		ID:        opts.ID,
		Status:    harvest.StatusRunning,
		Full:      opts.Full,
		StartedAt: startedAt,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.active = ""
			s.mu.Unlock()
		}()

		report, err := s.runner.Run(s.ctx, opts)
		if err == nil {
			return
		}
		log.WithFields(log.Fields{"run": opts.ID, "error": err}).Error("Harvest failed")
		if report == nil {
			s.tracker.Put(&harvest.Report{
				ID:         opts.ID,
				Status:     harvest.StatusFailed,
				Full:       opts.Full,
				StartedAt:  startedAt,
				FinishedAt: time.Now().UTC(),
				Error:      err.Error(),
			})
		}
	}()
	return opts.ID, nil
}

// Wait blocks until background harvests have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) checkRepositories(codes []string) error {
	known := make(map[string]struct{})
	for _, repo := range s.runner.Repositories.List() {
		known[repo.Code] = struct{}{}
	}
	for _, code := range codes {
		if _, ok := known[code]; !ok {
			return fmt.Errorf("%w: %s", harvest.ErrUnknownRepository, code)
		}
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok", "running": s.tracker.Running()}
	if pinger, ok := s.runner.Sink.(Pinger); ok {
		if err := pinger.Ping(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["index"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) listRepositories(c *gin.Context) {
	repos := s.runner.Repositories.List()
	c.JSON(http.StatusOK, gin.H{
		"total": len(repos),
		"items": repos,
	})
}

func (s *Server) getStudy(c *gin.Context) {
	record, err := s.runner.Sink.Get(c.Request.Context(), c.Param("lang"), c.Param("id"))
	if errors.Is(err, index.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) listHarvests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.tracker.List()})
}

func (s *Server) getHarvest(c *gin.Context) {
	report, ok := s.tracker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

type triggerRequest struct {
	Full         bool     `json:"full"`
	Repositories []string `json:"repositories"`
}

func (s *Server) triggerHarvest(c *gin.Context) {
	var req triggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	id, err := s.Trigger(harvest.RunOptions{Full: req.Full, Repositories: req.Repositories})
	switch {
	case errors.Is(err, harvest.ErrUnknownRepository):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trigger failed"})
		return
	}

	fields := log.Fields{"run": id, "full": req.Full}
	if claims := claimsFrom(c); claims != nil {
		fields["subject"] = claims.Subject
	}
	log.WithFields(fields).Info("Harvest triggered")

	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request served")
	}
}
