// Package api exposes the daemon's localhost HTTP surface. The browser
// extension is the primary client: it reports navigations, fetches
// friction content and records overrides.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eliteGoblin/sleepshield/internal/domain"
	"github.com/eliteGoblin/sleepshield/internal/ledger"
	"github.com/eliteGoblin/sleepshield/internal/usecase"
)

// Server wires the gatekeeper into a gin router.
type Server struct {
	gatekeeper *usecase.Gatekeeper
	logger     *zap.Logger
}

// NewServer creates the HTTP server wrapper.
func NewServer(gatekeeper *usecase.Gatekeeper, logger *zap.Logger) *Server {
	return &Server{gatekeeper: gatekeeper, logger: logger}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/navigation", s.postNavigation)
		v1.GET("/friction", s.getFriction)
		v1.POST("/overrides", s.postOverride)
		v1.GET("/status", s.getStatus)
		v1.PUT("/config", s.putConfig)
	}
	return router
}

// NavigationRequest is one navigation event from the extension.
type NavigationRequest struct {
	URL     string `json:"url" binding:"required"`
	FrameID int    `json:"frame_id"`
	TabID   int    `json:"tab_id"`
}

// OverrideRequest asks for a bypass on one domain. DurationMinutes of
// -1 means until the next wake time.
type OverrideRequest struct {
	Domain          string `json:"domain" binding:"required"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s *Server) postNavigation(c *gin.Context) {
	var req NavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "code": 400})
		return
	}

	decision := s.gatekeeper.ShouldBlock(c.Request.Context(), req.URL, req.FrameID)
	c.JSON(http.StatusOK, decision)
}

func (s *Server) getFriction(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site query parameter required", "code": 400})
		return
	}

	item, err := s.gatekeeper.Friction(c.Request.Context(), site)
	switch {
	case errors.Is(err, usecase.ErrNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "setup not complete", "code": 409})
		return
	case err != nil:
		s.logger.Error("friction selection failed", zap.String("site", site), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to select content: " + err.Error(), "code": 500})
		return
	}
	c.JSON(http.StatusOK, item)
}

// postOverride distinguishes three failures: bad input, missing setup
// and a store that rejected the write twice. The last one is the
// extension's cue to tell the user the bypass did not stick.
func (s *Server) postOverride(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "code": 400})
		return
	}

	record, err := s.gatekeeper.RecordOverride(c.Request.Context(), req.Domain, req.Reason, req.DurationMinutes)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, record)
	case errors.Is(err, ledger.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": 400})
	case errors.Is(err, usecase.ErrNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "setup not complete", "code": 409})
	default:
		s.logger.Error("override write failed", zap.String("domain", req.Domain), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "override not persisted: " + err.Error(), "code": 502})
	}
}

func (s *Server) getStatus(c *gin.Context) {
	report, err := s.gatekeeper.Status(c.Request.Context())
	if err != nil {
		s.logger.Error("status read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read status: " + err.Error(), "code": 500})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) putConfig(c *gin.Context) {
	var setup domain.Setup
	if err := c.ShouldBindJSON(&setup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "code": 400})
		return
	}

	if err := s.gatekeeper.Configure(c.Request.Context(), setup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": 400})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
