// Package api exposes the workflow entry points over HTTP: triggering
// generation batches, building briefings, the research debug endpoint,
// and health.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/store"
	"github.com/team-leekim/newsnack-ai/internal/workflow"
)

// Server wires the HTTP layer over the workflow service.
type Server struct {
	echo    *echo.Echo
	bind    string
	store   *store.Store
	service *workflow.Service
	redis   redis.UniversalClient
	logger  *slog.Logger
}

// Option configures optional Server behaviour.
type Option func(*Server)

// WithLogger attaches a logger for request events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRedisPing includes the breaker store in health reporting.
func WithRedisPing(client redis.UniversalClient) Option {
	return func(s *Server) {
		s.redis = client
	}
}

// New builds the HTTP server. Call Start to begin serving.
func New(cfg *config.Config, st *store.Store, service *workflow.Service, opts ...Option) *Server {
	s := &Server{
		bind:    cfg.Paths.APIBind,
		store:   st,
		service: service,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "api")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.logRequests)

	e.POST("/api/generations", s.handleGenerations)
	e.POST("/api/briefings", s.handleBriefings)
	e.GET("/api/debug/research/:id", s.handleDebugResearch)
	e.GET("/health", s.handleHealth)

	s.echo = e
	return s
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), requestID)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)

		s.logger.Info("request handled",
			logging.String("method", c.Request().Method),
			logging.String("path", c.Request().URL.Path),
			logging.Int("status", c.Response().Status),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldCorrelationID, requestID))
		return err
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening", logging.String("bind", s.bind))
	if err := s.echo.Start(s.bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type generationsRequest struct {
	IDs []int64 `json:"ids"`
}

type generationsResponse struct {
	Claimed []int64 `json:"claimed"`
}

// handleGenerations claims the eligible subset of the requested items
// and starts background runs. Nothing claimable maps to a conflict so
// duplicate triggers get an explicit signal instead of a silent no-op.
func (s *Server) handleGenerations(c echo.Context) error {
	var req generationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}

	claimed, err := s.service.ClaimAndRunBatch(c.Request().Context(), req.IDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(claimed) == 0 {
		return echo.NewHTTPError(http.StatusConflict, "nothing to process")
	}
	return c.JSON(http.StatusAccepted, generationsResponse{Claimed: claimed})
}

type briefingsRequest struct {
	TargetIDs []int64 `json:"target_ids"`
}

func (s *Server) handleBriefings(c echo.Context) error {
	var req briefingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.TargetIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "target_ids is required")
	}

	briefing, err := s.service.RunBriefing(c.Request().Context(), req.TargetIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, briefing)
}

type debugResearchResponse struct {
	Title        string   `json:"title"`
	Summary      []string `json:"summary"`
	ContentType  string   `json:"content_type"`
	ReferenceURL string   `json:"reference_url,omitempty"`
}

func (s *Server) handleDebugResearch(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid work item id")
	}
	validate, _ := strconv.ParseBool(c.QueryParam("validate"))

	state, err := s.service.DebugResearch(c.Request().Context(), id, validate)
	if errors.Is(err, workflow.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, debugResearchResponse{
		Title:        state.FinalTitle,
		Summary:      state.Summary,
		ContentType:  string(state.Format),
		ReferenceURL: state.ReferenceURL,
	})
}

type healthResponse struct {
	Status  string              `json:"status"`
	Breaker string              `json:"breaker,omitempty"`
	Queue   store.HealthSummary `json:"queue"`
}

// handleHealth reports store health as the overall status. The breaker
// store is advisory: the daemon degrades to fallback behaviour without
// redis, so an unreachable breaker store never fails the check.
func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.store.CheckHealth(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
	}

	resp := healthResponse{Status: "ok", Queue: summary}
	if s.redis != nil {
		resp.Breaker = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			resp.Breaker = "unreachable"
		}
	}
	return c.JSON(http.StatusOK, resp)
}
