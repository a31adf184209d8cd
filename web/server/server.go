package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/scene"
)

// Options configures the web server
type Options struct {
	ModelsDir     string        // Directory scanned for .ply models
	StaticDir     string        // Front-end files served at /, skipped when missing
	EventInterval time.Duration // Period of stats events on /api/events
}

// DefaultOptions returns the options used by the web command
func DefaultOptions() Options {
	return Options{
		ModelsDir:     "models",
		StaticDir:     "static",
		EventInterval: 250 * time.Millisecond,
	}
}

// Server handles web requests for the progressive path tracer
type Server struct {
	echo    *echo.Echo
	session *Session
	console *Console
	options Options
	logger  *zap.Logger
}

// NewServer creates a server around a running session
func NewServer(session *Session, console *Console, options Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if console == nil {
		console = NewConsole()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		session: session,
		console: console,
		options: options,
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(requestLogger(s.logger))

	if info, err := os.Stat(s.options.StaticDir); err == nil && info.IsDir() {
		s.echo.Static("/", s.options.StaticDir)
	}

	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.GET("/models", s.handleModels)
	api.GET("/frame", s.handleFrame)
	api.GET("/stats", s.handleStats)
	api.POST("/reset", s.handleReset)
	api.GET("/inspect", s.handleInspect)
	api.GET("/events", s.handleEvents)
}

// ServeHTTP lets the server be mounted or tested as a plain handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.logger.Info("starting web server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for open ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger logs every request with its status and latency
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Debug("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

// errorResponse is the body of every API error
type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, s.session.Settings())
}

// handlePutSettings merges the request body over the active settings. Fields
// missing from the body keep their current values.
func (s *Server) handlePutSettings(c echo.Context) error {
	next := s.session.Settings()
	if err := c.Bind(next); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid settings body")
	}

	if err := s.session.UpdateSettings(next); err != nil {
		if errors.Is(err, config.ErrInvalidSettings) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		s.logger.Warn("settings rejected", zap.Error(err))
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, s.session.Settings())
}

// handleModels lists built-in models and discovered PLY files
func (s *Server) handleModels(c echo.Context) error {
	response, err := scene.ListAllModels(s.options.ModelsDir)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, response)
}
