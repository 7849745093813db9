// Package api serves the butterfly, user and score services over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacentio/lepidoptera/internal/outcome"
	"github.com/jacentio/lepidoptera/service"
)

// bodyLimit bounds request bodies; every entity is a handful of short strings.
const bodyLimit = "64K"

// Server routes HTTP requests to the entity services.
type Server struct {
	echo     *echo.Echo
	services *service.Services
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer sets the registry exposed on /metrics. Defaults to
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a Server with every route registered.
func New(services *service.Services, opts ...Option) *Server {
	s := &Server{
		echo:     echo.New(),
		services: services,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleHTTPError

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit(bodyLimit))
	s.echo.Use(s.requestLogger())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.root)

	s.echo.GET("/butterflies/:butterflyId", s.getButterfly)
	s.echo.POST("/butterflies", s.createButterfly)

	s.echo.GET("/users/:userId", s.getUser)
	s.echo.POST("/users", s.createUser)

	s.echo.POST("/scores/:userId", s.createScore)
	s.echo.GET("/scores/:userId", s.listScores)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency.Round(time.Microsecond)),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	})
}

// handleHTTPError renders every failed request as {"error": ...}. Service
// errors are classified by outcome; errors raised by echo itself (unknown
// routes, oversized bodies, recovered panics) keep their status code.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := outcome.Classify(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch status {
		case http.StatusNotFound:
			msg = outcome.MsgNotFound
		case http.StatusRequestEntityTooLarge:
			msg = outcome.MsgInvalidBody
		default:
			msg = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, outcome.Error{Error: msg})
	}
	if err != nil {
		s.logger.Error("write error response", "error", err)
	}
}

// readBody decodes the request body as a JSON object.
func readBody(c echo.Context) (map[string]any, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	return outcome.DecodeObject(data)
}
