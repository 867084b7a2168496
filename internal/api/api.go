// Package api provides the HTTP API for PlateWatch-Go: image scans,
// manual plate entry, detection queries and the live event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/platewatch/platewatch-go/internal/alpr"
	"github.com/platewatch/platewatch-go/internal/broadcast"
	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/datastore"
	"github.com/platewatch/platewatch-go/internal/logging"
	"github.com/platewatch/platewatch-go/internal/mqtt"
	"github.com/platewatch/platewatch-go/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	DS          datastore.Interface
	Settings    *conf.Settings
	Pipeline    *alpr.Pipeline
	Broadcaster *broadcast.Broadcaster
	MQTTClient  mqtt.Client

	detectionCache *cache.Cache
	apiLogger      *slog.Logger
	metrics        *observability.Metrics

	detectionLogMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new API controller and registers its routes under
// /api/v1. The MQTT client may be nil when publishing is disabled.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	pipeline *alpr.Pipeline, broadcaster *broadcast.Broadcaster,
	mqttClient mqtt.Client, metrics *observability.Metrics) *Controller {

	apiLogger := logging.ForService("api")
	if apiLogger == nil {
		apiLogger = slog.Default().With("service", "api")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Echo:           e,
		Group:          e.Group("/api/v1"),
		DS:             ds,
		Settings:       settings,
		Pipeline:       pipeline,
		Broadcaster:    broadcaster,
		MQTTClient:     mqttClient,
		detectionCache: cache.New(5*time.Second, time.Minute),
		apiLogger:      apiLogger,
		metrics:        metrics,
		ctx:            ctx,
		cancel:         cancel,
	}

	c.Group.Use(c.LoggingMiddleware())
	c.initRoutes()

	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.initDetectionRoutes()
	c.initSSERoutes()
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	if c.Settings.WebServer.Debug {
		response["environment"] = "development"
	}
	return ctx.JSON(http.StatusOK, response)
}

// Shutdown stops background goroutines started by the controller.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

// LoggingMiddleware logs each API request with timing information.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			if c.metrics != nil {
				c.metrics.HTTP.ObserveRequest(req.Method, ctx.Path(), res.Status, start)
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}
