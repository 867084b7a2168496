// Package server wires the realtime PlateWatch-Go service together:
// datastore, recognition pipeline, broadcaster, HTTP API, MQTT and
// telemetry, with coordinated graceful shutdown.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/platewatch/platewatch-go/internal/alpr"
	"github.com/platewatch/platewatch-go/internal/api"
	"github.com/platewatch/platewatch-go/internal/broadcast"
	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/datastore"
	"github.com/platewatch/platewatch-go/internal/errors"
	"github.com/platewatch/platewatch-go/internal/logging"
	"github.com/platewatch/platewatch-go/internal/mqtt"
	"github.com/platewatch/platewatch-go/internal/observability"
)

// shutdownTimeout bounds how long the HTTP server may take to drain.
const shutdownTimeout = 10 * time.Second

// Run starts the realtime service and blocks until SIGINT or SIGTERM.
func Run(settings *conf.Settings) error {
	logger := logging.ForService("server")
	if logger == nil {
		logger = slog.Default().With("service", "server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistent store is the system of record; refuse to start without it.
	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database output enabled in settings").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	broadcaster := broadcast.New(settings.Realtime.SSE.ClientBuffer)
	broadcaster.SetMetrics(metrics.Broadcast)

	pipeline := alpr.NewPipeline(settings, nil, nil)
	pipeline.SetMetrics(metrics.ALPR)

	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(settings, metrics.MQTT)
		if err != nil {
			return err
		}
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := mqttClient.Connect(connectCtx); err != nil {
			// MQTT is an optional egress; it reconnects in the background.
			logger.Warn("initial MQTT connection failed", "error", err)
		}
		cancel()
		defer mqttClient.Disconnect()
	}

	var e *echo.Echo
	if settings.WebServer.Enabled {
		e = echo.New()
		e.HideBanner = true
		e.Use(middleware.Recover())

		controller := api.New(e, store, settings, pipeline, broadcaster, mqttClient, metrics)
		defer controller.Shutdown()
	} else {
		logger.Warn("web server disabled; HTTP API and SSE stream are unavailable")
	}

	quitChan := make(chan struct{})
	var telemetryWg sync.WaitGroup
	if settings.Realtime.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return err
		}
		endpoint.Start(&telemetryWg, quitChan)
	}

	g, gctx := errgroup.WithContext(ctx)

	if e != nil {
		g.Go(func() error {
			logger.Info("HTTP server starting", "port", settings.WebServer.Port)
			if err := e.Start(":" + settings.WebServer.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.New(err).
					Category(errors.CategoryHTTP).
					Context("port", settings.WebServer.Port).
					Build()
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		if e != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "error", err)
			}
		}

		close(quitChan)
		telemetryWg.Wait()
		return nil
	})

	return g.Wait()
}
