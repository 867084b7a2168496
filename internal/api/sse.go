package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// initSSERoutes registers the live event stream endpoints
func (c *Controller) initSSERoutes() {
	c.Group.GET("/detections/stream", c.StreamDetections)
	c.Group.GET("/sse/status", c.GetSSEStatus)
}

// StreamDetections handles the SSE connection for real-time detection
// streaming. Each connection becomes one broadcaster subscriber; events
// published after the connection opens are forwarded as they arrive.
// Clients that want history must query the recent endpoint first.
func (c *Controller) StreamDetections(ctx echo.Context) error {
	ctx.Response().Header().Set("Content-Type", "text/event-stream")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	ctx.Response().Header().Set("Connection", "keep-alive")
	ctx.Response().Header().Set("Access-Control-Allow-Origin", "*")

	sub := c.Broadcaster.Subscribe()
	defer c.Broadcaster.Unsubscribe(sub.ID)

	if err := c.sendSSEMessage(ctx, "connected", map[string]string{
		"client_id": sub.ID,
		"message":   "Connected to detection stream",
	}); err != nil {
		return err
	}

	c.apiLogger.Info("SSE client connected",
		"client_id", sub.ID,
		"ip", ctx.RealIP(),
		"user_agent", ctx.Request().UserAgent(),
	)
	defer c.apiLogger.Info("SSE client disconnected", "client_id", sub.ID, "ip", ctx.RealIP())

	heartbeat := time.Duration(c.Settings.Realtime.SSE.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events:
			if err := c.sendSSEMessage(ctx, "detection", event); err != nil {
				c.apiLogger.Debug("failed to send SSE event, client likely disconnected",
					"client_id", sub.ID, "error", err)
				return nil
			}

		case <-ticker.C:
			if err := c.sendSSEMessage(ctx, "heartbeat", map[string]any{
				"timestamp": time.Now().Unix(),
				"clients":   c.Broadcaster.SubscriberCount(),
			}); err != nil {
				c.apiLogger.Debug("SSE heartbeat failed, client likely disconnected",
					"client_id", sub.ID, "error", err)
				return nil
			}

		case <-sub.Done():
			return nil

		case <-ctx.Request().Context().Done():
			return nil

		case <-c.ctx.Done():
			return nil
		}
	}
}

// GetSSEStatus reports the number of connected stream clients.
func (c *Controller) GetSSEStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"connected_clients": c.Broadcaster.SubscriberCount(),
		"sse_enabled":       c.Settings.Realtime.SSE.Enabled,
	})
}

// sendSSEMessage writes a single Server-Sent Event frame and flushes it.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}

	ctx.Response().Flush()
	return nil
}
