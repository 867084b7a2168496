package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/platewatch/platewatch-go/internal/alpr"
	"github.com/platewatch/platewatch-go/internal/broadcast"
	"github.com/platewatch/platewatch-go/internal/datastore"
)

// maxImageBytes caps the size of an uploaded frame.
const maxImageBytes = 16 << 20

// initDetectionRoutes registers the detection endpoints
func (c *Controller) initDetectionRoutes() {
	c.Group.POST("/detections/scan", c.ScanImage)
	c.Group.POST("/detections/manual", c.ManualEntry)
	c.Group.GET("/detections", c.ListDetections)
	c.Group.GET("/detections/recent", c.RecentDetections)
	c.Group.GET("/detections/:id", c.GetDetection)
	c.Group.GET("/detections/plate/:number", c.GetDetectionByPlate)
	c.Group.PATCH("/detections/:id", c.UpdateDetection)
}

// ScanResponse is the reply to a scan or manual entry request.
type ScanResponse struct {
	Detected bool                   `json:"detected"`
	Record   *datastore.PlateRecord `json:"record,omitempty"`
}

// ManualEntryRequest is the body of a manual plate submission.
type ManualEntryRequest struct {
	PlateNumber string `json:"plate_number"`
}

// ScanImage runs an uploaded frame through the recognition pipeline and
// persists the detection if one is found. A frame with no detectable
// plate is a normal outcome and returns detected false, not an error;
// only persistence failures surface as errors.
func (c *Controller) ScanImage(ctx echo.Context) error {
	encoded, err := c.readImagePayload(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read image payload", http.StatusBadRequest)
	}

	result := c.Pipeline.Process(ctx.Request().Context(), encoded)
	if !result.Detected {
		return ctx.JSON(http.StatusOK, ScanResponse{Detected: false})
	}

	record := recordFromResult(&result, alpr.DetectionAutomatic)
	if err := c.DS.Save(record); err != nil {
		return c.HandleError(ctx, err, "Failed to persist detection", http.StatusInternalServerError)
	}

	c.publishRecord(record, broadcast.EventPlateDetected)

	return ctx.JSON(http.StatusCreated, ScanResponse{Detected: true, Record: record})
}

// ManualEntry validates a typed plate string, bypassing the image
// stages, and persists the result.
func (c *Controller) ManualEntry(ctx echo.Context) error {
	var req ManualEntryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.PlateNumber == "" {
		return c.HandleError(ctx, nil, "plate_number is required", http.StatusBadRequest)
	}

	validation := c.Pipeline.Validator().Validate(req.PlateNumber)

	record := &datastore.PlateRecord{
		PlateNumber:   req.PlateNumber,
		Region:        validation.Region,
		Status:        string(validation.Status),
		DetectionType: string(alpr.DetectionManual),
		Details:       validation.Details,
	}
	if err := c.DS.Save(record); err != nil {
		return c.HandleError(ctx, err, "Failed to persist detection", http.StatusInternalServerError)
	}

	c.publishRecord(record, broadcast.EventPlateValidated)

	return ctx.JSON(http.StatusCreated, ScanResponse{Detected: true, Record: record})
}

// ListDetections returns stored detections with limit/offset pagination,
// most recent first.
func (c *Controller) ListDetections(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	offset := queryInt(ctx, "offset", 0)
	if limit < 0 || offset < 0 {
		return c.HandleError(ctx, nil, "limit and offset must not be negative", http.StatusBadRequest)
	}

	records, err := c.DS.GetRecent(limit + offset)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query detections")
	}

	if offset >= len(records) {
		records = []datastore.PlateRecord{}
	} else {
		records = records[offset:]
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"detections": records,
		"limit":      limit,
		"offset":     offset,
	})
}

// RecentDetections returns the latest detections, cached briefly to
// absorb dashboard polling.
func (c *Controller) RecentDetections(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 10)
	if limit < 0 {
		return c.HandleError(ctx, nil, "limit must not be negative", http.StatusBadRequest)
	}

	cacheKey := fmt.Sprintf("recent:%d", limit)
	if cached, found := c.detectionCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	records, err := c.DS.GetRecent(limit)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query recent detections")
	}

	c.detectionCache.SetDefault(cacheKey, records)
	return ctx.JSON(http.StatusOK, records)
}

// GetDetection returns a single detection by ID.
func (c *Controller) GetDetection(ctx echo.Context) error {
	record, err := c.DS.Get(ctx.Param("id"))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query detection")
	}
	return ctx.JSON(http.StatusOK, record)
}

// GetDetectionByPlate returns the most recent detection for a plate number.
func (c *Controller) GetDetectionByPlate(ctx echo.Context) error {
	record, err := c.DS.GetByPlate(ctx.Param("number"))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query detection")
	}
	return ctx.JSON(http.StatusOK, record)
}

// UpdateDetection applies a partial update to a stored detection, for
// example correcting a mistyped manual entry.
func (c *Controller) UpdateDetection(ctx echo.Context) error {
	var fields map[string]any
	if err := ctx.Bind(&fields); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	record, err := c.DS.Update(ctx.Param("id"), fields)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to update detection")
	}
	return ctx.JSON(http.StatusOK, record)
}

// readImagePayload extracts the encoded image from a multipart form
// field named "image", falling back to the raw request body.
func (c *Controller) readImagePayload(ctx echo.Context) ([]byte, error) {
	if file, err := ctx.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = src.Close() }()
		return io.ReadAll(io.LimitReader(src, maxImageBytes))
	}

	return io.ReadAll(io.LimitReader(ctx.Request().Body, maxImageBytes))
}

// recordFromResult converts a pipeline outcome to a persistable record.
func recordFromResult(result *alpr.Result, detectionType alpr.DetectionType) *datastore.PlateRecord {
	return &datastore.PlateRecord{
		PlateNumber:   result.PlateNumber,
		Region:        result.Region,
		Status:        string(result.Status),
		DetectionType: string(detectionType),
		Details:       result.Details,
		Confidence:    result.Confidence,
	}
}

// publishRecord fans the persisted record out to live subscribers and,
// when configured, to the MQTT broker and the plain-text detection log.
// All of these are best-effort; the record is already durable by the
// time this runs. The event type distinguishes pipeline detections
// from manually validated entries.
func (c *Controller) publishRecord(record *datastore.PlateRecord, eventType string) {
	c.Broadcaster.Publish(broadcast.Event{Type: eventType, Data: record})

	c.logDetection(record)

	if c.MQTTClient != nil && c.Settings.Realtime.MQTT.Enabled {
		payload, err := json.Marshal(record)
		if err != nil {
			c.apiLogger.Error("failed to marshal record for MQTT", "error", err)
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.MQTTClient.Publish(c.ctx, c.Settings.Realtime.MQTT.Topic, string(payload)); err != nil {
				c.apiLogger.Warn("MQTT publish failed", "error", err)
			}
		}()
	}
}

func queryInt(ctx echo.Context, name string, fallback int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
