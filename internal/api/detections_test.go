package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewatch/platewatch-go/internal/alpr"
	"github.com/platewatch/platewatch-go/internal/broadcast"
	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/datastore"
)

// fixedRecognizer returns the same candidate for every region.
type fixedRecognizer struct {
	text       string
	confidence float64
}

func (f *fixedRecognizer) Recognize(_ context.Context, _ []byte) (*alpr.DetectionResult, error) {
	return &alpr.DetectionResult{PlateText: f.text, Confidence: f.confidence}, nil
}

type testHarness struct {
	echo        *echo.Echo
	controller  *Controller
	store       datastore.Interface
	broadcaster *broadcast.Broadcaster
}

// newTestHarness wires a controller against a temp SQLite store and a
// deterministic recognizer.
func newTestHarness(t *testing.T, recognizer alpr.Recognizer) *testHarness {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "PlateWatch-Go-Test"
	settings.Recognition.Threshold = 0.60
	settings.Realtime.SSE.Enabled = true
	settings.Realtime.SSE.HeartbeatInterval = 30
	settings.Realtime.SSE.ClientBuffer = 100
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "api_test.db")

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	broadcaster := broadcast.New(settings.Realtime.SSE.ClientBuffer)
	pipeline := alpr.NewPipeline(settings, recognizer, nil)

	e := echo.New()
	controller := New(e, store, settings, pipeline, broadcaster, nil, nil)
	t.Cleanup(controller.Shutdown)

	return &testHarness{
		echo:        e,
		controller:  controller,
		store:       store,
		broadcaster: broadcaster,
	}
}

func (h *testHarness) do(method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)
	return rec
}

// pngFrame returns a small valid PNG payload.
func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScanImagePersistsAndBroadcasts(t *testing.T) {
	h := newTestHarness(t, &fixedRecognizer{text: "ABC-123", confidence: 0.9})

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub.ID)

	rec := h.do(http.MethodPost, "/api/v1/detections/scan", pngFrame(t), "image/png")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Detected)
	require.NotNil(t, resp.Record)
	assert.NotZero(t, resp.Record.ID)
	assert.Equal(t, "ABC-123", resp.Record.PlateNumber)
	assert.Equal(t, "suspended", resp.Record.Status)
	assert.Equal(t, "US", resp.Record.Region)
	assert.Equal(t, "automatic", resp.Record.DetectionType)

	// A scan publishes exactly one detection event.
	select {
	case event := <-sub.Events:
		assert.Equal(t, broadcast.EventPlateDetected, event.Type)
		assert.Equal(t, resp.Record.ID, event.Data.ID)
	case <-time.After(time.Second):
		t.Fatal("broadcast event not received")
	}
	select {
	case event := <-sub.Events:
		t.Fatalf("unexpected extra event %q", event.Type)
	case <-time.After(100 * time.Millisecond):
	}

	// And the record is durable.
	stored, err := h.store.Get(fmt.Sprint(resp.Record.ID))
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", stored.PlateNumber)
}

func TestScanImageNothingDetected(t *testing.T) {
	h := newTestHarness(t, &fixedRecognizer{text: "ABC-123", confidence: 0.9})

	rec := h.do(http.MethodPost, "/api/v1/detections/scan", []byte("not an image"), "application/octet-stream")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Detected)
	assert.Nil(t, resp.Record)

	// Nothing was persisted.
	records, err := h.store.GetAllRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanImageBelowThresholdNotPersisted(t *testing.T) {
	h := newTestHarness(t, &fixedRecognizer{text: "ABC-123", confidence: 0.3})

	rec := h.do(http.MethodPost, "/api/v1/detections/scan", pngFrame(t), "image/png")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Detected)
}

func TestManualEntry(t *testing.T) {
	h := newTestHarness(t, nil)

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub.ID)

	body, _ := json.Marshal(ManualEntryRequest{PlateNumber: "XYZ-789"})
	rec := h.do(http.MethodPost, "/api/v1/detections/manual", body, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Record)
	assert.Equal(t, "XYZ-789", resp.Record.PlateNumber)
	assert.Equal(t, "valid", resp.Record.Status)
	assert.Equal(t, "US", resp.Record.Region)
	assert.Equal(t, "manual", resp.Record.DetectionType)

	// A manual entry publishes exactly one validation event; no
	// detection event fires because no recognition took place.
	select {
	case event := <-sub.Events:
		assert.Equal(t, broadcast.EventPlateValidated, event.Type)
		assert.Equal(t, resp.Record.ID, event.Data.ID)
	case <-time.After(time.Second):
		t.Fatal("broadcast event not received")
	}
	select {
	case event := <-sub.Events:
		t.Fatalf("unexpected extra event %q", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManualEntryRequiresPlateNumber(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/v1/detections/manual", []byte(`{}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDetectionByID(t *testing.T) {
	h := newTestHarness(t, nil)

	record := &datastore.PlateRecord{PlateNumber: "GET-007", Status: "valid"}
	require.NoError(t, h.store.Save(record))

	rec := h.do(http.MethodGet, fmt.Sprintf("/api/v1/detections/%d", record.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got datastore.PlateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "GET-007", got.PlateNumber)
}

func TestGetDetectionMissingReturns404(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/v1/detections/99999", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestGetDetectionByPlate(t *testing.T) {
	h := newTestHarness(t, nil)

	require.NoError(t, h.store.Save(&datastore.PlateRecord{PlateNumber: "PLT-555", Status: "expired"}))

	rec := h.do(http.MethodGet, "/api/v1/detections/plate/PLT-555", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got datastore.PlateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "expired", got.Status)
}

func TestUpdateDetection(t *testing.T) {
	h := newTestHarness(t, nil)

	record := &datastore.PlateRecord{PlateNumber: "UPD-001", Status: "other", Details: "no registry match"}
	require.NoError(t, h.store.Save(record))

	body := []byte(`{"status":"valid","details":"corrected after registry check"}`)
	rec := h.do(http.MethodPatch, fmt.Sprintf("/api/v1/detections/%d", record.ID), body, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got datastore.PlateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "valid", got.Status)
	assert.Equal(t, "corrected after registry check", got.Details)
	assert.Equal(t, "UPD-001", got.PlateNumber)
}

func TestRecentDetectionsLimit(t *testing.T) {
	h := newTestHarness(t, nil)

	for i := range 5 {
		require.NoError(t, h.store.Save(&datastore.PlateRecord{
			PlateNumber: fmt.Sprintf("RCT-%03d", i),
			Status:      "valid",
		}))
	}

	rec := h.do(http.MethodGet, "/api/v1/detections/recent?limit=3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []datastore.PlateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestListDetectionsPagination(t *testing.T) {
	h := newTestHarness(t, nil)

	base := time.Now().Add(-time.Hour)
	for i := range 10 {
		require.NoError(t, h.store.Save(&datastore.PlateRecord{
			PlateNumber: fmt.Sprintf("PAG-%03d", i),
			Status:      "valid",
			DetectedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := h.do(http.MethodGet, "/api/v1/detections?limit=4&offset=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Detections []datastore.PlateRecord `json:"detections"`
		Limit      int                     `json:"limit"`
		Offset     int                     `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Detections, 4)
	// Page two starts after the two newest records.
	assert.Equal(t, "PAG-007", resp.Detections[0].PlateNumber)
}

func TestHealthCheck(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))
}

func TestSSEStatus(t *testing.T) {
	h := newTestHarness(t, nil)

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub.ID)

	rec := h.do(http.MethodGet, "/api/v1/sse/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["connected_clients"])
}

func TestDetectionLogAppendsLine(t *testing.T) {
	h := newTestHarness(t, nil)

	logPath := filepath.Join(t.TempDir(), "detections.log")
	h.controller.Settings.Realtime.Log.Enabled = true
	h.controller.Settings.Realtime.Log.Path = logPath

	h.controller.logDetection(&datastore.PlateRecord{
		PlateNumber: "LOG-001",
		Region:      "US",
		Status:      string(alpr.StatusValid),
		Details:     "registration active",
		DetectedAt:  time.Now(),
	})
	h.controller.logDetection(&datastore.PlateRecord{
		PlateNumber: "LOG-002",
		Region:      "US",
		Status:      string(alpr.StatusExpired),
		Details:     "registration expired",
		DetectedAt:  time.Now(),
	})

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "LOG-001")
	assert.Contains(t, lines[1], "registration expired")
}
