package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewatch/platewatch-go/internal/broadcast"
	"github.com/platewatch/platewatch-go/internal/datastore"
)

func TestStreamDetectionsDeliversEvents(t *testing.T) {
	h := newTestHarness(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections/stream", http.NoBody).WithContext(ctx)
	rec := httptest.NewRecorder()

	// Publish once the subscriber is registered.
	go func() {
		for h.broadcaster.SubscriberCount() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		h.broadcaster.Publish(broadcast.Event{
			Type: broadcast.EventPlateDetected,
			Data: &datastore.PlateRecord{ID: 7, PlateNumber: "SSE-777"},
		})
	}()

	// The handler blocks until the request context expires.
	h.echo.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: detection")
	assert.Contains(t, body, "SSE-777")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// The subscriber is gone after disconnect.
	require.Eventually(t, func() bool {
		return h.broadcaster.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStreamDetectionsClosesWhenUnsubscribed(t *testing.T) {
	h := newTestHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections/stream", http.NoBody)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.echo.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return h.broadcaster.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	// Shut the controller down, which cancels all streams.
	h.controller.Shutdown()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not exit on shutdown")
	}
}
