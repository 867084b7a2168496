// detectionlog.go: optional plain-text log of confirmed detections.
package api

import (
	"fmt"
	"os"
	"time"

	"github.com/platewatch/platewatch-go/internal/datastore"
)

// logDetection appends a single human-readable line to the detection
// log file when realtime logging is enabled. Failures are logged and
// otherwise ignored; the log is a convenience, not a store.
func (c *Controller) logDetection(record *datastore.PlateRecord) {
	settings := c.Settings.Realtime.Log
	if !settings.Enabled || settings.Path == "" {
		return
	}

	c.detectionLogMu.Lock()
	defer c.detectionLogMu.Unlock()

	f, err := os.OpenFile(settings.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		c.apiLogger.Error("Failed to open detection log file",
			"path", settings.Path,
			"error", err.Error())
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s %s %s (%s)\n",
		record.DetectedAt.Format(time.RFC3339),
		record.PlateNumber,
		record.Region,
		record.Status,
		record.Details)
	if _, err := f.WriteString(line); err != nil {
		c.apiLogger.Error("Failed to write detection log entry",
			"path", settings.Path,
			"error", err.Error())
	}
}
