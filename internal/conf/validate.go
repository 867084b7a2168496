// conf/validate.go validation of loaded settings
package conf

import (
	"github.com/platewatch/platewatch-go/internal/errors"
)

// ValidateSettings checks a loaded Settings struct for values the rest of the
// application cannot work with. Validation failures are configuration errors,
// not runtime degradations, so they surface immediately at startup.
func ValidateSettings(settings *Settings) error {
	if settings.Recognition.Threshold < 0 || settings.Recognition.Threshold > 1 {
		return errors.Newf("recognition.threshold must be between 0.0 and 1.0, got %f", settings.Recognition.Threshold).
			Category(errors.CategoryConfiguration).
			Context("setting", "recognition.threshold").
			Build()
	}

	if settings.Realtime.SSE.ClientBuffer < 1 {
		return errors.Newf("realtime.sse.clientbuffer must be at least 1, got %d", settings.Realtime.SSE.ClientBuffer).
			Category(errors.CategoryConfiguration).
			Context("setting", "realtime.sse.clientbuffer").
			Build()
	}

	if settings.Realtime.SSE.HeartbeatInterval < 1 {
		return errors.Newf("realtime.sse.heartbeatinterval must be at least 1 second, got %d", settings.Realtime.SSE.HeartbeatInterval).
			Category(errors.CategoryConfiguration).
			Context("setting", "realtime.sse.heartbeatinterval").
			Build()
	}

	if settings.WebServer.Enabled && settings.WebServer.Port == "" {
		return errors.Newf("webserver.port must not be empty when the web server is enabled").
			Category(errors.CategoryConfiguration).
			Context("setting", "webserver.port").
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("at least one of output.sqlite or output.mysql must be enabled").
			Category(errors.CategoryConfiguration).
			Context("setting", "output").
			Build()
	}

	return nil
}
