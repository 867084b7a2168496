package alpr

import (
	"context"
	"log/slog"
	"time"

	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/imageproc"
	"github.com/platewatch/platewatch-go/internal/logging"
	"github.com/platewatch/platewatch-go/internal/observability/metrics"
)

// Pipeline orchestrates the recognition stages for a single frame:
// preprocess, region extraction, recognition, confidence gating and
// validation. Runs hold no shared state and may execute concurrently.
type Pipeline struct {
	Settings *conf.Settings

	detector   *RegionDetector
	recognizer Recognizer
	validator  Validator
	metrics    *metrics.ALPRMetrics
	logger     *slog.Logger
}

// NewPipeline builds a pipeline from settings. A nil recognizer or
// validator selects the built-in stub implementations.
func NewPipeline(settings *conf.Settings, recognizer Recognizer, validator Validator) *Pipeline {
	if recognizer == nil {
		recognizer = NewStubRecognizer()
	}
	if validator == nil {
		validator = NewRegistryValidator()
	}

	logger := logging.ForService("alpr")
	if logger == nil {
		logger = slog.Default().With("service", "alpr")
	}

	return &Pipeline{
		Settings:   settings,
		detector:   NewRegionDetector(),
		recognizer: recognizer,
		validator:  validator,
		logger:     logger,
	}
}

// SetMetrics attaches recognition telemetry. Safe to leave unset.
func (p *Pipeline) SetMetrics(m *metrics.ALPRMetrics) {
	p.metrics = m
}

// Validator exposes the registry policy for callers that validate
// manually entered plates without running the image stages.
func (p *Pipeline) Validator() Validator {
	return p.validator
}

// Process runs one frame through the full pipeline. It never returns an
// error and never panics: any stage failure, including a panicking
// recognizer implementation, degrades to a not-detected result. The
// system is a best-effort sensor, a frame with nothing found is a normal
// outcome and not worth failing a request over.
func (p *Pipeline) Process(ctx context.Context, encoded []byte) (result Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered from panic in recognition pipeline", "panic", r)
			result = Result{Detected: false}
		}
		if p.metrics != nil {
			p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		}
	}()

	processed, err := imageproc.Preprocess(encoded)
	if err != nil {
		p.logger.Debug("frame rejected at preprocess", "error", err)
		return p.notDetected("preprocess")
	}

	region, err := p.detector.DetectRegion(ctx, processed)
	if err != nil {
		p.logger.Debug("no plate region in frame")
		return p.notDetected("region")
	}

	candidate, err := p.recognizer.Recognize(ctx, region)
	if err != nil || candidate == nil {
		p.logger.Debug("no plate recognized in region")
		return p.notDetected("recognize")
	}

	threshold := p.Settings.Recognition.Threshold
	if candidate.Confidence < threshold {
		p.logger.Debug("candidate below confidence gate",
			"plate", candidate.PlateText,
			"confidence", candidate.Confidence,
			"threshold", threshold)
		return p.notDetected("confidence_gate")
	}

	validation := p.validator.Validate(candidate.PlateText)

	if p.metrics != nil {
		p.metrics.DetectionCounter.WithLabelValues(string(validation.Status)).Inc()
	}

	if p.Settings.Realtime.ProcessingTime {
		p.logger.Info("frame processed",
			"plate", candidate.PlateText,
			"duration_ms", time.Since(start).Milliseconds())
	}

	return Result{
		Detected:    true,
		PlateNumber: candidate.PlateText,
		Region:      validation.Region,
		Status:      validation.Status,
		Details:     validation.Details,
		Confidence:  candidate.Confidence,
	}
}

func (p *Pipeline) notDetected(stage string) Result {
	if p.metrics != nil {
		p.metrics.NotDetectedCounter.WithLabelValues(stage).Inc()
	}
	return Result{Detected: false}
}
