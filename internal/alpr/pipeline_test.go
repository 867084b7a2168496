package alpr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/errors"
)

// fixedRecognizer returns the same candidate for every region.
type fixedRecognizer struct {
	text       string
	confidence float64
}

func (f *fixedRecognizer) Recognize(_ context.Context, _ []byte) (*DetectionResult, error) {
	return &DetectionResult{PlateText: f.text, Confidence: f.confidence}, nil
}

// failingRecognizer reports not-found for every region.
type failingRecognizer struct{}

func (failingRecognizer) Recognize(_ context.Context, _ []byte) (*DetectionResult, error) {
	return nil, errors.NotFound("no plate visible in region")
}

// panickyRecognizer simulates a faulty model backend.
type panickyRecognizer struct{}

func (panickyRecognizer) Recognize(_ context.Context, _ []byte) (*DetectionResult, error) {
	panic("model backend crashed")
}

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Recognition.Threshold = 0.60
	return s
}

// testFrame returns a small valid PNG for pipeline input.
func testFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), &fixedRecognizer{text: "ABC-123", confidence: 0.9}, nil)
	result := p.Process(context.Background(), testFrame(t))

	require.True(t, result.Detected)
	assert.Equal(t, "ABC-123", result.PlateNumber)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	// Seven characters puts the plate in the US bucket, and the trailing
	// '3' maps to suspended.
	assert.Equal(t, "US", result.Region)
	assert.Equal(t, StatusSuspended, result.Status)
	assert.NotEmpty(t, result.Details)
}

func TestPipelineConfidenceGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence float64
		detected   bool
	}{
		{"well below threshold", 0.10, false},
		{"just below threshold", 0.59, false},
		{"at threshold", 0.60, true},
		{"above threshold", 0.95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPipeline(testSettings(), &fixedRecognizer{text: "ABC-129", confidence: tt.confidence}, nil)
			result := p.Process(context.Background(), testFrame(t))
			assert.Equal(t, tt.detected, result.Detected)
			if !tt.detected {
				assert.Empty(t, result.PlateNumber, "gated result should carry no candidate text")
			}
		})
	}
}

func TestPipelineUndecodableFrame(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), nil, nil)
	result := p.Process(context.Background(), []byte("definitely not an image"))
	assert.False(t, result.Detected)
}

func TestPipelineRecognizerNotFound(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), failingRecognizer{}, nil)
	result := p.Process(context.Background(), testFrame(t))
	assert.False(t, result.Detected)
}

func TestPipelineRecoversFromPanic(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), panickyRecognizer{}, nil)

	var result Result
	assert.NotPanics(t, func() {
		result = p.Process(context.Background(), testFrame(t))
	})
	assert.False(t, result.Detected)
}

func TestPipelineConcurrentRuns(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), &fixedRecognizer{text: "XYZ-789", confidence: 0.8}, nil)
	frame := testFrame(t)

	done := make(chan Result, 20)
	for range 20 {
		go func() {
			done <- p.Process(context.Background(), frame)
		}()
	}

	for range 20 {
		result := <-done
		assert.True(t, result.Detected)
		assert.Equal(t, "XYZ-789", result.PlateNumber)
		assert.Equal(t, StatusValid, result.Status)
	}
}

func TestManualValidationThroughPipeline(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testSettings(), nil, nil)
	got := p.Validator().Validate("XYZ-789")

	assert.True(t, got.IsValid)
	assert.Equal(t, StatusValid, got.Status)
	assert.Equal(t, "US", got.Region)
}
