package alpr

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/platewatch/platewatch-go/internal/errors"
)

// Recognizer turns a plate region image into a text candidate with a
// confidence score. Implementations must return a not-found error, never
// a low-confidence guess, when the region contains no readable plate.
type Recognizer interface {
	Recognize(ctx context.Context, region []byte) (*DetectionResult, error)
}

// StubRecognizer synthesizes plausible plate candidates without a model.
// It exists to exercise the pipeline end to end and is swapped out for a
// real OCR backend in production deployments.
type StubRecognizer struct{}

// NewStubRecognizer returns a recognizer producing synthetic candidates.
func NewStubRecognizer() *StubRecognizer {
	return &StubRecognizer{}
}

// Recognize produces a synthetic plate string of three uppercase letters,
// a dash and three digits, with a confidence drawn uniformly from
// [0.60, 0.95). An empty region yields not-found.
func (sr *StubRecognizer) Recognize(ctx context.Context, region []byte) (*DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(region) == 0 {
		return nil, errors.NotFound("no plate visible in region")
	}

	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = byte('A' + rand.IntN(26))
	}

	return &DetectionResult{
		PlateText:  fmt.Sprintf("%s-%03d", letters, rand.IntN(1000)),
		Confidence: 0.60 + rand.Float64()*0.35,
	}, nil
}
