package alpr

import (
	"context"

	"github.com/platewatch/platewatch-go/internal/errors"
	"github.com/platewatch/platewatch-go/internal/imageproc"
)

// RegionDetector extracts the sub-image believed to contain a plate.
// Failure to find one is an expected outcome, reported as a not-found
// error rather than a fault.
type RegionDetector struct{}

// NewRegionDetector returns a detector that normalizes the frame and
// treats the whole normalized image as the candidate region. A production
// detector crops to a localized bounding box instead.
func NewRegionDetector() *RegionDetector {
	return &RegionDetector{}
}

// DetectRegion returns the encoded plate region within the frame, or a
// not-found error when no region can be extracted. Internal failures of
// the underlying image stages are folded into not-found, detection
// failure is not exceptional here.
func (rd *RegionDetector) DetectRegion(ctx context.Context, encoded []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NotFound("region detection canceled")
	}

	processed, err := imageproc.Preprocess(encoded)
	if err != nil {
		return nil, errors.NotFound("no plate region found")
	}

	return processed, nil
}
