package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewatch/platewatch-go/internal/errors"
	"github.com/platewatch/platewatch-go/internal/logging"
)

// encodePNG renders an image to PNG bytes for test input.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// gradientImage returns a small image whose pixels sweep the full luminance
// range, so binarization produces both black and white output.
func gradientImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(x * 16)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestPreprocessProducesTwoToneOutput(t *testing.T) {
	t.Parallel()

	out, err := Preprocess(encodePNG(t, gradientImage()))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	bounds := decoded.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			n := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			assert.True(t, n.R == 0 || n.R == 255, "pixel %d,%d red channel %d not binarized", x, y, n.R)
			assert.Equal(t, n.R, n.G, "pixel %d,%d channels differ", x, y)
			assert.Equal(t, n.R, n.B, "pixel %d,%d channels differ", x, y)
		}
	}
}

func TestPreprocessBinarizeThreshold(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 127, G: 127, B: 127, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	out, err := Preprocess(encodePNG(t, img))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	dark := color.NRGBAModel.Convert(decoded.At(0, 0)).(color.NRGBA)
	light := color.NRGBAModel.Convert(decoded.At(1, 0)).(color.NRGBA)
	assert.Equal(t, uint8(0), dark.R, "luminance 127 should map to black")
	assert.Equal(t, uint8(255), light.R, "luminance 128 should map to white")
}

func TestPreprocessLuminanceWeights(t *testing.T) {
	t.Parallel()

	// Pure green: 0.587*255 ≈ 149.7, above the threshold.
	// Pure blue: 0.114*255 ≈ 29.1, below it.
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	out, err := Preprocess(encodePNG(t, img))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	green := color.NRGBAModel.Convert(decoded.At(0, 0)).(color.NRGBA)
	blue := color.NRGBAModel.Convert(decoded.At(1, 0)).(color.NRGBA)
	assert.Equal(t, uint8(255), green.R)
	assert.Equal(t, uint8(0), blue.R)
}

func TestPreprocessIdempotent(t *testing.T) {
	t.Parallel()

	first, err := Preprocess(encodePNG(t, gradientImage()))
	require.NoError(t, err)

	second, err := Preprocess(first)
	require.NoError(t, err)

	assert.Equal(t, first, second, "preprocessing its own output should be a no-op")
}

func TestPreprocessPreservesAlpha(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 42})

	out, err := Preprocess(encodePNG(t, img))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	n := color.NRGBAModel.Convert(decoded.At(0, 0)).(color.NRGBA)
	assert.Equal(t, uint8(42), n.A)
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Preprocess([]byte("not an image at all"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

func TestPreprocessRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Preprocess(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

// The package logger must bind lazily so that it picks up the structured
// logger configured at startup rather than the pre-initialization default.
func TestLoggerBindsToStructuredLogger(t *testing.T) {
	logger = nil
	t.Cleanup(func() {
		logger = nil
		getLogger()
	})

	logging.Init()
	var structured, humanReadable bytes.Buffer
	logging.SetOutput(&structured, &humanReadable)

	_, err := Preprocess(encodePNG(t, gradientImage()))
	require.NoError(t, err)

	assert.Contains(t, structured.String(), `"service":"imageproc"`)
	assert.Contains(t, structured.String(), "preprocessed image")
}
