// Package imageproc prepares camera frames for plate recognition.
package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	// Register decoders for the formats cameras commonly deliver.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/platewatch/platewatch-go/internal/errors"
	"github.com/platewatch/platewatch-go/internal/logging"
)

// binarizeThreshold is the luminance cutoff separating dark pixels from
// light ones after grayscale conversion.
const binarizeThreshold = 128

var logger *slog.Logger

// getLogger resolves the package logger on first use, after the logging
// subsystem has been initialized.
func getLogger() *slog.Logger {
	if logger == nil {
		logger = logging.ForService("imageproc")
		if logger == nil {
			logger = slog.Default().With("service", "imageproc")
		}
	}
	return logger
}

// Preprocess converts an encoded image into the normalized black-and-white
// form the recognizer expects. Each pixel is reduced to luminance with the
// ITU-R BT.601 weights (0.299 R, 0.587 G, 0.114 B) and then binarized: values
// of 128 and above become white, everything below becomes black. Alpha is
// carried through unchanged. The result is PNG encoded regardless of the
// input format, so running the output through Preprocess again yields the
// same bytes.
func Preprocess(encoded []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryImageDecode).
			ImageContext(format, len(encoded)).
			Build()
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetNRGBA(x, y, binarize(img.At(x, y)))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryImageProcessing).
			Context("operation", "png-encode").
			Build()
	}

	getLogger().Debug("preprocessed image",
		"input_format", format,
		"input_bytes", len(encoded),
		"output_bytes", buf.Len(),
		"width", bounds.Dx(),
		"height", bounds.Dy())

	return buf.Bytes(), nil
}

// binarize maps a single pixel to pure black or pure white, preserving its
// alpha channel.
func binarize(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)

	lum := 0.299*float64(n.R) + 0.587*float64(n.G) + 0.114*float64(n.B)

	v := uint8(0)
	if lum >= binarizeThreshold {
		v = 255
	}

	return color.NRGBA{R: v, G: v, B: v, A: n.A}
}
