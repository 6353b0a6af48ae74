package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultDownscale is the factor applied to frames before matching. A
// quarter-size frame keeps detection fast; boxes are scaled back up for the
// display (see recognize.ScaleBBox).
const DefaultDownscale = 0.25

// Downscale decodes an image, scales it by the given factor and re-encodes
// it as JPEG. A factor >= 1 returns the input unchanged.
func Downscale(imageData []byte, factor float64) ([]byte, error) {
	if factor >= 1 {
		return imageData, nil
	}
	if factor <= 0 {
		return nil, fmt.Errorf("invalid downscale factor %f", factor)
	}

	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w := int(float64(bounds.Dx()) * factor)
	h := int(float64(bounds.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
