package engines

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Downscale resizes the image so its longer edge does not exceed maxEdge,
// preserving aspect ratio. Images already within bounds are returned
// unchanged. The result is re-encoded as PNG.
func Downscale(data []byte, maxEdge int) ([]byte, bool, error) {
	if maxEdge <= 0 {
		return data, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := max(width, height)
	if longest <= maxEdge {
		return data, false, nil
	}

	scale := float64(maxEdge) / float64(longest)
	dstWidth := int(float64(width) * scale)
	dstHeight := int(float64(height) * scale)
	if dstWidth < 1 {
		dstWidth = 1
	}
	if dstHeight < 1 {
		dstHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, false, fmt.Errorf("encode scaled image: %w", err)
	}
	return buf.Bytes(), true, nil
}
