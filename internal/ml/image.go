package ml

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const jpegQuality = 85

// scaledDimensions fits (width, height) inside a maxSize square while keeping
// the aspect ratio.
func scaledDimensions(width, height, maxSize int) (int, int) {
	if width > height {
		return maxSize, int(float64(height) * float64(maxSize) / float64(width))
	}
	return int(float64(width) * float64(maxSize) / float64(height)), maxSize
}

// ResizeImage shrinks an image to fit within maxSize pixels on its longer
// side and re-encodes it as JPEG. Images already small enough are only
// re-encoded, which keeps the payload format consistent for the vision APIs.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxSize || height > maxSize {
		newWidth, newHeight := scaledDimensions(width, height, maxSize)
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
