package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// ShrinkToWidth scales a JPEG down to maxWidth if it is wider, preserving
// aspect ratio, and re-encodes at the given quality. Images at or below
// maxWidth are returned unchanged, no re-encode.
func ShrinkToWidth(data []byte, maxWidth, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return data, nil
	}
	return encodeScaled(img, maxWidth, quality)
}

// ScaleToWidth scales a JPEG to exactly width (up or down) and re-encodes at
// the given quality.
func ScaleToWidth(data []byte, width, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return encodeScaled(img, width, quality)
}

func encodeScaled(img image.Image, width, quality int) ([]byte, error) {
	src := img.Bounds()
	height := src.Dy() * width / src.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
