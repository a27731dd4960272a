package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

func encodeFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{120, 120, 120, 255}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func TestAnnotateEmptyOverlayPassthrough(t *testing.T) {
	frame := encodeFrame(t, 32, 24)
	got := Annotate(frame, pipeline.OverlaySnapshot{})
	assert.Equal(t, frame, got)
}

func TestAnnotateDrawsPersonBox(t *testing.T) {
	frame := encodeFrame(t, 64, 48)
	overlay := pipeline.OverlaySnapshot{
		Boxes:         []pipeline.BBox{{X1: 0.25, Y1: 0.25, X2: 0.75, Y2: 0.75}},
		PersonVisible: true,
	}

	got := Annotate(frame, overlay)
	require.NotEqual(t, frame, got)

	img, err := jpeg.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	// Top edge of the box runs along y=12 from x=16 to x=48.
	r, g, b, _ := img.At(24, 12).RGBA()
	assert.Greater(t, r>>8, uint32(150), "box edge should be red")
	assert.Less(t, g>>8, uint32(110))
	assert.Less(t, b>>8, uint32(110))
}

func TestAnnotateDrawsLabelTexts(t *testing.T) {
	frame := encodeFrame(t, 128, 96)
	overlay := pipeline.OverlaySnapshot{
		LabelTexts: []string{"Person 98.8%", "AWSERR:ThrottlingException"},
	}

	got := Annotate(frame, overlay)
	require.NotEqual(t, frame, got)

	// Label background strip darkens the top-left corner.
	img, err := jpeg.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	r, g, b, _ := img.At(9, 14).RGBA()
	assert.Less(t, r>>8, uint32(100))
	assert.Less(t, g>>8, uint32(100))
	assert.Less(t, b>>8, uint32(100))
}

func TestAnnotateGarbageInput(t *testing.T) {
	garbage := []byte{0x01, 0x02, 0x03}
	overlay := pipeline.OverlaySnapshot{
		Boxes: []pipeline.BBox{{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}
	assert.Equal(t, garbage, Annotate(garbage, overlay))
}
