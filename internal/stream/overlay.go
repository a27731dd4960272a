package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

var (
	personColor = color.RGBA{255, 0, 0, 255}   // red boxes around people
	labelColor  = color.RGBA{0, 255, 0, 255}   // green label text
	faultColor  = color.RGBA{255, 80, 80, 255} // red for fault codes
	labelBg     = color.RGBA{0, 0, 0, 180}
)

// Annotate burns the overlay onto a JPEG frame: person boxes plus the label
// text block in the top-left corner. Returns the frame unchanged when there
// is nothing to draw or it cannot be decoded.
func Annotate(jpegData []byte, overlay pipeline.OverlaySnapshot) []byte {
	if len(overlay.Boxes) == 0 && len(overlay.LabelTexts) == 0 {
		return jpegData
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return jpegData
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	w, h := bounds.Dx(), bounds.Dy()
	for _, bb := range overlay.Boxes {
		x := int(bb.X1 * float32(w))
		y := int(bb.Y1 * float32(h))
		bw := int((bb.X2 - bb.X1) * float32(w))
		bh := int((bb.Y2 - bb.Y1) * float32(h))
		drawBox(rgba, x, y, bw, bh, personColor, 2)
	}

	for i, text := range overlay.LabelTexts {
		c := labelColor
		if strings.HasPrefix(text, "ERR:") || strings.HasPrefix(text, "AWSERR:") {
			c = faultColor
		}
		drawLabel(rgba, 10, 16+i*16, text, c)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return jpegData
	}
	return buf.Bytes()
}

// drawBox draws a rectangle outline on the image
func drawBox(img *image.RGBA, x, y, w, h int, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		// Top edge
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+t >= 0 && y+t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+t, c)
			}
		}
		// Bottom edge
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+h-t >= 0 && y+h-t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+h-t, c)
			}
		}
		// Left edge
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+t >= 0 && x+t < bounds.Max.X && j >= 0 {
				img.Set(x+t, j, c)
			}
		}
		// Right edge
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+w-t >= 0 && x+w-t < bounds.Max.X && j >= 0 {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

// drawLabel draws text with a dark background strip
func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, labelBg)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}
