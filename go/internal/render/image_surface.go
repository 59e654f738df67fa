package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mcdev12/presence/go/internal/models"
)

// Background is the colour a cleared ImageSurface is filled with
var Background = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff}

// ImageSurface draws frames into an in-memory RGBA image
type ImageSurface struct {
	img  *image.RGBA
	face font.Face
}

// NewImageSurface creates a w by h surface
func NewImageSurface(w, h int) *ImageSurface {
	return &ImageSurface{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		face: basicfont.Face7x13,
	}
}

func (s *ImageSurface) Size() (float64, float64) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (s *ImageSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

func (s *ImageSurface) FillCircle(center models.Vec2, radius float64, c color.RGBA) {
	b := s.img.Bounds()
	minX := max(b.Min.X, int(math.Floor(center.X-radius)))
	maxX := min(b.Max.X-1, int(math.Ceil(center.X+radius)))
	minY := max(b.Min.Y, int(math.Floor(center.Y-radius)))
	maxY := min(b.Max.Y-1, int(math.Ceil(center.Y+radius)))
	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		dy := float64(y) + 0.5 - center.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - center.X
			if dx*dx+dy*dy <= r2 {
				s.img.SetRGBA(x, y, c)
			}
		}
	}
}

// DrawLabel centres text horizontally on anchor with its baseline at anchor.Y
func (s *ImageSurface) DrawLabel(anchor models.Vec2, text string, c color.RGBA) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: s.face,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(int(math.Round(anchor.X))) - width/2,
		Y: fixed.I(int(math.Round(anchor.Y))),
	}
	d.DrawString(text)
}

// Image returns the backing image
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// EncodePNG writes the current frame as PNG
func (s *ImageSurface) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}
