package detector

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"predictor/internal/models"
)

const (
	boxThickness = 3
	labelPadding = 2
)

// palette is cycled by class id so the same class keeps its colour.
var palette = []color.RGBA{
	{255, 56, 56, 255},
	{255, 157, 151, 255},
	{255, 112, 31, 255},
	{255, 178, 29, 255},
	{207, 210, 49, 255},
	{72, 249, 10, 255},
	{146, 204, 23, 255},
	{61, 219, 134, 255},
	{26, 147, 52, 255},
	{0, 212, 187, 255},
	{44, 153, 168, 255},
	{0, 194, 255, 255},
	{52, 69, 147, 255},
	{100, 115, 255, 255},
	{0, 24, 236, 255},
	{132, 56, 255, 255},
	{82, 0, 133, 255},
	{203, 56, 255, 255},
	{255, 149, 200, 255},
	{255, 55, 199, 255},
}

func classColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

// Plot returns a copy of img with every detection drawn as a box and a
// "name 0.87" label. The input is never modified.
func Plot(img image.Image, detections []models.Detection) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, d := range detections {
		col := classColor(d.ClassID)
		r := d.Box.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawRect(out, r.Min.Y, r.Min.X, r.Max.Y-1, r.Max.X-1, col)
		drawLabel(out, fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence), r.Min, col)
	}

	return out
}

func drawRect(img *image.RGBA, y1, x1, y2, x2 int, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}

// drawLabel draws text on a filled background above at, or just inside the
// box when there is no room above it.
func drawLabel(img *image.RGBA, text string, at image.Point, bg color.RGBA) {
	face := basicfont.Face7x13
	bounds := img.Bounds()

	width := font.MeasureString(face, text).Ceil() + 2*labelPadding
	height := face.Metrics().Height.Ceil() + 2*labelPadding

	top := at.Y - height
	if top < bounds.Min.Y {
		top = at.Y
	}
	left := at.X
	if left+width > bounds.Max.X {
		left = bounds.Max.X - width
	}
	if left < bounds.Min.X {
		left = bounds.Min.X
	}

	rect := image.Rect(left, top, left+width, top+height).Intersect(bounds)
	draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(left+labelPadding, top+labelPadding+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
