package cwidget

import (
	"image"

	"github.com/disintegration/imaging"
)

const paneMargin = 20

// FitSize returns the dimensions an image of w×h should be shown at inside a
// pane of paneW×paneH. Panes that are not laid out yet use fallback for both
// sides. Images are never enlarged.
func FitSize(w, h, paneW, paneH, fallback int) (int, int) {
	tw, th := paneW-paneMargin, paneH-paneMargin
	if tw <= 0 || th <= 0 {
		tw, th = fallback, fallback
	}
	if w <= 0 || h <= 0 || tw <= 0 || th <= 0 {
		return w, h
	}

	ratio := min(float64(tw)/float64(w), float64(th)/float64(h))
	if ratio >= 1 {
		return w, h
	}
	return max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))
}

// FitImage scales img down to fit the pane using FitSize.
func FitImage(img image.Image, paneW, paneH, fallback int) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), paneW, paneH, fallback)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
