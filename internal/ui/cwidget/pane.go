package cwidget

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ImagePane is a titled area that shows one image scaled down to fit.
type ImagePane struct {
	widget.BaseWidget

	titleWidget *widget.Label
	imageCanvas *canvas.Image

	// Fallback is the side length used while the pane has no size yet.
	Fallback int

	source image.Image
}

func NewImagePane(title string, fallback int) *ImagePane {
	pane := &ImagePane{Fallback: fallback}

	pane.titleWidget = widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	pane.imageCanvas = canvas.NewImageFromImage(nil)
	pane.imageCanvas.FillMode = canvas.ImageFillOriginal
	pane.imageCanvas.ScaleMode = canvas.ImageScaleSmooth

	pane.ExtendBaseWidget(pane)

	return pane
}

func (item *ImagePane) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewBorder(
		item.titleWidget, nil, nil, nil,
		container.NewCenter(item.imageCanvas),
	)

	return widget.NewSimpleRenderer(c)
}

// SetImage replaces the shown image; nil clears the pane.
func (item *ImagePane) SetImage(img image.Image) {
	item.source = img

	w, h := item.imageArea()
	item.imageCanvas.Image = FitImage(img, w, h, item.Fallback)
	item.imageCanvas.Refresh()
}

// imageArea is the pane size below the title.
func (item *ImagePane) imageArea() (int, int) {
	size := item.Size()
	return int(size.Width), int(size.Height - item.titleWidget.MinSize().Height)
}

// Source returns the image last passed to SetImage.
func (item *ImagePane) Source() image.Image {
	return item.source
}

// Shown returns the scaled image currently on the canvas.
func (item *ImagePane) Shown() image.Image {
	return item.imageCanvas.Image
}
