package cwidget

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		paneW, paneH int
		wantW, wantH int
	}{
		{"fits already", 200, 100, 420, 420, 200, 100},
		{"exact fit", 400, 400, 420, 420, 400, 400},
		{"wide image", 1600, 800, 420, 420, 400, 200},
		{"tall image", 300, 1200, 620, 320, 75, 300},
		{"pane not laid out", 800, 800, 0, 0, 400, 400},
		{"pane smaller than margin", 800, 400, 10, 10, 400, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitSize(tt.w, tt.h, tt.paneW, tt.paneH, 400)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFitSizeNeverUpscalesAndKeepsAspect(t *testing.T) {
	for _, size := range [][2]int{{10, 10}, {640, 480}, {1920, 1080}, {333, 999}} {
		w, h := FitSize(size[0], size[1], 500, 300, 400)

		assert.LessOrEqual(t, w, size[0])
		assert.LessOrEqual(t, h, size[1])
		assert.InDelta(t, float64(size[0])/float64(size[1]), float64(w)/float64(h), 0.02)
	}
}

func TestFitImage(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 50, 40))
	assert.Same(t, small, FitImage(small, 420, 420, 400), "small images are shown as-is")

	big := image.NewRGBA(image.Rect(0, 0, 800, 600))
	assert.Equal(t, image.Rect(0, 0, 400, 300), FitImage(big, 420, 420, 400).Bounds())

	assert.Nil(t, FitImage(nil, 420, 420, 400))
}
