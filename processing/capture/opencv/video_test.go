package opencv

import (
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictor/processing/capture"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	info := capture.VideoInfo{FPS: 10, Width: 64, Height: 48}

	w, err := NewGocvWriter(path, "MJPG", info)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		require.NoError(t, w.Write(solidFrame(64, 48, color.RGBA{uint8(i * 20), 0, 0, 255})))
	}
	require.NoError(t, w.Close())

	r, err := OpenVideo(path)
	require.NoError(t, err)
	defer r.Close()

	got := r.Info()
	assert.InDelta(t, 10.0, got.FPS, 0.01)
	assert.Equal(t, 64, got.Width)
	assert.Equal(t, 48, got.Height)

	frames := 0
	for {
		frame, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, image.Pt(64, 48), frame.Bounds().Size())
		frames++
	}
	assert.Equal(t, 12, frames)
}

func TestWriterRejectsMismatchedFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	w, err := NewGocvWriter(path, "MJPG", capture.VideoInfo{FPS: 5, Width: 32, Height: 32})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Write(solidFrame(16, 16, color.RGBA{A: 255})))
}

func TestOpenVideoMissing(t *testing.T) {
	_, err := OpenVideo(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}
