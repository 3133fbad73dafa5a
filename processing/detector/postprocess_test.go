package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// head builds a [features, anchors] output buffer from per-anchor rows of
// cx, cy, w, h, scores...
func head(classes int, rows ...[]float32) ([]float32, int, int) {
	features := 4 + classes
	anchors := len(rows)
	out := make([]float32, features*anchors)
	for i, r := range rows {
		for f := 0; f < features; f++ {
			out[f*anchors+i] = r[f]
		}
	}
	return out, features, anchors
}

func TestDecodeOutputThreshold(t *testing.T) {
	out, features, anchors := head(2,
		[]float32{100, 100, 20, 20, 0.9, 0.1},
		[]float32{200, 200, 40, 40, 0.05, 0.3},
		[]float32{300, 300, 10, 10, 0.02, 0.04},
	)

	cands := decodeOutput(out, features, anchors, 0.25)
	require.Len(t, cands, 2)

	assert.Equal(t, 0, cands[0].classID)
	assert.InDelta(t, 0.9, cands[0].score, 1e-6)
	assert.InDelta(t, 90, cands[0].x1, 1e-6)
	assert.InDelta(t, 110, cands[0].y2, 1e-6)

	assert.Equal(t, 1, cands[1].classID)
	assert.InDelta(t, 180, cands[1].x1, 1e-6)
}

func TestDecodeOutputRejectsShortBuffer(t *testing.T) {
	assert.Nil(t, decodeOutput(make([]float32, 3), 6, 1, 0.1))
	assert.Nil(t, decodeOutput(make([]float32, 12), 4, 3, 0.1))
}

func TestNMSSuppressesWithinClassOnly(t *testing.T) {
	cands := []candidate{
		{classID: 0, score: 0.6, x1: 0, y1: 0, x2: 10, y2: 10},
		{classID: 0, score: 0.9, x1: 1, y1: 1, x2: 11, y2: 11},
		{classID: 1, score: 0.8, x1: 1, y1: 1, x2: 11, y2: 11},
		{classID: 0, score: 0.5, x1: 50, y1: 50, x2: 60, y2: 60},
	}

	kept := nms(cands, 0.5)
	require.Len(t, kept, 3)
	assert.InDelta(t, 0.9, kept[0].score, 1e-6)
	assert.Equal(t, 1, kept[1].classID)
	assert.InDelta(t, 0.5, kept[2].score, 1e-6)
}

func TestNMSEmpty(t *testing.T) {
	assert.Nil(t, nms(nil, 0.5))
}

func TestIoU(t *testing.T) {
	a := candidate{x1: 0, y1: 0, x2: 10, y2: 10}
	assert.InDelta(t, 1.0, iou(a, a), 1e-6)
	assert.InDelta(t, 0.0, iou(a, candidate{x1: 20, y1: 20, x2: 30, y2: 30}), 1e-6)
	assert.InDelta(t, 25.0/175.0, iou(a, candidate{x1: 5, y1: 5, x2: 15, y2: 15}), 1e-6)
	assert.Zero(t, iou(candidate{}, candidate{}))
}

func TestPrepareInputLetterbox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	const size = 64
	dst := make([]float32, 3*size*size)
	lb := prepareInput(img, size, dst)

	assert.InDelta(t, 0.32, lb.scale, 1e-6)
	assert.Equal(t, float32(0), lb.padX)
	assert.Equal(t, float32(16), lb.padY)

	fill := float32(letterboxFill) / 255.0
	assert.InDelta(t, fill, dst[0], 1e-6, "top padding row is grey")
	centre := 32*size + 32
	assert.InDelta(t, 1.0, dst[centre], 0.01)
	assert.InDelta(t, 0.0, dst[centre+size*size], 0.01)
}

func TestLetterboxToSource(t *testing.T) {
	lb := letterbox{scale: 0.5, padX: 0, padY: 10, src: image.Rect(0, 0, 200, 100)}

	r := lb.toSource(10, 20, 50, 40)
	assert.Equal(t, image.Rect(20, 20, 100, 60), r)

	clamped := lb.toSource(-5, 0, 500, 500)
	assert.Equal(t, image.Rect(0, 0, 200, 100), clamped)
}

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640))
	assert.Equal(t, 2100, anchorCount(320))
}
