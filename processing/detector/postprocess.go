package detector

import (
	"image"
	"math"
	"sort"

	"github.com/nfnt/resize"

	"predictor/internal/models"
)

const letterboxFill = 114

// letterbox records how a source image was fitted into the square model input
// so boxes can be mapped back to source pixels.
type letterbox struct {
	scale      float32
	padX, padY float32
	src        image.Rectangle
}

// prepareInput letterboxes img into a size x size canvas and writes it into
// dst as planar RGB floats in [0,1].
func prepareInput(img image.Image, size int, dst []float32) letterbox {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	padX := (size - nw) / 2
	padY := (size - nh) / 2

	resized := resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)
	rb := resized.Bounds()

	plane := size * size
	fill := float32(letterboxFill) / 255.0
	for i := 0; i < 3*plane; i++ {
		dst[i] = fill
	}

	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			idx := (y+padY)*size + (x + padX)
			dst[idx] = float32(r>>8) / 255.0
			dst[idx+plane] = float32(g>>8) / 255.0
			dst[idx+2*plane] = float32(bl>>8) / 255.0
		}
	}

	return letterbox{
		scale: float32(scale),
		padX:  float32(padX),
		padY:  float32(padY),
		src:   b,
	}
}

// toSource maps a model-space xyxy box back to a clamped source rectangle.
func (lb letterbox) toSource(x1, y1, x2, y2 float32) image.Rectangle {
	conv := func(v, pad float32, lo, hi int) int {
		p := int(math.Round(float64((v - pad) / lb.scale)))
		if p < 0 {
			p = 0
		}
		if p > hi-lo {
			p = hi - lo
		}
		return lo + p
	}
	return image.Rect(
		conv(x1, lb.padX, lb.src.Min.X, lb.src.Max.X),
		conv(y1, lb.padY, lb.src.Min.Y, lb.src.Max.Y),
		conv(x2, lb.padX, lb.src.Min.X, lb.src.Max.X),
		conv(y2, lb.padY, lb.src.Min.Y, lb.src.Max.Y),
	)
}

type candidate struct {
	classID        int
	score          float32
	x1, y1, x2, y2 float32
}

// decodeOutput reads a [1, 4+classes, anchors] YOLOv8 head: rows 0..3 are
// cx, cy, w, h and the rest are per-class scores.
func decodeOutput(out []float32, features, anchors int, threshold float32) []candidate {
	classes := features - 4
	if classes <= 0 || len(out) < features*anchors {
		return nil
	}

	var cands []candidate
	for i := 0; i < anchors; i++ {
		best, bestID := float32(0), -1
		for c := 0; c < classes; c++ {
			if s := out[(4+c)*anchors+i]; s > best {
				best, bestID = s, c
			}
		}
		if bestID < 0 || best < threshold {
			continue
		}

		cx, cy := out[i], out[anchors+i]
		w, h := out[2*anchors+i], out[3*anchors+i]
		cands = append(cands, candidate{
			classID: bestID,
			score:   best,
			x1:      cx - w/2,
			y1:      cy - h/2,
			x2:      cx + w/2,
			y2:      cy + h/2,
		})
	}
	return cands
}

func iou(a, b candidate) float32 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)

	inter := max(0, ix2-ix1) * max(0, iy2-iy1)
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nms performs class-aware greedy suppression. The result is ordered by
// descending score; ties keep their anchor order.
func nms(cands []candidate, threshold float32) []candidate {
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	used := make([]bool, len(cands))
	kept := make([]candidate, 0, len(cands))
	for i := range cands {
		if used[i] {
			continue
		}
		kept = append(kept, cands[i])
		used[i] = true

		for j := i + 1; j < len(cands); j++ {
			if used[j] || cands[j].classID != cands[i].classID {
				continue
			}
			if iou(cands[i], cands[j]) > threshold {
				used[j] = true
			}
		}
	}
	return kept
}

func toDetections(cands []candidate, lb letterbox, names ClassTable) []models.Detection {
	dets := make([]models.Detection, 0, len(cands))
	for _, c := range cands {
		dets = append(dets, models.Detection{
			ClassID:    c.classID,
			ClassName:  names.Name(c.classID),
			Confidence: c.score,
			Box:        lb.toSource(c.x1, c.y1, c.x2, c.y2),
		})
	}
	return dets
}
