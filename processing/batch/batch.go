// Package batch holds the single-image and video predictors. Both are
// synchronous: they validate the input, load the detector, run it over the
// image or every frame and persist the annotated output.
package batch

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"predictor/processing/capture"
	"predictor/processing/detector"
)

const (
	DefaultImagePath  = "image.png"
	DefaultImageOut   = "output.png"
	DefaultVideoPath  = "video.mp4"
	DefaultVideoOut   = "output.mp4"
	DefaultModel      = "model.pt"
	DefaultConfidence = float32(0.1)

	progressEvery = 10
)

// ErrMissingInput is returned when the input file does not exist. Nothing is
// loaded or written in that case.
var ErrMissingInput = errors.New("input file not found")

// Runner carries the collaborators shared by the batch predictors.
type Runner struct {
	Load        detector.Loader
	OpenVideo   capture.OpenFunc
	CreateVideo capture.CreateFunc

	// Out receives the human-readable report.
	Out io.Writer
	Log *logrus.Logger
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) log() *logrus.Logger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Runner) loadDetector(modelID string) (detector.Detector, error) {
	if r.Load == nil {
		return nil, errors.New("no detector loader configured")
	}
	det, err := r.Load(modelID)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", modelID)
	}
	return det, nil
}

func closeDetector(det detector.Detector, log *logrus.Logger) {
	if err := det.Close(); err != nil {
		log.WithError(err).Warn("closing detector")
	}
}
