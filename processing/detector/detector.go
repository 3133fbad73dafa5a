// Package detector wraps pretrained object-detection models behind a narrow
// interface. Model identifiers are either a path to ONNX weights or a ws://
// URL of a remote detection server.
package detector

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"predictor/internal/config"
	"predictor/internal/models"
)

var (
	// ErrUnsupportedModel is returned for weights the Go runtime cannot execute.
	ErrUnsupportedModel = errors.New("unsupported model format")
	// ErrModelNotFound is returned when the weights file does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// Detector maps an image to a set of localized, classified, scored detections.
type Detector interface {
	// Detect runs inference and returns detections scoring at least threshold
	// together with an annotated copy of img.
	Detect(ctx context.Context, img image.Image, threshold float32) (*models.DetectionResult, error)
	// Names is the model-owned id->name table.
	Names() ClassTable
	Close() error
}

// Loader constructs a Detector for a model identifier.
type Loader func(modelID string) (Detector, error)

// Options tune the local ONNX backend.
type Options struct {
	InputSize    int
	IoUThreshold float32
	LibraryPath  string
	Log          *logrus.Logger
}

// OptionsFromConfig builds Options from the application config.
func OptionsFromConfig(cfg *config.Config, log *logrus.Logger) Options {
	d := cfg.GetDetector()
	return Options{
		InputSize:    d.InputSize,
		IoUThreshold: d.IoUThreshold,
		LibraryPath:  d.OnnxRuntimeLib,
		Log:          log,
	}
}

// NewLoader returns a Loader bound to opts.
func NewLoader(opts Options) Loader {
	return func(modelID string) (Detector, error) {
		return Load(modelID, opts)
	}
}

// Load picks the backend for modelID.
func Load(modelID string, opts Options) (Detector, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	if strings.HasPrefix(modelID, "ws://") || strings.HasPrefix(modelID, "wss://") {
		opts.Log.WithField("url", modelID).Debug("using remote detector")
		return DialRemoteDetector(modelID, opts.Log)
	}

	path, err := resolveWeights(modelID)
	if err != nil {
		return nil, err
	}
	opts.Log.WithField("weights", path).Debug("using onnx detector")
	return NewOnnxDetector(path, opts)
}

// resolveWeights maps a model identifier to an ONNX file. PyTorch weights are
// accepted only when an exported sibling .onnx file exists next to them.
func resolveWeights(modelID string) (string, error) {
	ext := strings.ToLower(filepath.Ext(modelID))
	switch ext {
	case ".onnx":
		if _, err := os.Stat(modelID); err != nil {
			return "", errors.Wrapf(ErrModelNotFound, "%s", modelID)
		}
		return modelID, nil
	case ".pt", "":
		sibling := strings.TrimSuffix(modelID, filepath.Ext(modelID)) + ".onnx"
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
		if ext == "" {
			return "", errors.Wrapf(ErrModelNotFound, "%s", modelID)
		}
		return "", errors.Wrapf(ErrUnsupportedModel, "%s: export it to ONNX as %s", modelID, sibling)
	default:
		return "", errors.Wrapf(ErrUnsupportedModel, "%s", modelID)
	}
}

func sidecarClasses(weights string) string {
	return strings.TrimSuffix(weights, filepath.Ext(weights)) + ".yaml"
}
