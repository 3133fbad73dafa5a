package ui

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"predictor/internal/models"
	"predictor/processing/capture"
	"predictor/processing/detector"
)

var (
	ErrNoDetector   = errors.New("no model loaded")
	ErrNoImage      = errors.New("no image selected")
	ErrNoResult     = errors.New("no detection result")
	ErrBusy         = errors.New("detection already running")
	ErrOverwriteSrc = errors.New("refusing to overwrite the input image")
)

const (
	titleSuccess = "SUCCESS"
	titleError   = "ERROR"

	statusInitial = "You must select a model first"
)

// View is the widget surface a Session drives. Every method is called on the
// UI goroutine.
type View interface {
	SetStatus(text string)
	ShowOriginal(img image.Image)
	ShowAnnotated(img image.Image)
	SetDetectionText(text string)
	SetSaveEnabled(enabled bool)
	ShowInfo(title, message string)
	ShowWarning(title, message string)
	ShowError(title string, err error)
}

// Session is the state of the interactive detector. All fields are owned by
// the UI goroutine: user actions call its methods there, and the detection
// worker only computes a response that is posted back through post.
type Session struct {
	view View
	load detector.Loader
	post func(func())
	log  *logrus.Logger

	confidence float32

	modelID     string
	det         detector.Detector
	imagePath   string
	result      *models.DetectionResult
	status      string
	saveEnabled bool

	generation uint64
	cancel     context.CancelFunc
	running    *atomic.Bool
	workers    sync.WaitGroup
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Load       detector.Loader
	Post       func(func())
	Confidence float32
	Log        *logrus.Logger
}

func NewSession(view View, opts SessionOptions) *Session {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Session{
		view:       view,
		load:       opts.Load,
		post:       opts.Post,
		log:        log,
		confidence: opts.Confidence,
		running:    atomic.NewBool(false),
	}
	s.setStatus(statusInitial)
	s.view.SetSaveEnabled(false)
	return s
}

func (s *Session) ModelID() string { return s.modelID }
func (s *Session) Detector() detector.Detector { return s.det }
func (s *Session) ImagePath() string { return s.imagePath }
func (s *Session) Result() *models.DetectionResult { return s.result }
func (s *Session) Status() string { return s.status }
func (s *Session) SaveEnabled() bool { return s.saveEnabled }
func (s *Session) Busy() bool { return s.running.Load() }

func (s *Session) setStatus(text string) {
	s.status = text
	s.view.SetStatus(text)
}

func (s *Session) setSaveEnabled(enabled bool) {
	s.saveEnabled = enabled
	s.view.SetSaveEnabled(enabled)
}

// LoadModel instantiates a detector synchronously. On failure the previous
// detector stays loaded.
func (s *Session) LoadModel(modelID string) error {
	if s.Busy() {
		s.view.ShowWarning(titleError, "Detection already running")
		return ErrBusy
	}

	s.setStatus(fmt.Sprintf("Loading model: %s", modelID))

	start := time.Now()
	det, err := s.load(modelID)
	if err != nil {
		s.setStatus(fmt.Sprintf("Fail to load model: %v", err))
		s.view.ShowError(titleError, errors.Wrap(err, "Fail to load the model"))
		return err
	}
	elapsed := time.Since(start)

	if s.det != nil {
		if err := s.det.Close(); err != nil {
			s.log.WithError(err).Warn("closing previous detector")
		}
	}
	s.det = det
	s.modelID = modelID

	s.log.WithField("model", modelID).WithField("elapsed", elapsed).Info("model loaded")
	s.setStatus(fmt.Sprintf("The model is now loaded. Time consumed: (%.2f second)", elapsed.Seconds()))
	s.view.ShowInfo(titleSuccess, fmt.Sprintf("Model %s is now loaded", modelID))
	return nil
}

// SelectImage makes path the current image. Any previous result is dropped
// and an in-flight detection is cancelled; the session stays busy until that
// worker has returned.
func (s *Session) SelectImage(path string) error {
	img, err := capture.ReadImage(path)
	if err != nil {
		s.view.ShowError(titleError, err)
		return err
	}

	s.cancelRun()
	s.generation++

	s.imagePath = path
	s.result = nil
	s.view.ShowOriginal(img)
	s.view.ShowAnnotated(nil)
	s.setStatus(fmt.Sprintf("Image selected: %s", filepath.Base(path)))
	s.view.SetDetectionText("")
	s.setSaveEnabled(false)
	return nil
}

type detectResponse struct {
	generation uint64
	result     *models.DetectionResult
	err        error
}

// RunDetection starts one background detection for the current image.
func (s *Session) RunDetection() error {
	if s.imagePath == "" {
		s.view.ShowWarning(titleError, "You must selected an image first")
		return ErrNoImage
	}
	if s.det == nil {
		s.view.ShowWarning(titleError, "You must load the model first")
		return ErrNoDetector
	}
	if !s.running.CompareAndSwap(false, true) {
		s.view.ShowWarning(titleError, "Detection already running")
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	gen := s.generation
	path, det, conf := s.imagePath, s.det, s.confidence

	s.setStatus("Calling YOLOv8 model...")

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		resp := detectResponse{generation: gen}
		resp.result, resp.err = detect(ctx, det, path, conf)
		s.post(func() { s.apply(resp) })
	}()
	return nil
}

func detect(ctx context.Context, det detector.Detector, path string, conf float32) (*models.DetectionResult, error) {
	img, err := capture.ReadImage(path)
	if err != nil {
		return nil, err
	}
	return det.Detect(ctx, img, conf)
}

// apply runs on the UI goroutine and is the only place the busy flag is
// cleared, so a cancelled worker still holds it until Detect returns.
// Responses for an image that is no longer selected are dropped.
func (s *Session) apply(resp detectResponse) {
	s.running.Store(false)

	if resp.generation != s.generation {
		s.log.WithField("generation", resp.generation).Debug("dropping stale detection")
		return
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if resp.err != nil {
		s.setStatus(fmt.Sprintf("Unable to proceed: %v", resp.err))
		s.view.ShowError(titleError, errors.Wrap(resp.err, "Fail to proceed the detection"))
		s.setSaveEnabled(false)
		return
	}

	s.result = resp.result
	s.view.ShowAnnotated(resp.result.Annotated)
	s.view.SetDetectionText(FormatTally(resp.result.Detections))
	s.setStatus("Detection complete")
	s.setSaveEnabled(true)
}

// SaveTarget normalizes a save path: a missing extension becomes ".png" and
// the selected input image is refused.
func (s *Session) SaveTarget(path string) (string, error) {
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if samePath(path, s.imagePath) {
		return "", ErrOverwriteSrc
	}
	return path, nil
}

// SaveResult writes the annotated image to path. An empty path means the
// dialog was cancelled.
func (s *Session) SaveResult(path string) error {
	if s.result == nil || !s.saveEnabled {
		s.view.ShowWarning(titleError, "You must run the detection first")
		return ErrNoResult
	}
	if path == "" {
		return nil
	}
	path, err := s.SaveTarget(path)
	if err != nil {
		s.view.ShowError(titleError, err)
		return err
	}

	if err := capture.WriteImage(path, s.result.Annotated); err != nil {
		s.view.ShowError(titleError, errors.Wrap(err, "Unable to store the image"))
		return err
	}
	s.log.WithField("path", path).Info("result stored")
	s.view.ShowInfo(titleSuccess, fmt.Sprintf("Image has been stored to: %s", path))
	return nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if ia, err := os.Stat(a); err == nil {
		if ib, err := os.Stat(b); err == nil {
			return os.SameFile(ia, ib)
		}
	}
	ca, _ := filepath.Abs(a)
	cb, _ := filepath.Abs(b)
	return strings.EqualFold(filepath.Clean(ca), filepath.Clean(cb))
}

func (s *Session) cancelRun() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Close cancels any detection, waits for the worker and releases the detector.
func (s *Session) Close() error {
	s.cancelRun()
	s.generation++
	s.workers.Wait()
	s.running.Store(false)

	if s.det == nil {
		return nil
	}
	err := s.det.Close()
	s.det = nil
	return err
}
