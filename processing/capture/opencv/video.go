// Package opencv implements capture.FrameReader and capture.FrameWriter on
// top of OpenCV.
package opencv

import (
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"predictor/processing/capture"
)

// GocvReader decodes a video file through OpenCV.
type GocvReader struct {
	path string
	cap  *gocv.VideoCapture
	mat  gocv.Mat
	info capture.VideoInfo
	read int
}

func NewGocvReader(path string) (*GocvReader, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open video %s", path)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("open video %s: no decoder available", path)
	}

	return &GocvReader{
		path: path,
		cap:  vc,
		mat:  gocv.NewMat(),
		info: capture.VideoInfo{
			FPS:        vc.Get(gocv.VideoCaptureFPS),
			Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
		},
	}, nil
}

func (r *GocvReader) Info() capture.VideoInfo {
	return r.info
}

// Read returns the next frame as RGBA. Any failed grab is end of stream: the
// container frame count is only an estimate for most backends. A grabbed
// frame that cannot be converted is reported as ErrFrameDecode.
func (r *GocvReader) Read() (image.Image, error) {
	if ok := r.cap.Read(&r.mat); !ok || r.mat.Empty() {
		return nil, io.EOF
	}
	r.read++

	img, err := r.mat.ToImage()
	if err != nil {
		return nil, errors.Wrapf(capture.ErrFrameDecode, "%s: frame %d: %v", r.path, r.read, err)
	}
	return img, nil
}

func (r *GocvReader) Close() error {
	r.mat.Close()
	return errors.Wrap(r.cap.Close(), "close video reader")
}

// GocvWriter encodes frames through OpenCV.
type GocvWriter struct {
	path   string
	writer *gocv.VideoWriter
	info   capture.VideoInfo
}

func NewGocvWriter(path, codec string, info capture.VideoInfo) (*GocvWriter, error) {
	vw, err := gocv.VideoWriterFile(path, codec, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return nil, errors.Wrapf(err, "create video %s", path)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, errors.Errorf("create video %s: codec %s unavailable", path, codec)
	}
	return &GocvWriter{path: path, writer: vw, info: info}, nil
}

func (w *GocvWriter) Write(frame image.Image) error {
	size := frame.Bounds().Size()
	if size.X != w.info.Width || size.Y != w.info.Height {
		return errors.Errorf("frame size %dx%d does not match video %dx%d", size.X, size.Y, w.info.Width, w.info.Height)
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return errors.Wrap(err, "convert frame")
	}
	defer mat.Close()

	return errors.Wrapf(w.writer.Write(mat), "write frame to %s", w.path)
}

func (w *GocvWriter) Close() error {
	return errors.Wrap(w.writer.Close(), "close video writer")
}

// OpenVideo opens path for frame-by-frame reading.
func OpenVideo(path string) (capture.FrameReader, error) {
	return NewGocvReader(path)
}

// CreateVideo creates path with the default codec.
func CreateVideo(path string, info capture.VideoInfo) (capture.FrameWriter, error) {
	return NewGocvWriter(path, capture.DefaultCodec, info)
}
