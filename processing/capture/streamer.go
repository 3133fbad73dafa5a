package capture

import (
	"image"

	"github.com/pkg/errors"
)

// ErrFrameDecode reports a frame that was read from the container but could
// not be converted to an image.
var ErrFrameDecode = errors.New("frame decode failed")

// VideoInfo is the stream metadata needed to write a matching output.
type VideoInfo struct {
	FPS        float64
	Width      int
	Height     int
	FrameCount int
}

// FrameReader yields decoded frames in order. Read returns io.EOF at the end
// of the stream and an error wrapping ErrFrameDecode when a frame is corrupt.
type FrameReader interface {
	Info() VideoInfo
	Read() (image.Image, error)
	Close() error
}

// FrameWriter appends frames to an encoded video.
type FrameWriter interface {
	Write(frame image.Image) error
	Close() error
}
