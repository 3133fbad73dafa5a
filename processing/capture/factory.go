package capture

// DefaultCodec is the fourcc used for annotated output videos.
const DefaultCodec = "mp4v"

// OpenFunc opens a video for frame-by-frame reading.
type OpenFunc func(path string) (FrameReader, error)

// CreateFunc opens an output video matching info.
type CreateFunc func(path string, info VideoInfo) (FrameWriter, error)
