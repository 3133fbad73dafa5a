package batch

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"predictor/processing/capture"
)

// VideoOptions configures ProcessVideo.
type VideoOptions struct {
	VideoPath  string
	OutputPath string
	ModelID    string
	Confidence float32
}

func DefaultVideoOptions() VideoOptions {
	return VideoOptions{
		VideoPath:  DefaultVideoPath,
		OutputPath: DefaultVideoOut,
		ModelID:    DefaultModel,
		Confidence: DefaultConfidence,
	}
}

// ProcessVideo annotates every frame of a video into an output with the same
// frame rate and resolution. Reader and writer are always released. The loop
// runs until the reader reports end of stream, whatever frame count the
// container advertised. A frame that fails to decode stops processing with an
// error wrapping capture.ErrFrameDecode; the frames written so far stay in the
// output.
func (r *Runner) ProcessVideo(ctx context.Context, opts VideoOptions) (err error) {
	out := r.out()

	if !capture.Exists(opts.VideoPath) {
		fmt.Fprintf(out, "[ERROR] The video file does not find in %s\n", opts.VideoPath)
		return errors.Wrapf(ErrMissingInput, "%s", opts.VideoPath)
	}
	if r.OpenVideo == nil || r.CreateVideo == nil {
		return errors.New("no video backend configured")
	}

	det, err := r.loadDetector(opts.ModelID)
	if err != nil {
		return err
	}
	defer closeDetector(det, r.log())

	reader, err := r.OpenVideo(opts.VideoPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, reader.Close()) }()

	info := reader.Info()
	writer, err := r.CreateVideo(opts.OutputPath, info)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, writer.Close()) }()

	fmt.Fprintf(out, "The video is now proceed: %s\n", opts.VideoPath)
	fmt.Fprintf(out, "FPS: %.2f FPS, Pixel=%dx%d, Number of Frames=%d\n", info.FPS, info.Width, info.Height, info.FrameCount)

	frameCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "stopped after %d frames", frameCount)
		}

		frame, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.log().WithError(err).WithField("frames", frameCount).Error("frame decode failed")
			return err
		}

		frameCount++
		if frameCount%progressEvery == 0 {
			fmt.Fprintf(out, " %d/%d frames has been proceed (%s)\n", frameCount, info.FrameCount, progressPercent(frameCount, info.FrameCount))
		}

		res, err := det.Detect(ctx, frame, opts.Confidence)
		if err != nil {
			return errors.Wrapf(err, "detect frame %d", frameCount)
		}

		if err := writer.Write(res.Annotated); err != nil {
			return errors.Wrapf(err, "write frame %d", frameCount)
		}
	}

	if info.FrameCount > 0 && frameCount != info.FrameCount {
		r.log().WithField("frames", frameCount).WithField("advertised", info.FrameCount).Warn("frame count differs from container metadata")
	} else {
		r.log().WithField("frames", frameCount).Debug("end of stream")
	}
	fmt.Fprintf(out, "The video is now stored in: %s\n", opts.OutputPath)
	return nil
}

// progressPercent formats count/total with one decimal. Containers that do
// not advertise a frame count report n/a.
func progressPercent(count, total int) string {
	if total <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
}
