package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"predictor/processing/capture"
)

// ImageOptions configures ProcessImage.
type ImageOptions struct {
	ImagePath  string
	OutputPath string
	ModelID    string
	Confidence float32
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		ImagePath:  DefaultImagePath,
		OutputPath: DefaultImageOut,
		ModelID:    DefaultModel,
		Confidence: DefaultConfidence,
	}
}

// ProcessImage detects objects in one image, writes the annotated copy and
// prints one line per detection in detector order.
func (r *Runner) ProcessImage(ctx context.Context, opts ImageOptions) error {
	out := r.out()

	if !capture.Exists(opts.ImagePath) {
		fmt.Fprintf(out, "[ERROR] The image does not find: %s\n", opts.ImagePath)
		return errors.Wrapf(ErrMissingInput, "%s", opts.ImagePath)
	}

	start := time.Now()
	det, err := r.loadDetector(opts.ModelID)
	if err != nil {
		return err
	}
	defer closeDetector(det, r.log())
	r.log().WithField("model", opts.ModelID).WithField("elapsed", time.Since(start)).Info("model loaded")

	img, err := capture.ReadImage(opts.ImagePath)
	if err != nil {
		return err
	}

	res, err := det.Detect(ctx, img, opts.Confidence)
	if err != nil {
		return errors.Wrapf(err, "detect %s", opts.ImagePath)
	}

	if err := capture.WriteImage(opts.OutputPath, res.Annotated); err != nil {
		return err
	}

	fmt.Fprintf(out, " There are %d Object has been detected:\n", res.Len())
	for _, d := range res.Detections {
		fmt.Fprintf(out, "- %s (Confidence interval: %.2f)\n", d.ClassName, d.Confidence)
	}
	fmt.Fprintf(out, "The output has been stored to: %s\n", opts.OutputPath)

	return nil
}
