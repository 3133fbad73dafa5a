package detector

import (
	"context"
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"predictor/internal/models"
)

var ortMu sync.Mutex

// getSharedLibPath returns the default location of the ONNX Runtime library.
func getSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

func initRuntime(libPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = getSharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnx runtime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	return errors.Wrap(ort.InitializeEnvironment(), "initialize onnx runtime")
}

// OnnxDetector runs a YOLOv8-style ONNX export. Detect calls are serialized
// because the session binds a single pair of tensors.
type OnnxDetector struct {
	mu sync.Mutex

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	inputSize int
	features  int
	anchors   int
	iou       float32
	names     ClassTable

	log *logrus.Logger
}

// NewOnnxDetector loads weights from path.
func NewOnnxDetector(path string, opts Options) (*OnnxDetector, error) {
	if err := initRuntime(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, errors.Wrapf(err, "inspect model %s", path)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.Errorf("model %s has no inputs or outputs", path)
	}

	names := loadNames(path, opts.Log)

	size := opts.InputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 && dims[2] == dims[3] {
		size = int(dims[2])
	}
	if size <= 0 {
		size = 640
	}

	features, anchors := 4+names.Len(), anchorCount(size)
	if dims := outputs[0].Dimensions; len(dims) == 3 && dims[1] > 0 && dims[2] > 0 {
		features, anchors = int(dims[1]), int(dims[2])
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), make([]float32, 3*size*size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(features), int64(anchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", path)
	}

	iouThreshold := opts.IoUThreshold
	if iouThreshold <= 0 {
		iouThreshold = 0.7
	}

	return &OnnxDetector{
		session:   session,
		input:     input,
		output:    output,
		inputSize: size,
		features:  features,
		anchors:   anchors,
		iou:       iouThreshold,
		names:     names,
		log:       opts.Log,
	}, nil
}

// anchorCount is the number of predictions a stride 8/16/32 head emits.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

// loadNames prefers the names embedded in the model, then a sidecar yaml
// file, then the COCO table.
func loadNames(path string, log *logrus.Logger) ClassTable {
	if meta, err := ort.GetModelMetadata(path); err == nil {
		defer meta.Destroy()
		if raw, ok, err := meta.LookupCustomMetadataMap("names"); err == nil && ok {
			if t, err := parseNamesMetadata(raw); err == nil {
				return t
			}
		}
	}

	if t, err := LoadClassesYAML(sidecarClasses(path)); err == nil {
		return t
	} else if !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("ignoring class names file")
	}

	return COCOClasses
}

func (d *OnnxDetector) Detect(ctx context.Context, img image.Image, threshold float32) (*models.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector is closed")
	}

	lb := prepareInput(img, d.inputSize, d.input.GetData())
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	cands := decodeOutput(d.output.GetData(), d.features, d.anchors, threshold)
	dets := toDetections(nms(cands, d.iou), lb, d.names)

	return &models.DetectionResult{
		Detections: dets,
		Annotated:  Plot(img, dets),
	}, nil
}

func (d *OnnxDetector) Names() ClassTable {
	return d.names
}

func (d *OnnxDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	d.session = nil
	return errors.Wrap(err, "destroy onnx session")
}
