package detector

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ClassTable maps model class ids to human-readable names.
type ClassTable map[int]string

// Name resolves id, falling back to "class_<id>" for ids the table does not know.
func (t ClassTable) Name(id int) string {
	if name, ok := t[id]; ok {
		return name
	}
	return fmt.Sprintf("class_%d", id)
}

// Len reports the number of classes, counting up to the highest id.
func (t ClassTable) Len() int {
	n := 0
	for id := range t {
		if id+1 > n {
			n = id + 1
		}
	}
	return n
}

// IDs returns the known class ids in ascending order.
func (t ClassTable) IDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func tableFromList(names []string) ClassTable {
	t := make(ClassTable, len(names))
	for i, n := range names {
		t[i] = n
	}
	return t
}

// LoadClassesYAML reads a dataset description with a `names` key, given either
// as a list or as an id->name mapping.
func LoadClassesYAML(path string) (ClassTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read classes %s", path)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse classes %s", path)
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Names.Decode(&list); err != nil {
			return nil, errors.Wrap(err, "decode names list")
		}
		if len(list) == 0 {
			return nil, errors.Errorf("no class names in %s", path)
		}
		return tableFromList(list), nil
	case yaml.MappingNode:
		var m map[int]string
		if err := doc.Names.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode names map")
		}
		if len(m) == 0 {
			return nil, errors.Errorf("no class names in %s", path)
		}
		return ClassTable(m), nil
	default:
		return nil, errors.Errorf("no class names in %s", path)
	}
}

var namesEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// parseNamesMetadata parses the `names` metadata entry written by YOLO ONNX
// exports, e.g. "{0: 'person', 1: 'bicycle'}".
func parseNamesMetadata(raw string) (ClassTable, error) {
	matches := namesEntry.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, errors.Errorf("no class names in metadata %q", raw)
	}

	t := make(ClassTable, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Wrapf(err, "class id %q", m[1])
		}
		name := m[2]
		if name == "" {
			name = m[3]
		}
		t[id] = name
	}
	return t, nil
}

// COCOClasses is the 80-class table YOLO models are trained on by default.
var COCOClasses = tableFromList([]string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
})
