package models

import "image"

// Detection is one located object instance.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float32
	Box        image.Rectangle
}

// DetectionResult is produced once per processed image or frame.
type DetectionResult struct {
	Detections []Detection
	// Annotated has the same bounds as the input with boxes burned in.
	Annotated image.Image
}

// Len reports the number of detections.
func (r *DetectionResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Detections)
}

// WireDetection is the JSON shape exchanged with a remote detection server.
// Box holds normalized [y1, x1, y2, x2] coordinates.
type WireDetection struct {
	ClassID    int       `json:"class_id"`
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Box        []float32 `json:"box"`
}
