// Package detect defines the object-detection contract the rest of the
// service consumes. The actual model lives behind the Detector interface;
// inference internals are not this repository's concern.
package detect

import "context"

// Box is the pixel-space bounding rectangle of one detection. The
// downstream counting pipeline treats it as opaque.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one object instance found in an image, carrying the raw
// detector class label and confidence.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Result pairs the detections for an image with the annotated copy the
// detector rendered.
type Result struct {
	Detections    []Detection
	AnnotatedPath string
}

// Detector runs object detection on a stored image. Implementations own
// whatever serialization discipline the underlying engine needs; callers
// may invoke Detect from concurrent requests.
type Detector interface {
	Detect(ctx context.Context, imagePath string) (*Result, error)
}
