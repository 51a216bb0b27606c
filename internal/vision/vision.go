// Package vision wraps the face detection and embedding models behind
// small interfaces so the pipeline can run against a real inference
// service or a scripted stub.
package vision

import (
	"context"
	"errors"
	"image"
)

// ErrInference is returned when a model is unavailable or the input is
// malformed. Callers treat it as a skip-this-frame condition, never fatal.
var ErrInference = errors.New("inference failed")

// Detection is one proposed face bounding box with its confidence score.
type Detection struct {
	Box        image.Rectangle // pixel coordinates in the source frame
	Confidence float64         // in [0, 1]
}

// Detector finds face bounding boxes in a full color frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)
}

// Embedder turns a normalized face crop into a fixed-length identity
// vector. Output is deterministic for a fixed model and input.
type Embedder interface {
	Embed(ctx context.Context, crop *Crop) ([]float32, error)
	Dim() int
}

// BestByConfidence returns the single highest-confidence detection,
// regardless of any threshold. ok is false for an empty slice. Ties keep
// the first, so the choice is stable.
func BestByConfidence(detections []Detection) (Detection, bool) {
	if len(detections) == 0 {
		return Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}
