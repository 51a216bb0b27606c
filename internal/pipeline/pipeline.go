// Package pipeline runs the per-frame recognition flow: detect faces,
// crop and normalize each one, embed it, and match it against the
// gallery. It also hosts the on-demand enrollment capture.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/vision"
)

var (
	// ErrNoFaceDetected is returned by CaptureAndEnroll when the frame
	// contains no detection at all.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrLowConfidence is returned when the best detection does not reach
	// the confidence floor.
	ErrLowConfidence = errors.New("best detection below confidence floor")

	// ErrEmptyName rejects enrollment before the store is touched.
	ErrEmptyName = errors.New("name must not be empty")
)

// FaceResult pairs a qualifying detection with its match outcome.
type FaceResult struct {
	Box   image.Rectangle
	Match match.Result
}

// Pipeline is a pure function of (frame, gallery snapshot); it keeps no
// state between frames.
type Pipeline struct {
	detector      vision.Detector
	embedder      vision.Embedder
	matcher       match.Matcher
	gallery       *gallery.Gallery
	minConfidence float64
	cropSide      int
	log           zerolog.Logger
}

func New(
	detector vision.Detector,
	embedder vision.Embedder,
	matcher match.Matcher,
	g *gallery.Gallery,
	minConfidence float64,
	cropSide int,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		detector:      detector,
		embedder:      embedder,
		matcher:       matcher,
		gallery:       g,
		minConfidence: minConfidence,
		cropSide:      cropSide,
		log:           log,
	}
}

// Evaluate runs detection over the frame and returns one result per
// qualifying detection. A detector error means the whole frame is
// skipped; a failure on a single face skips just that face.
func (p *Pipeline) Evaluate(ctx context.Context, frame image.Image) ([]FaceResult, error) {
	detections, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	var results []FaceResult
	for _, d := range detections {
		if d.Confidence < p.minConfidence {
			continue
		}

		embedding, err := p.embedFace(ctx, frame, d.Box)
		if err != nil {
			p.log.Debug().Err(err).Stringer("box", d.Box).Msg("skipping face")
			continue
		}

		results = append(results, FaceResult{
			Box:   d.Box,
			Match: p.matcher.Match(embedding),
		})
	}
	return results, nil
}

// CaptureAndEnroll picks the single best detection in the frame by
// confidence, requires it to reach the confidence floor, and enrolls the
// resulting embedding under name.
func (p *Pipeline) CaptureAndEnroll(ctx context.Context, frame image.Image, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}

	detections, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return 0, fmt.Errorf("detecting faces: %w", err)
	}

	best, ok := vision.BestByConfidence(detections)
	if !ok {
		return 0, ErrNoFaceDetected
	}
	if best.Confidence < p.minConfidence {
		return 0, fmt.Errorf("%w: %.2f", ErrLowConfidence, best.Confidence)
	}

	embedding, err := p.embedFace(ctx, frame, best.Box)
	if err != nil {
		return 0, err
	}

	id, err := p.gallery.Enroll(ctx, name, embedding)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FirstMatch reduces per-face results to the frame's aggregate signal:
// the first matched identity, if any.
func FirstMatch(results []FaceResult) (int64, bool) {
	for _, r := range results {
		if r.Match.Matched {
			return r.Match.IdentityID, true
		}
	}
	return 0, false
}

func (p *Pipeline) embedFace(ctx context.Context, frame image.Image, box image.Rectangle) ([]float32, error) {
	crop, err := vision.CropNormalize(frame, box, p.cropSide)
	if err != nil {
		return nil, err
	}
	embedding, err := p.embedder.Embed(ctx, crop)
	if err != nil {
		return nil, fmt.Errorf("embedding face: %w", err)
	}
	return embedding, nil
}
