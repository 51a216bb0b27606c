package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/vision"
	"github.com/facegate/facegate/internal/vision/stub"
)

const (
	testDim  = 4
	cropSide = 16
)

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func newTestPipeline(t *testing.T, detector *stub.Detector, embedder *stub.Embedder, enrolled map[string][]float32) (*Pipeline, *gallery.Gallery) {
	t.Helper()
	g := gallery.New(testDim, nil, zerolog.Nop())
	for name, embedding := range enrolled {
		if _, err := g.Enroll(context.Background(), name, embedding); err != nil {
			t.Fatalf("enroll %s: %v", name, err)
		}
	}
	matcher := match.NewLinear(g, 0.8)
	return New(detector, embedder, matcher, g, 0.6, cropSide, zerolog.Nop()), g
}

func TestEvaluate_MatchesEnrolledFace(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{{Box: image.Rect(10, 10, 100, 100), Confidence: 0.95}},
	}}
	embedder := &stub.Embedder{Vectors: [][]float32{{1, 0, 0, 0}}}

	p, g := newTestPipeline(t, detector, embedder, map[string][]float32{
		"alice": {1, 0, 0, 0},
	})

	results, err := p.Evaluate(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Match.Matched {
		t.Fatalf("expected a match, distance %f", results[0].Match.Distance)
	}
	if got := g.Name(results[0].Match.IdentityID); got != "alice" {
		t.Errorf("expected alice, got %q", got)
	}
}

func TestEvaluate_ConfidenceFloor(t *testing.T) {
	// 0.599 is filtered, exactly 0.6 qualifies.
	detector := &stub.Detector{Script: [][]vision.Detection{
		{
			{Box: image.Rect(0, 0, 50, 50), Confidence: 0.599},
			{Box: image.Rect(60, 0, 110, 50), Confidence: 0.6},
		},
	}}
	embedder := &stub.Embedder{Vectors: [][]float32{{0, 1, 0, 0}}}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	results, err := p.Evaluate(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 qualifying detection, got %d", len(results))
	}
	if results[0].Box != image.Rect(60, 0, 110, 50) {
		t.Errorf("wrong detection passed the floor: %v", results[0].Box)
	}
	if embedder.Calls() != 1 {
		t.Errorf("filtered detection must not be embedded, %d embed calls", embedder.Calls())
	}
}

func TestEvaluate_DetectorErrorSkipsFrame(t *testing.T) {
	detector := &stub.Detector{Err: vision.ErrInference}
	embedder := &stub.Embedder{EmbDim: testDim}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	if _, err := p.Evaluate(context.Background(), testFrame()); !errors.Is(err, vision.ErrInference) {
		t.Errorf("expected ErrInference, got %v", err)
	}
}

func TestEvaluate_EmbedderErrorSkipsFace(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{{Box: image.Rect(0, 0, 50, 50), Confidence: 0.9}},
	}}
	embedder := &stub.Embedder{Err: vision.ErrInference}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	results, err := p.Evaluate(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("per-face failure must not fail the frame: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestEvaluate_OutOfFrameBoxSkipped(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{
			{Box: image.Rect(900, 900, 1000, 1000), Confidence: 0.9},
			{Box: image.Rect(10, 10, 60, 60), Confidence: 0.9},
		},
	}}
	embedder := &stub.Embedder{Vectors: [][]float32{{0, 0, 1, 0}}}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	results, err := p.Evaluate(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the in-frame face only, got %d results", len(results))
	}
	if results[0].Box != image.Rect(10, 10, 60, 60) {
		t.Errorf("unexpected box %v", results[0].Box)
	}
}

func TestCaptureAndEnroll_PicksBestDetection(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{
			{Box: image.Rect(0, 0, 50, 50), Confidence: 0.55},
			{Box: image.Rect(100, 0, 150, 50), Confidence: 0.92},
		},
	}}
	embedder := &stub.Embedder{Vectors: [][]float32{{0.5, 0.5, 0, 0}}}

	p, g := newTestPipeline(t, detector, embedder, nil)

	id, err := p.CaptureAndEnroll(context.Background(), testFrame(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Name(id) != "alice" {
		t.Errorf("expected alice enrolled under id %d", id)
	}
	if embedder.Calls() != 1 {
		t.Errorf("expected exactly one embed call, got %d", embedder.Calls())
	}
}

func TestCaptureAndEnroll_NoFace(t *testing.T) {
	detector := &stub.Detector{}
	embedder := &stub.Embedder{EmbDim: testDim}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	if _, err := p.CaptureAndEnroll(context.Background(), testFrame(), "alice"); !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestCaptureAndEnroll_LowConfidence(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{{Box: image.Rect(0, 0, 50, 50), Confidence: 0.4}},
	}}
	embedder := &stub.Embedder{EmbDim: testDim}

	p, g := newTestPipeline(t, detector, embedder, nil)

	if _, err := p.CaptureAndEnroll(context.Background(), testFrame(), "alice"); !errors.Is(err, ErrLowConfidence) {
		t.Errorf("expected ErrLowConfidence, got %v", err)
	}
	if g.Count() != 0 {
		t.Errorf("rejected capture must not enroll, gallery has %d", g.Count())
	}
}

func TestCaptureAndEnroll_EmptyName(t *testing.T) {
	detector := &stub.Detector{Script: [][]vision.Detection{
		{{Box: image.Rect(0, 0, 50, 50), Confidence: 0.9}},
	}}
	embedder := &stub.Embedder{EmbDim: testDim}

	p, _ := newTestPipeline(t, detector, embedder, nil)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := p.CaptureAndEnroll(context.Background(), testFrame(), name); !errors.Is(err, ErrEmptyName) {
			t.Errorf("name %q: expected ErrEmptyName, got %v", name, err)
		}
	}
	if detector.Calls() != 0 {
		t.Error("empty name must be rejected before detection runs")
	}
}

func TestFirstMatch(t *testing.T) {
	results := []FaceResult{
		{Match: match.Result{Matched: false, Distance: 1.2}},
		{Match: match.Result{Matched: true, IdentityID: 7, Distance: 0.3}},
		{Match: match.Result{Matched: true, IdentityID: 9, Distance: 0.1}},
	}

	id, ok := FirstMatch(results)
	if !ok || id != 7 {
		t.Errorf("expected first matched identity 7, got %d (ok=%v)", id, ok)
	}

	if _, ok := FirstMatch(nil); ok {
		t.Error("no results must yield no match")
	}
	if _, ok := FirstMatch([]FaceResult{{Match: match.Result{}}}); ok {
		t.Error("unmatched results must yield no match")
	}
}
