// Package stub provides scripted detector and embedder implementations
// so recognition scenarios are reproducible without real models.
package stub

import (
	"context"
	"image"
	"sync"

	"github.com/facegate/facegate/internal/vision"
)

// Detector returns a scripted sequence of detection sets, one per Detect
// call. When the script runs out it keeps returning the last entry. Err,
// when set, is returned on every call instead.
type Detector struct {
	mu     sync.Mutex
	Script [][]vision.Detection
	Err    error
	calls  int
}

func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]vision.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	if len(d.Script) == 0 {
		return nil, nil
	}
	i := d.calls
	if i >= len(d.Script) {
		i = len(d.Script) - 1
	}
	d.calls++
	return d.Script[i], nil
}

// Calls returns how many times Detect has run.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Embedder returns scripted vectors in order, repeating the last one once
// the script is exhausted. Err, when set, is returned on every call.
type Embedder struct {
	mu      sync.Mutex
	Vectors [][]float32
	EmbDim  int
	Err     error
	calls   int
}

func (e *Embedder) Embed(ctx context.Context, crop *vision.Crop) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if len(e.Vectors) == 0 {
		return make([]float32, e.Dim()), nil
	}
	i := e.calls
	if i >= len(e.Vectors) {
		i = len(e.Vectors) - 1
	}
	e.calls++
	return e.Vectors[i], nil
}

func (e *Embedder) Dim() int {
	if e.EmbDim != 0 {
		return e.EmbDim
	}
	if len(e.Vectors) > 0 {
		return len(e.Vectors[0])
	}
	return 128
}

// Calls returns how many times Embed has run.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
