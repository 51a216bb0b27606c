// Package camera supplies frames to the monitor loop. A failed or empty
// read is a skipped tick, never fatal.
package camera

import (
	"context"
	"image"
)

// Source yields one frame per call.
type Source interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (image.Image, error)

func (f SourceFunc) NextFrame(ctx context.Context) (image.Image, error) { return f(ctx) }
func (f SourceFunc) Close() error                                       { return nil }
