// Package monitor runs the frame loop: a fixed-interval tick pulls a
// frame from the camera, evaluates it through the recognition pipeline,
// and feeds the aggregate signal to the access controller.
//
// At most one evaluation is in flight at any time. A tick that lands
// while an evaluation is still running parks its frame in a single-slot
// mailbox; a newer frame overwrites an unconsumed one, so inference that
// is slower than the tick period degrades to a lower frame rate instead
// of an unbounded queue.
package monitor

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/access"
	"github.com/facegate/facegate/internal/camera"
	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/pipeline"
)

// ErrNoFrame is returned by EnrollFromCamera before the first frame has
// been captured.
var ErrNoFrame = errors.New("no frame captured yet")

type Monitor struct {
	source     camera.Source
	pipeline   *pipeline.Pipeline
	controller *access.Controller
	gallery    *gallery.Gallery
	tick       time.Duration
	log        zerolog.Logger

	mu        sync.Mutex
	busy      bool
	pending   image.Image // single-slot mailbox, nil = consumed
	lastFrame image.Image
	drops     uint64
	wg        sync.WaitGroup
}

func New(
	source camera.Source,
	p *pipeline.Pipeline,
	controller *access.Controller,
	g *gallery.Gallery,
	tick time.Duration,
	log zerolog.Logger,
) *Monitor {
	return &Monitor{
		source:     source,
		pipeline:   p,
		controller: controller,
		gallery:    g,
		tick:       tick,
		log:        log,
	}
}

// Run drives the loop until ctx is cancelled, then waits for any
// in-flight evaluation to finish.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	m.log.Info().Dur("tick", m.tick).Msg("monitor started")
	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			m.onTick(ctx)
		}
	}
}

func (m *Monitor) onTick(ctx context.Context) {
	// Deadlines first, so the door can lock even when the camera is down.
	m.controller.Tick()

	frame, err := m.source.NextFrame(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("skipping tick: no frame")
		return
	}
	if frame == nil {
		return
	}

	m.mu.Lock()
	m.lastFrame = frame
	if m.busy {
		if m.pending != nil {
			m.drops++
		}
		m.pending = frame
		m.mu.Unlock()
		return
	}
	m.busy = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.evaluate(ctx, frame)
}

// evaluate processes frame, then drains the mailbox until no newer frame
// arrived while it was running.
func (m *Monitor) evaluate(ctx context.Context, frame image.Image) {
	defer m.wg.Done()

	for {
		results, err := m.pipeline.Evaluate(ctx, frame)
		if err != nil {
			// A bad frame or unavailable model degrades to "no match".
			m.log.Warn().Err(err).Msg("frame evaluation skipped")
		} else {
			id, matched := pipeline.FirstMatch(results)
			name := ""
			if matched {
				name = m.gallery.Name(id)
			}
			m.controller.Observe(matched, name)
		}

		m.mu.Lock()
		if m.pending == nil || ctx.Err() != nil {
			m.busy = false
			m.mu.Unlock()
			return
		}
		frame = m.pending
		m.pending = nil
		m.mu.Unlock()
	}
}

// EnrollFromCamera runs enrollment capture against the most recent
// frame. Used by the register action while the daemon runs.
func (m *Monitor) EnrollFromCamera(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	frame := m.lastFrame
	m.mu.Unlock()

	if frame == nil {
		return 0, ErrNoFrame
	}
	return m.pipeline.CaptureAndEnroll(ctx, frame, name)
}

// Drops reports how many frames were overwritten unconsumed.
func (m *Monitor) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
