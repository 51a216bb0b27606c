// Package access drives the door-lock state machine. Frame evaluations
// feed it an "authorized identity present" signal; it decides when the
// door opens, when it re-locks, and when a notification goes out.
package access

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/notify"
)

// State is the door state.
type State int

const (
	Locked State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "locked"
}

// Event is emitted on every door state transition.
type Event struct {
	State State
	Name  string // matched identity display name, if any
	At    time.Time
}

// Status is a point-in-time snapshot of the controller state.
type Status struct {
	DoorOpen          bool
	NotificationSent  bool
	DoorCloseDeadline time.Time
	LastMatchName     string
}

// Controller owns the access state. All transitions happen under one
// mutex, on the caller's tick goroutine; the only goroutines it spawns
// are fire-and-forget notification dispatches, tracked so shutdown can
// cancel them.
type Controller struct {
	holdDuration time.Duration
	cooldown     time.Duration
	message      string
	notifier     notify.Notifier
	log          zerolog.Logger
	now          func() time.Time

	mu                sync.Mutex
	doorOpen          bool
	notificationSent  bool
	doorCloseDeadline time.Time
	cooldownStart     time.Time
	lastMatchName     string
	listeners         map[chan Event]struct{}

	dispatchCtx    context.Context
	dispatchCancel context.CancelFunc
	wg             sync.WaitGroup
}

// Option adjusts controller construction.
type Option func(*Controller)

// WithClock replaces the monotonic clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller in the Locked state with no notification
// pending.
func New(holdDuration, cooldown time.Duration, message string, notifier notify.Notifier, log zerolog.Logger, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		holdDuration:   holdDuration,
		cooldown:       cooldown,
		message:        message,
		notifier:       notifier,
		log:            log,
		now:            time.Now,
		listeners:      make(map[chan Event]struct{}),
		dispatchCtx:    ctx,
		dispatchCancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe consumes one frame evaluation's aggregate signal. An
// authorized match while locked opens the door and arms the close
// deadline; repeated matches while open do not extend it.
func (c *Controller) Observe(authorized bool, name string) {
	if !authorized {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastMatchName = name
	if c.doorOpen {
		return
	}

	now := c.now()
	c.doorOpen = true
	c.doorCloseDeadline = now.Add(c.holdDuration)
	c.log.Info().Str("name", name).Msg("door open")
	c.emitLocked(Event{State: Open, Name: name, At: now})

	if c.notificationEligibleLocked(now) {
		c.notificationSent = true
		c.cooldownStart = now
		c.dispatchLocked(name)
	}
}

// Tick checks the door-close deadline against the monotonic clock. The
// monitor calls it once per frame tick; there are no timer callbacks.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.doorOpen {
		return
	}

	now := c.now()
	if now.Before(c.doorCloseDeadline) {
		return
	}

	c.doorOpen = false
	c.doorCloseDeadline = time.Time{}
	// Re-arm so the next authorization can notify again.
	c.notificationSent = false
	c.log.Info().Msg("door locked")
	c.emitLocked(Event{State: Locked, At: now})
}

// Snapshot returns the current state for status displays.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		DoorOpen:          c.doorOpen,
		NotificationSent:  c.notificationSent,
		DoorCloseDeadline: c.doorCloseDeadline,
		LastMatchName:     c.lastMatchName,
	}
}

// Subscribe registers a door-event listener. Slow listeners lose events
// rather than stalling the frame loop.
func (c *Controller) Subscribe() chan Event {
	ch := make(chan Event, 8)
	c.mu.Lock()
	c.listeners[ch] = struct{}{}
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (c *Controller) Unsubscribe(ch chan Event) {
	c.mu.Lock()
	delete(c.listeners, ch)
	c.mu.Unlock()
	close(ch)
}

// Close cancels in-flight notification dispatches, waits for them to
// finish, and releases the notifier (which zeroes its credentials).
func (c *Controller) Close() {
	c.dispatchCancel()
	c.wg.Wait()
	c.notifier.Close()
}

// notificationEligibleLocked implements the cooldown guard: never
// re-notify while the sent latch is up, and never before the cooldown
// window has elapsed since the previous dispatch.
func (c *Controller) notificationEligibleLocked(now time.Time) bool {
	if c.notificationSent {
		return false
	}
	if c.cooldownStart.IsZero() {
		return true
	}
	return now.Sub(c.cooldownStart) >= c.cooldown
}

// dispatchLocked fires a notification without blocking the frame loop.
// Failure is logged and never rolls back door state.
func (c *Controller) dispatchLocked(name string) {
	text := strings.ReplaceAll(c.message, "{name}", name)
	requestID := uuid.New().String()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.dispatchCtx, 10*time.Second)
		defer cancel()

		if err := c.notifier.Send(ctx, text); err != nil {
			c.log.Warn().Err(err).Str("request_id", requestID).Msg("notification failed")
			return
		}
		c.log.Info().Str("request_id", requestID).Msg("notification sent")
	}()
}

// emitLocked fans an event out to listeners; callers hold c.mu.
func (c *Controller) emitLocked(ev Event) {
	for ch := range c.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
