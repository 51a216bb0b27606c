// Package gallery holds the set of enrolled identities and their face
// embeddings. The in-memory set is the source of truth for matching; an
// optional store keeps it durable across restarts.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/store"
)

// ErrInvalidVector is returned when an embedding does not have the
// gallery's fixed dimensionality.
var ErrInvalidVector = errors.New("embedding has wrong dimensionality")

// Identity is one enrolled person. Immutable after enrollment.
type Identity struct {
	ID        int64
	Name      string
	Embedding []float32
}

// Gallery is a concurrency-safe set of identities keyed by id. Names are
// not unique; deletion targets every identity sharing a name.
type Gallery struct {
	mu         sync.RWMutex
	dim        int
	nextID     int64
	identities []Identity
	version    uint64 // bumped on every mutation, read by index rebuilders
	store      store.Store
	log        zerolog.Logger
}

// New creates an empty gallery for embeddings of exactly dim dimensions.
// st may be nil for a purely in-memory gallery.
func New(dim int, st store.Store, log zerolog.Logger) *Gallery {
	return &Gallery{
		dim:    dim,
		nextID: 1,
		store:  st,
		log:    log,
	}
}

// Load seeds the gallery from the store. Identities with a mismatched
// embedding dimension are skipped with a warning rather than failing the
// whole startup.
func (g *Gallery) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	records, err := g.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, rec := range records {
		if len(rec.Embedding) != g.dim {
			g.log.Warn().
				Int64("id", rec.ID).
				Str("name", rec.Name).
				Int("dim", len(rec.Embedding)).
				Msg("skipping stored identity with wrong embedding dimension")
			continue
		}
		g.identities = append(g.identities, Identity{
			ID:        rec.ID,
			Name:      rec.Name,
			Embedding: rec.Embedding,
		})
		if rec.ID >= g.nextID {
			g.nextID = rec.ID + 1
		}
	}
	g.version++

	g.log.Info().Int("count", len(g.identities)).Msg("gallery loaded")
	return nil
}

// Enroll adds a new identity and returns its id. The embedding is copied,
// so the caller may reuse its slice. The store write happens first; a store
// failure leaves the in-memory set untouched.
func (g *Gallery) Enroll(ctx context.Context, name string, embedding []float32) (int64, error) {
	if len(embedding) != g.dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrInvalidVector, len(embedding), g.dim)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	if g.store != nil {
		if err := g.store.Insert(ctx, id, name, vec); err != nil {
			return 0, fmt.Errorf("persisting identity: %w", err)
		}
	}
	g.nextID++
	g.identities = append(g.identities, Identity{ID: id, Name: name, Embedding: vec})
	g.version++

	if collision, ok := g.nameCollisionLocked(name); ok {
		g.log.Warn().Str("name", name).Str("existing", collision).
			Msg("enrolled name is easily confused with an existing one")
	}

	return id, nil
}

// DeleteByName removes every identity with exactly the given name and
// returns how many were removed. A name with no matches yields 0, nil.
func (g *Gallery) DeleteByName(ctx context.Context, name string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store != nil {
		if _, err := g.store.DeleteByName(ctx, name); err != nil {
			return 0, fmt.Errorf("deleting identity: %w", err)
		}
	}

	kept := g.identities[:0:0]
	removed := 0
	for _, identity := range g.identities {
		if identity.Name == name {
			removed++
			continue
		}
		kept = append(kept, identity)
	}
	g.identities = kept
	if removed > 0 {
		g.version++
	}

	return removed, nil
}

// All returns a snapshot of the enrolled identities. The returned slice is
// a copy; identities themselves are immutable, so mutation after the call
// is never visible to the snapshot.
func (g *Gallery) All() []Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Identity, len(g.identities))
	copy(out, g.identities)
	return out
}

// Count returns the number of enrolled identities.
func (g *Gallery) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.identities)
}

// Dim returns the fixed embedding dimensionality.
func (g *Gallery) Dim() int {
	return g.dim
}

// Version returns a counter that changes whenever the gallery mutates.
// Index structures use it to detect staleness.
func (g *Gallery) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Name returns the display name for an identity id, or "" if unknown.
func (g *Gallery) Name(id int64) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, identity := range g.identities {
		if identity.ID == id {
			return identity.Name
		}
	}
	return ""
}
