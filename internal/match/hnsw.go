package match

import (
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/facegate/facegate/internal/gallery"
)

// maxNeighbors (M) is the maximum number of neighbors per HNSW node.
const maxNeighbors = 16

// Index is an approximate-nearest-neighbor matcher for large galleries.
// Matching semantics are unchanged from Linear: the candidate the graph
// returns is re-checked with an exact L2 distance against the threshold.
// The graph is rebuilt lazily whenever the gallery version moves.
type Index struct {
	mu        sync.Mutex
	gallery   *gallery.Gallery
	threshold float64
	graph     *hnsw.Graph[int64]
	built     uint64 // gallery version the graph was built from
}

// NewIndex creates an HNSW-backed matcher over the gallery.
func NewIndex(g *gallery.Gallery, threshold float64) *Index {
	return &Index{gallery: g, threshold: threshold}
}

func (m *Index) Match(embedding []float32) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuildLocked()

	best := Result{Distance: math.Inf(1)}
	if m.graph == nil {
		return best
	}

	neighbors := m.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return best
	}

	best.Distance = l2Distance(embedding, neighbors[0].Value)
	if best.Distance < m.threshold {
		best.Matched = true
		best.IdentityID = neighbors[0].Key
	}
	return best
}

func (m *Index) rebuildLocked() {
	version := m.gallery.Version()
	if m.graph != nil && m.built == version {
		return
	}

	identities := m.gallery.All()
	if len(identities) == 0 {
		m.graph = nil
		m.built = version
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for _, identity := range identities {
		g.Add(hnsw.MakeNode(identity.ID, identity.Embedding))
	}

	m.graph = g
	m.built = version
}
