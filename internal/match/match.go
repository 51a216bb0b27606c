// Package match finds the enrolled identity nearest to a probe embedding
// under an L2 distance threshold.
package match

import (
	"math"

	"github.com/facegate/facegate/internal/gallery"
)

// Result is the outcome of matching one embedding against the gallery.
// When no identity falls under the threshold, Matched is false and
// Distance carries the best (smallest) distance seen, or +Inf for an
// empty gallery.
type Result struct {
	IdentityID int64
	Matched    bool
	Distance   float64
}

// Matcher maps a probe embedding to the nearest enrolled identity.
type Matcher interface {
	Match(embedding []float32) Result
}

// Linear scans every identity in the gallery snapshot. Gallery sizes are
// small (dozens to low hundreds), so a full scan fits comfortably in the
// per-frame budget; the HNSW variant exists for anything larger.
type Linear struct {
	gallery   *gallery.Gallery
	threshold float64
}

// NewLinear creates a linear matcher over the gallery with the given L2
// distance threshold.
func NewLinear(g *gallery.Gallery, threshold float64) *Linear {
	return &Linear{gallery: g, threshold: threshold}
}

func (m *Linear) Match(embedding []float32) Result {
	best := Result{Distance: math.Inf(1)}

	for _, identity := range m.gallery.All() {
		d := l2Distance(embedding, identity.Embedding)
		// Strict < keeps the first minimum on ties.
		if d < best.Distance {
			best.Distance = d
			best.IdentityID = identity.ID
		}
	}

	if best.Distance < m.threshold {
		best.Matched = true
	} else {
		best.IdentityID = 0
	}
	return best
}

// l2Distance computes the Euclidean distance between two vectors.
// Mismatched lengths yield +Inf so a bad vector can never match.
func l2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
