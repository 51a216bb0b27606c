package match

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/gallery"
)

const testDim = 4

func galleryWith(t *testing.T, people map[string][]float32) *gallery.Gallery {
	t.Helper()
	g := gallery.New(testDim, nil, zerolog.Nop())
	for name, embedding := range people {
		if _, err := g.Enroll(context.Background(), name, embedding); err != nil {
			t.Fatalf("enroll %s: %v", name, err)
		}
	}
	return g
}

func TestLinear_PicksNearest(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	ctx := context.Background()
	farID, _ := g.Enroll(ctx, "far", []float32{5, 5, 5, 5})
	nearID, _ := g.Enroll(ctx, "near", []float32{1, 0, 0, 0})

	m := NewLinear(g, 0.8)
	result := m.Match([]float32{1.1, 0, 0, 0})

	if !result.Matched {
		t.Fatalf("expected a match, got distance %f", result.Distance)
	}
	if result.IdentityID != nearID {
		t.Errorf("expected id %d, got %d", nearID, result.IdentityID)
	}
	if result.IdentityID == farID {
		t.Error("matched the farther identity")
	}
	if math.Abs(result.Distance-0.1) > 1e-6 {
		t.Errorf("expected distance 0.1, got %f", result.Distance)
	}
}

func TestLinear_ThresholdIsStrict(t *testing.T) {
	g := galleryWith(t, map[string][]float32{
		"alice": {0, 0, 0, 0},
	})

	// Distance exactly at the threshold must not match.
	m := NewLinear(g, 0.8)
	result := m.Match([]float32{0.8, 0, 0, 0})
	if result.Matched {
		t.Errorf("distance %f equals the threshold and must not match", result.Distance)
	}
	if result.IdentityID != 0 {
		t.Errorf("rejected match must not carry an identity, got %d", result.IdentityID)
	}

	result = m.Match([]float32{0.79, 0, 0, 0})
	if !result.Matched {
		t.Errorf("distance %f under the threshold must match", result.Distance)
	}
}

func TestLinear_TieKeepsFirstEnrolled(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	ctx := context.Background()
	first, _ := g.Enroll(ctx, "first", []float32{0.5, 0, 0, 0})
	g.Enroll(ctx, "second", []float32{-0.5, 0, 0, 0})

	m := NewLinear(g, 0.8)
	result := m.Match([]float32{0, 0, 0, 0})

	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.IdentityID != first {
		t.Errorf("tie must keep the first enrolled identity, got %d", result.IdentityID)
	}
}

func TestLinear_EmptyGallery(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	m := NewLinear(g, 0.8)

	result := m.Match([]float32{1, 2, 3, 4})
	if result.Matched {
		t.Error("empty gallery must never match")
	}
	if !math.IsInf(result.Distance, 1) {
		t.Errorf("expected +Inf distance, got %f", result.Distance)
	}
	if result.IdentityID != 0 {
		t.Errorf("expected zero identity id, got %d", result.IdentityID)
	}
}

func TestLinear_DimensionMismatchNeverMatches(t *testing.T) {
	g := galleryWith(t, map[string][]float32{
		"alice": {0, 0, 0, 0},
	})

	m := NewLinear(g, 0.8)
	result := m.Match([]float32{0, 0})
	if result.Matched {
		t.Error("mismatched probe dimension must not match")
	}
	if !math.IsInf(result.Distance, 1) {
		t.Errorf("expected +Inf distance, got %f", result.Distance)
	}
}

func TestIndex_MatchesLikeLinear(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	ctx := context.Background()
	aliceID, _ := g.Enroll(ctx, "alice", []float32{1, 0, 0, 0})
	g.Enroll(ctx, "bob", []float32{0, 1, 0, 0})
	g.Enroll(ctx, "carol", []float32{0, 0, 1, 0})

	m := NewIndex(g, 0.8)
	result := m.Match([]float32{0.9, 0.1, 0, 0})
	if !result.Matched {
		t.Fatalf("expected a match, got distance %f", result.Distance)
	}
	if result.IdentityID != aliceID {
		t.Errorf("expected id %d, got %d", aliceID, result.IdentityID)
	}

	result = m.Match([]float32{10, 10, 10, 10})
	if result.Matched {
		t.Errorf("distance %f is far over the threshold and must not match", result.Distance)
	}
}

func TestIndex_EmptyGallery(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	m := NewIndex(g, 0.8)

	result := m.Match([]float32{1, 0, 0, 0})
	if result.Matched {
		t.Error("empty gallery must never match")
	}
	if !math.IsInf(result.Distance, 1) {
		t.Errorf("expected +Inf distance, got %f", result.Distance)
	}
}

func TestIndex_RebuildsOnGalleryChange(t *testing.T) {
	g := gallery.New(testDim, nil, zerolog.Nop())
	ctx := context.Background()
	m := NewIndex(g, 0.8)

	if m.Match([]float32{1, 0, 0, 0}).Matched {
		t.Fatal("match against empty gallery")
	}

	id, _ := g.Enroll(ctx, "alice", []float32{1, 0, 0, 0})
	result := m.Match([]float32{1, 0, 0, 0})
	if !result.Matched || result.IdentityID != id {
		t.Fatalf("index did not pick up the enrollment: %+v", result)
	}

	g.DeleteByName(ctx, "alice")
	if m.Match([]float32{1, 0, 0, 0}).Matched {
		t.Error("index did not pick up the deletion")
	}
}

func TestL2Distance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"unit", []float32{1, 0}, []float32{0, 0}, 1},
		{"pythagorean", []float32{3, 4}, []float32{0, 0}, 5},
		{"negative", []float32{-1, -1}, []float32{1, 1}, 2 * math.Sqrt2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := l2Distance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tc.want, got)
			}
		})
	}
}
