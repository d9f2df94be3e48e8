package treemap

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/moneyshape/internal/geometry"
)

func sampleItems() []Item {
	return []Item{
		{ID: "a", Amount: 600, X: 0, Y: 0, W: 10, H: 10},
		{ID: "b", Amount: 300, X: 200, Y: 40, W: 10, H: 10},
		{ID: "c", Amount: 100, X: 50, Y: 90, W: 10, H: 10},
		{ID: "d", Amount: 0, X: 20, Y: 20, W: 10, H: 10},
	}
}

func TestLayout_Empty(t *testing.T) {
	assert.Empty(t, Layout(nil, Options{}))
	assert.Empty(t, Layout([]Item{}, Options{}))
}

func TestLayout_NonFiniteTotal(t *testing.T) {
	got := Layout([]Item{{ID: "a", Amount: math.Inf(1), W: 1, H: 1}}, Options{})
	assert.Empty(t, got)
	got = Layout([]Item{{ID: "a", Amount: math.NaN(), W: 1, H: 1}}, Options{})
	assert.Empty(t, got)
}

func TestLayout_ConservesArea(t *testing.T) {
	items := sampleItems()
	got := Layout(items, Options{})
	require.Len(t, got, len(items))

	want := 0.0
	for _, it := range items {
		want += math.Max(it.Amount*geometry.AreaScale, 1)
	}
	sum := 0.0
	for _, c := range got {
		sum += c.W * c.H
	}
	assert.InEpsilon(t, want, sum, 1e-9)
}

func TestLayout_CellAreasProportional(t *testing.T) {
	got := Layout(sampleItems(), Options{})
	for _, c := range got {
		want := math.Max(c.Amount*geometry.AreaScale, 1)
		assert.InEpsilon(t, want, c.W*c.H, 1e-9, "cell %s", c.ID)
	}
}

func TestLayout_SortedByAreaAndAmountsUnchanged(t *testing.T) {
	got := Layout(sampleItems(), Options{})
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, ids); diff != "" {
		t.Fatalf("cell order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0.0, got[3].Amount)
}

func TestLayout_OriginAndFootprint(t *testing.T) {
	items := sampleItems()
	got := Layout(items, Options{})

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range got {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X+c.W)
		maxY = math.Max(maxY, c.Y+c.H)
	}
	assert.InDelta(t, 0, minX, 1e-9)
	assert.InDelta(t, 0, minY, 1e-9)

	// selection is 210x100, so the container keeps aspect 2.1
	assert.InDelta(t, 2.1, (maxX-minX)/(maxY-minY), 1e-9)

	moved := Layout(items, Options{Origin: &Point{X: 1000, Y: -50}})
	for i := range moved {
		assert.InDelta(t, got[i].X+1000, moved[i].X, 1e-9)
		assert.InDelta(t, got[i].Y-50, moved[i].Y, 1e-9)
	}
}

func TestLayout_AspectClamped(t *testing.T) {
	items := []Item{
		{ID: "a", Amount: 100, X: 0, Y: 0, W: 5000, H: 1},
		{ID: "b", Amount: 100, X: 0, Y: 0, W: 1, H: 1},
	}
	got := Layout(items, Options{})
	w := math.Max(got[0].X+got[0].W, got[1].X+got[1].W) - math.Min(got[0].X, got[1].X)
	h := math.Max(got[0].Y+got[0].H, got[1].Y+got[1].H) - math.Min(got[0].Y, got[1].Y)
	assert.InDelta(t, 4, w/h, 1e-9)

	custom := Layout(items, Options{Aspect: AspectBounds{Min: 1, Max: 1}})
	w = math.Max(custom[0].X+custom[0].W, custom[1].X+custom[1].W) - math.Min(custom[0].X, custom[1].X)
	h = math.Max(custom[0].Y+custom[0].H, custom[1].Y+custom[1].H) - math.Min(custom[0].Y, custom[1].Y)
	assert.InDelta(t, 1, w/h, 1e-9)
}

func TestLayout_CellsDoNotOverlap(t *testing.T) {
	got := Layout(sampleItems(), Options{Padding: 4})
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			a, b := got[i], got[j]
			overlapX := math.Min(a.X+a.W, b.X+b.W) - math.Max(a.X, b.X)
			overlapY := math.Min(a.Y+a.H, b.Y+b.H) - math.Max(a.Y, b.Y)
			if overlapX > 1e-9 && overlapY > 1e-9 {
				t.Fatalf("cells %s and %s overlap", a.ID, b.ID)
			}
		}
	}
}

func TestLayout_Round(t *testing.T) {
	got := Layout(sampleItems(), Options{Round: true})
	for _, c := range got {
		assert.Equal(t, math.Round(c.X), c.X)
		assert.Equal(t, math.Round(c.W), c.W)
	}
}

func TestFit_CentersExactBlocks(t *testing.T) {
	cells := []Item{{ID: "a", Amount: 60, X: 10, Y: 10, W: 100, H: 25}}
	got := Fit(cells)
	want := []Item{{ID: "a", Amount: 60, X: 0, Y: 7.5, W: 120, H: 30}}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("Fit mismatch (-want +got):\n%s", diff)
	}
}
