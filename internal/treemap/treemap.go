// Package treemap arranges budget amounts into a squarified treemap whose
// cell areas are proportional to the amounts.
package treemap

import (
	"math"
	"sort"

	"github.com/theirongolddev/moneyshape/internal/geometry"
)

// Item is one block to arrange, with its current page-space bounds.
type Item struct {
	ID     string
	Amount float64
	X, Y   float64
	W, H   float64
}

// Point is a page-space coordinate.
type Point struct {
	X, Y float64
}

// AspectBounds limits the aspect ratio of the treemap container.
type AspectBounds struct {
	Min float64
	Max float64
}

// DefaultAspectBounds keeps the container between 1:4 and 4:1.
var DefaultAspectBounds = AspectBounds{Min: 0.25, Max: 4}

// Options tune Layout. The zero value uses the defaults.
type Options struct {
	// Padding is the gap between neighbouring cells.
	Padding float64
	// Origin places the treemap's top-left corner. Nil uses the
	// selection's top-left corner.
	Origin *Point
	// Aspect bounds the container aspect ratio. Zero uses DefaultAspectBounds.
	Aspect AspectBounds
	// Round snaps cell edges to whole units.
	Round bool
}

type node struct {
	id     string
	amount float64
	value  float64
	x0, y0 float64
	x1, y1 float64
}

// Layout tiles items into a container shaped like their current selection.
// Each returned cell carries the input amount unchanged. An empty or
// degenerate input yields nil.
func Layout(items []Item, opts Options) []Item {
	if len(items) == 0 {
		return nil
	}

	minArea := geometry.MinSize * geometry.MinSize
	nodes := make([]*node, len(items))
	total := 0.0
	for i, it := range items {
		area := math.Max(math.Max(it.Amount, 0)*geometry.AreaScale, minArea)
		nodes[i] = &node{id: it.ID, amount: it.Amount, value: area}
		total += area
	}
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, it := range items {
		minX = math.Min(minX, it.X)
		minY = math.Min(minY, it.Y)
		maxX = math.Max(maxX, it.X+it.W)
		maxY = math.Max(maxY, it.Y+it.H)
	}
	selW := math.Max(maxX-minX, geometry.MinSize)
	selH := math.Max(maxY-minY, geometry.MinSize)

	bounds := opts.Aspect
	if bounds.Min <= 0 || bounds.Max <= 0 || bounds.Min > bounds.Max {
		bounds = DefaultAspectBounds
	}
	aspect := math.Min(math.Max(selW/selH, bounds.Min), bounds.Max)
	if math.IsNaN(aspect) {
		aspect = 1
	}

	cw := math.Max(math.Sqrt(total*aspect), geometry.MinSize)
	ch := total / cw
	if ch < geometry.MinSize {
		ch = geometry.MinSize
		cw = math.Max(total/ch, geometry.MinSize)
	}
	ratio := math.Max(aspect, 1/aspect)

	origin := Point{X: minX, Y: minY}
	if opts.Origin != nil {
		origin = *opts.Origin
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].value > nodes[j].value })

	p := math.Max(opts.Padding, 0) / 2
	squarify(nodes, total, ratio, -p, -p, cw+p, ch+p)

	out := make([]Item, len(nodes))
	for i, n := range nodes {
		x0, y0, x1, y1 := inset(n.x0, n.y0, n.x1, n.y1, p)
		if opts.Round {
			x0, y0, x1, y1 = math.Round(x0), math.Round(y0), math.Round(x1), math.Round(y1)
		}
		out[i] = Item{
			ID:     n.id,
			Amount: n.amount,
			X:      origin.X + x0,
			Y:      origin.Y + y0,
			W:      x1 - x0,
			H:      y1 - y0,
		}
	}
	return out
}

// squarify lays out nodes (sorted by descending value, summing to value)
// in rows whose worst aspect ratio is kept as close to ratio as possible.
func squarify(nodes []*node, value, ratio, x0, y0, x1, y1 float64) {
	n := len(nodes)
	i0, i1 := 0, 0
	for i0 < n {
		dx, dy := x1-x0, y1-y0

		sum := nodes[i1].value
		i1++
		for sum == 0 && i1 < n {
			sum = nodes[i1].value
			i1++
		}
		minV, maxV := sum, sum
		alpha := math.Max(dy/dx, dx/dy) / (value * ratio)
		beta := sum * sum * alpha
		minRatio := math.Max(maxV/beta, beta/minV)

		for ; i1 < n; i1++ {
			v := nodes[i1].value
			sum += v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			beta = sum * sum * alpha
			r := math.Max(maxV/beta, beta/minV)
			if r > minRatio {
				sum -= v
				break
			}
			minRatio = r
		}

		row := nodes[i0:i1]
		if dx < dy {
			top := y0
			if value > 0 {
				y0 += dy * sum / value
			} else {
				y0 = y1
			}
			dice(row, sum, x0, top, x1, y0)
		} else {
			left := x0
			if value > 0 {
				x0 += dx * sum / value
			} else {
				x0 = x1
			}
			slice(row, sum, left, y0, x0, y1)
		}
		value -= sum
		i0 = i1
	}
}

// dice splits a row horizontally, left to right.
func dice(row []*node, sum, x0, y0, x1, y1 float64) {
	k := 0.0
	if sum > 0 {
		k = (x1 - x0) / sum
	}
	for _, n := range row {
		n.y0, n.y1 = y0, y1
		n.x0 = x0
		x0 += n.value * k
		n.x1 = x0
	}
}

// slice splits a row vertically, top to bottom.
func slice(row []*node, sum, x0, y0, x1, y1 float64) {
	k := 0.0
	if sum > 0 {
		k = (y1 - y0) / sum
	}
	for _, n := range row {
		n.x0, n.x1 = x0, x1
		n.y0 = y0
		y0 += n.value * k
		n.y1 = y0
	}
}

// inset shrinks a cell by p on every side, collapsing it to its center
// line when it is too thin.
func inset(x0, y0, x1, y1, p float64) (float64, float64, float64, float64) {
	x0, y0, x1, y1 = x0+p, y0+p, x1-p, y1-p
	if x1 < x0 {
		x0 = (x0 + x1) / 2
		x1 = x0
	}
	if y1 < y0 {
		y0 = (y0 + y1) / 2
		y1 = y0
	}
	return x0, y0, x1, y1
}
