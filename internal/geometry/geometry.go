// Package geometry converts between budget amounts and block dimensions
// under the area-preserving mapping width*height = amount*AreaScale.
package geometry

import "math"

const (
	// AreaScale is the page area given to one unit of money.
	AreaScale = 60.0
	// MinSize is the smallest side a block may have.
	MinSize = 1.0

	drawnMinSide   = 8.0
	drawnMinAmount = 50.0
)

// Size is a width/height pair.
type Size struct {
	W float64
	H float64
}

// Block is the geometric state of one budget item.
type Block struct {
	W      float64
	H      float64
	Amount float64
}

// Area returns the target area for amount. Negative amounts map to 0.
func Area(amount float64) float64 {
	if !finite(amount) || amount < 0 {
		return 0
	}
	return amount * AreaScale
}

// AmountForArea is the inverse of Area, 0 for a degenerate rectangle.
func AmountForArea(w, h float64) float64 {
	a := w * h
	if !finite(a) || a <= 0 {
		return 0
	}
	return a / AreaScale
}

// DimensionsForAmount sizes a block for amount, keeping the aspect ratio of
// the current w and h.
func DimensionsForAmount(amount, w, h float64) Size {
	area := Area(amount)
	if area <= 0 {
		return Size{W: MinSize, H: MinSize}
	}
	aspect := 1.0
	if finite(w) && finite(h) && w > 0 && h > 0 {
		aspect = w / h
	}
	return preferWidth(area, math.Sqrt(area*aspect))
}

// Resize applies a drag by scaleX/scaleY. The axis that moved more keeps its
// scaled length and the other one is recomputed from the existing amount.
func Resize(b Block, scaleX, scaleY float64) Block {
	area := Area(b.Amount)
	if area <= 0 {
		return Block{W: MinSize, H: MinSize, Amount: 0}
	}
	var s Size
	if math.Abs(scaleX-1) >= math.Abs(scaleY-1) {
		s = preferWidth(area, b.W*scaleX)
	} else {
		s = preferHeight(area, b.H*scaleY)
	}
	return Block{W: s.W, H: s.H, Amount: AmountForArea(s.W, s.H)}
}

// Drawn converts a rectangle dragged out between two corners into bounds and
// an amount. Sides are at least 8 and the amount is at least 50.
func Drawn(x0, y0, x1, y1 float64) (x, y float64, b Block) {
	x, y = math.Min(x0, x1), math.Min(y0, y1)
	w := math.Max(math.Abs(x1-x0), drawnMinSide)
	h := math.Max(math.Abs(y1-y0), drawnMinSide)
	amount := math.Max(drawnMinAmount, math.Round(w*h/AreaScale))
	return x, y, Block{W: w, H: h, Amount: amount}
}

func preferWidth(area, candidate float64) Size {
	hi := math.Max(MinSize, area/MinSize)
	w := clamp(candidate, MinSize, hi)
	h := clamp(area/w, MinSize, hi)
	w = clamp(area/h, MinSize, hi)
	h = clamp(area/w, MinSize, hi)
	return Size{W: w, H: h}
}

func preferHeight(area, candidate float64) Size {
	hi := math.Max(MinSize, area/MinSize)
	h := clamp(candidate, MinSize, hi)
	w := clamp(area/h, MinSize, hi)
	h = clamp(area/w, MinSize, hi)
	w = clamp(area/h, MinSize, hi)
	return Size{W: w, H: h}
}

// normalize maps NaN, infinities and non-positive lengths to MinSize.
func normalize(v float64) float64 {
	if !finite(v) || v <= 0 {
		return MinSize
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(normalize(v), lo), hi)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
