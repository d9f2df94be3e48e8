package treemap

import "github.com/theirongolddev/moneyshape/internal/geometry"

// Fit resizes each cell's block to its exact amount, using the cell's shape
// as the aspect ratio, and centers it inside the cell.
func Fit(cells []Item) []Item {
	out := make([]Item, len(cells))
	for i, c := range cells {
		s := geometry.DimensionsForAmount(c.Amount, c.W, c.H)
		out[i] = Item{
			ID:     c.ID,
			Amount: c.Amount,
			X:      c.X + (c.W-s.W)/2,
			Y:      c.Y + (c.H-s.H)/2,
			W:      s.W,
			H:      s.H,
		}
	}
	return out
}
