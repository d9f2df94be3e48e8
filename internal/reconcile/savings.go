package reconcile

import (
	"fmt"
	"math"

	"github.com/theirongolddev/moneyshape/internal/aggregate"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/geometry"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// DefaultSavingsCurrency is used when the source container has no single
// currency.
const DefaultSavingsCurrency = "€"

// AddSavingsBlock creates a top-level savings item holding what containerID
// has left, sourced from it so later passes keep its amount current. It is
// placed below the container's summary, or below the container when it has
// none.
func (r *Reconciler) AddSavingsBlock(v document.View, m document.Mutator, containerID string) (string, error) {
	c, ok := v.Object(containerID)
	if !ok {
		return "", fmt.Errorf("container %s: %w", containerID, document.ErrNotFound)
	}
	if c.Type != model.TypeContainer {
		return "", fmt.Errorf("%s is a %s, not a container: %w", containerID, c.Type, document.ErrInvalid)
	}

	agg := aggregate.Container(v, containerID)
	amount := math.Max(agg.Left(), 0)
	currency, _ := agg.Currency()
	if currency == "" {
		currency = DefaultSavingsCurrency
	}

	anchor := c.Bounds
	for _, id := range document.OfType(v, model.TypeSummary) {
		if s, ok := v.Object(id); ok && s.Summary.ContainerID == containerID {
			anchor = s.Bounds
			break
		}
	}

	size := geometry.DimensionsForAmount(amount, 100, 100)
	id, err := m.Create(model.Object{
		ID:     model.NewID(model.TypeItem),
		Type:   model.TypeItem,
		Bounds: model.Bounds{X: anchor.X, Y: anchor.MaxY() + r.opts.SavingsGap, W: size.W, H: size.H},
		Item: &model.Item{
			Amount:            amount,
			Currency:          currency,
			Kind:              model.KindSavings,
			Name:              "Savings",
			SourceContainerID: containerID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("adding savings for %s: %w", containerID, err)
	}
	return id, nil
}
