package model

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	ParentID *string
	Bounds   *Bounds

	Amount   *float64
	Currency *string
	Kind     *Kind
	Name     *string

	Label *string
	To    *string

	Summary *Summary
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ParentID == nil && p.Bounds == nil &&
		p.Amount == nil && p.Currency == nil && p.Kind == nil && p.Name == nil &&
		p.Label == nil && p.To == nil && p.Summary == nil
}

// Apply writes the set fields into o. Fields that do not belong to o's type
// are ignored.
func (p Patch) Apply(o *Object) {
	if p.ParentID != nil {
		o.ParentID = *p.ParentID
	}
	if p.Bounds != nil {
		o.Bounds = *p.Bounds
	}
	if o.Item != nil {
		if p.Amount != nil {
			o.Item.Amount = *p.Amount
		}
		if p.Currency != nil {
			o.Item.Currency = *p.Currency
		}
		if p.Kind != nil {
			o.Item.Kind = *p.Kind
		}
		if p.Name != nil {
			o.Item.Name = *p.Name
		}
	}
	if o.Container != nil && p.Name != nil {
		o.Container.Name = *p.Name
	}
	if o.Link != nil {
		if p.Label != nil {
			o.Link.Label = *p.Label
		}
		if p.To != nil {
			o.Link.To = *p.To
		}
	}
	if o.Summary != nil && p.Summary != nil {
		*o.Summary = *p.Summary
	}
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
