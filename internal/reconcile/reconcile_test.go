package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/geometry"
	"github.com/theirongolddev/moneyshape/internal/model"
)

func container(id string, b model.Bounds) model.Object {
	return model.Object{ID: id, Type: model.TypeContainer, Bounds: b, Container: &model.Container{Name: "Budget " + id}}
}

func item(id, parent string, kind model.Kind, amount float64) model.Object {
	return model.Object{ID: id, Type: model.TypeItem, ParentID: parent,
		Bounds: model.Bounds{W: 10, H: 10}, Item: &model.Item{Kind: kind, Amount: amount, Currency: "EUR"}}
}

func sourced(id, parent, source string, amount float64) model.Object {
	o := item(id, parent, model.KindSavings, amount)
	o.Bounds = model.Bounds{X: 5, Y: 5, W: 40, H: 10}
	o.Item.SourceContainerID = source
	return o
}

func linkTo(id, from, to, label string) model.Object {
	return model.Object{ID: id, Type: model.TypeLink, Link: &model.Link{From: from, To: to, Label: label}}
}

func store(t *testing.T, objs ...model.Object) *document.Store {
	t.Helper()
	s, err := document.New(objs)
	require.NoError(t, err)
	return s
}

func run(t *testing.T, s *document.Store, r *Reconciler) (document.ChangeSet, Report) {
	t.Helper()
	var rep Report
	cs, err := s.Transact("engine", func(tx *document.Tx) error {
		var err error
		rep, err = r.Reconcile(tx, tx)
		return err
	})
	require.NoError(t, err)
	return cs, rep
}

func summaries(v document.View) []model.Object {
	var out []model.Object
	for _, id := range document.OfType(v, model.TypeSummary) {
		obj, _ := v.Object(id)
		out = append(out, obj)
	}
	return out
}

func TestReconcile_CreatesSummaryBesideContainer(t *testing.T) {
	s := store(t,
		container("home", model.Bounds{X: 10, Y: 20, W: 500, H: 400}),
		item("pay", "home", model.KindIncome, 1000),
		item("rent", "home", model.KindExpense, 400),
		container("empty", model.Bounds{}),
	)
	r := New(Options{}, nil)

	_, rep := run(t, s, r)
	assert.Equal(t, 1, rep.SummariesCreated)

	got := summaries(s.Snapshot())
	require.Len(t, got, 1)
	assert.Equal(t, model.Bounds{X: 710, Y: 20, W: 300, H: 200}, got[0].Bounds)
	sum := got[0].Summary
	assert.Equal(t, "home", sum.ContainerID)
	assert.Equal(t, "Budget home", sum.ContainerName)
	assert.Equal(t, 1000.0, sum.IncomeTotal)
	assert.Equal(t, 400.0, sum.ExpenseTotal)
	assert.Equal(t, "EUR", sum.Currency)
	assert.True(t, sum.HasIncome && sum.HasExpense && !sum.HasSavings)

	cs, rep := run(t, s, r)
	assert.True(t, cs.Empty(), "second pass wrote %v", cs.Changes)
	assert.False(t, rep.Changed())
}

func TestReconcile_FollowsContainerUnlessManuallyPositioned(t *testing.T) {
	s := store(t,
		container("home", model.Bounds{W: 100, H: 100}),
		item("pay", "home", model.KindIncome, 10),
	)
	r := New(Options{}, nil)
	run(t, s, r)

	_, err := s.Transact("user", func(tx *document.Tx) error {
		return tx.Update("home", model.Patch{Bounds: &model.Bounds{X: 50, Y: 60, W: 100, H: 100}})
	})
	require.NoError(t, err)
	run(t, s, r)
	sum := summaries(s.Snapshot())[0]
	assert.Equal(t, 350.0, sum.Bounds.X)
	assert.Equal(t, 60.0, sum.Bounds.Y)

	pinned := *sum.Summary
	pinned.ManuallyPositioned = true
	_, err = s.Transact("user", func(tx *document.Tx) error {
		return tx.Update(sum.ID, model.Patch{Bounds: &model.Bounds{X: -5, Y: -5, W: 300, H: 200}, Summary: &pinned})
	})
	require.NoError(t, err)
	_, err = s.Transact("user", func(tx *document.Tx) error {
		if err := tx.Update("home", model.Patch{Bounds: &model.Bounds{X: 900, Y: 900, W: 100, H: 100}}); err != nil {
			return err
		}
		return tx.Update("pay", model.Patch{Amount: model.Ptr(25.0)})
	})
	require.NoError(t, err)
	run(t, s, r)

	sum = summaries(s.Snapshot())[0]
	assert.Equal(t, -5.0, sum.Bounds.X)
	assert.Equal(t, 25.0, sum.Summary.IncomeTotal)
	assert.True(t, sum.Summary.ManuallyPositioned)
}

func TestReconcile_DeletesStaleAndDuplicateSummaries(t *testing.T) {
	stale := model.Object{ID: "sum:gone", Type: model.TypeSummary, Summary: &model.Summary{ContainerID: "gone"}}
	dup1 := model.Object{ID: "sum:1", Type: model.TypeSummary, Summary: &model.Summary{ContainerID: "home"}}
	dup2 := model.Object{ID: "sum:2", Type: model.TypeSummary, Summary: &model.Summary{ContainerID: "home"}}
	s := store(t,
		container("home", model.Bounds{W: 10, H: 10}),
		item("pay", "home", model.KindIncome, 10),
		stale, dup1, dup2,
	)
	_, rep := run(t, s, New(Options{}, nil))
	assert.Equal(t, 2, rep.SummariesDeleted)
	assert.Equal(t, 1, rep.SummariesUpdated)

	got := summaries(s.Snapshot())
	require.Len(t, got, 1)
	assert.Equal(t, "sum:1", got[0].ID)
}

func TestReconcile_RemovesSummaryWhenContentGoes(t *testing.T) {
	s := store(t,
		container("home", model.Bounds{W: 10, H: 10}),
		item("pay", "home", model.KindIncome, 10),
	)
	r := New(Options{}, nil)
	run(t, s, r)
	require.Len(t, summaries(s.Snapshot()), 1)

	_, err := s.Transact("user", func(tx *document.Tx) error { return tx.Delete("pay") })
	require.NoError(t, err)
	_, rep := run(t, s, r)
	assert.Equal(t, 1, rep.SummariesDeleted)
	assert.Empty(t, summaries(s.Snapshot()))
}

func TestReconcile_SourcedSavingsFollowsSource(t *testing.T) {
	s := store(t,
		container("jan", model.Bounds{W: 100, H: 100}),
		item("pay", "jan", model.KindIncome, 1000),
		item("rent", "jan", model.KindExpense, 400),
		sourced("kept", "", "jan", 0),
	)
	r := New(Options{}, nil)
	_, rep := run(t, s, r)
	assert.Equal(t, []string{"kept"}, rep.SavingsUpdated)

	kept, _ := s.Snapshot().Object("kept")
	assert.Equal(t, 600.0, kept.Item.Amount)
	assert.InEpsilon(t, 600*geometry.AreaScale, kept.Bounds.W*kept.Bounds.H, 1e-9)
	assert.InDelta(t, 4, kept.Bounds.W/kept.Bounds.H, 1e-9)
	assert.Equal(t, 5.0, kept.Bounds.X)

	cs, _ := run(t, s, r)
	assert.True(t, cs.Empty())
}

func TestReconcile_SourcedSavingsNeverNegative(t *testing.T) {
	s := store(t,
		container("jan", model.Bounds{W: 100, H: 100}),
		item("rent", "jan", model.KindExpense, 400),
		sourced("kept", "", "jan", 50),
	)
	run(t, s, New(Options{}, nil))
	kept, _ := s.Snapshot().Object("kept")
	assert.Equal(t, 0.0, kept.Item.Amount)
	assert.Equal(t, geometry.MinSize, kept.Bounds.W)
}

func TestReconcile_SourcedSavingsInsideSourceIsExcluded(t *testing.T) {
	s := store(t,
		container("jan", model.Bounds{W: 100, H: 100}),
		item("pay", "jan", model.KindIncome, 1000),
		sourced("kept", "jan", "jan", 0),
	)
	r := New(Options{}, nil)
	run(t, s, r)
	kept, _ := s.Snapshot().Object("kept")
	assert.Equal(t, 1000.0, kept.Item.Amount)
	cs, _ := run(t, s, r)
	assert.True(t, cs.Empty())
}

func TestReconcile_ChainedSourcesSettleInOnePass(t *testing.T) {
	s := store(t,
		container("a", model.Bounds{W: 100, H: 100}),
		container("b", model.Bounds{X: 500, W: 100, H: 100}),
		item("pay", "a", model.KindIncome, 100),
		item("rent", "b", model.KindExpense, 30),
		sourced("fromB", "", "b", 0),
		sourced("fromA", "b", "a", 0),
	)
	r := New(Options{}, nil)
	run(t, s, r)

	v := s.Snapshot()
	fromA, _ := v.Object("fromA")
	fromB, _ := v.Object("fromB")
	assert.Equal(t, 100.0, fromA.Item.Amount)
	assert.Equal(t, 70.0, fromB.Item.Amount)

	cs, _ := run(t, s, r)
	assert.True(t, cs.Empty())
}

func TestReconcile_SourcesLinkedIntoEachOtherSettle(t *testing.T) {
	s := store(t,
		container("a", model.Bounds{W: 100, H: 100}),
		container("b", model.Bounds{X: 500, W: 100, H: 100}),
		item("payA", "a", model.KindIncome, 100),
		item("payB", "b", model.KindIncome, 100),
		sourced("fromA", "", "a", 0),
		sourced("fromB", "", "b", 0),
		linkTo("toB", "fromA", "b", ""),
		linkTo("toA", "fromB", "a", ""),
	)
	r := New(Options{}, nil)
	run(t, s, r)

	v := s.Snapshot()
	fromA, _ := v.Object("fromA")
	fromB, _ := v.Object("fromB")
	assert.Equal(t, 100.0, fromA.Item.Amount)
	assert.Equal(t, 100.0, fromB.Item.Amount)

	for i := 0; i < 3; i++ {
		cs, _ := run(t, s, r)
		assert.True(t, cs.Empty(), "run %d wrote again", i+2)
	}
}

func TestReconcile_SourcesNestedInEachOtherSettle(t *testing.T) {
	s := store(t,
		container("a", model.Bounds{W: 100, H: 100}),
		container("b", model.Bounds{X: 500, W: 100, H: 100}),
		item("payA", "a", model.KindIncome, 100),
		item("rentB", "b", model.KindIncome, 60),
		sourced("fromB", "a", "b", 0),
		sourced("fromA", "b", "a", 0),
	)
	r := New(Options{}, nil)
	run(t, s, r)

	v := s.Snapshot()
	fromA, _ := v.Object("fromA")
	fromB, _ := v.Object("fromB")
	assert.Equal(t, 100.0, fromA.Item.Amount)
	assert.Equal(t, 60.0, fromB.Item.Amount)

	cs, _ := run(t, s, r)
	assert.True(t, cs.Empty())
}

func TestReconcile_OversizedLabelCountsAsUnlabeled(t *testing.T) {
	s := store(t,
		container("a", model.Bounds{W: 100, H: 100}),
		item("stash", "", model.KindSavings, 300),
		linkTo("l", "stash", "a", "1e400"),
	)
	run(t, s, New(Options{}, nil))

	sums := summaries(s.Snapshot())
	require.Len(t, sums, 1)
	assert.Equal(t, 300.0, sums[0].Summary.SavingsTotal)
	assert.Equal(t, 300.0, sums[0].Summary.Left())
}

func TestReconcile_MissingSourceLeavesItemAlone(t *testing.T) {
	s := store(t, sourced("kept", "", "nowhere", 42))
	cs, _ := run(t, s, New(Options{}, nil))
	assert.True(t, cs.Empty())
}

func TestAddSavingsBlock(t *testing.T) {
	s := store(t,
		container("jan", model.Bounds{X: 0, Y: 0, W: 100, H: 100}),
		item("pay", "jan", model.KindIncome, 1000),
		item("rent", "jan", model.KindExpense, 400),
	)
	r := New(Options{}, nil)
	run(t, s, r)

	var id string
	_, err := s.Transact("user", func(tx *document.Tx) error {
		var err error
		id, err = r.AddSavingsBlock(tx, tx, "jan")
		return err
	})
	require.NoError(t, err)

	obj, ok := s.Snapshot().Object(id)
	require.True(t, ok)
	assert.Equal(t, model.KindSavings, obj.Item.Kind)
	assert.Equal(t, 600.0, obj.Item.Amount)
	assert.Equal(t, "EUR", obj.Item.Currency)
	assert.Equal(t, "Savings", obj.Item.Name)
	assert.Equal(t, "jan", obj.Item.SourceContainerID)
	assert.Equal(t, 300.0, obj.Bounds.X)
	assert.Equal(t, 220.0, obj.Bounds.Y)
	assert.InDelta(t, obj.Bounds.W, obj.Bounds.H, 1e-9)

	cs, _ := run(t, s, r)
	assert.True(t, cs.Empty(), "new savings block should already be settled")
}

func TestAddSavingsBlock_DefaultsCurrencyAndRejectsItems(t *testing.T) {
	s := store(t,
		container("jan", model.Bounds{W: 100, H: 100}),
		model.Object{ID: "x", Type: model.TypeItem, ParentID: "jan", Item: &model.Item{Kind: model.KindExpense, Amount: 5}},
	)
	r := New(Options{}, nil)
	var id string
	_, err := s.Transact("user", func(tx *document.Tx) error {
		var err error
		id, err = r.AddSavingsBlock(tx, tx, "jan")
		return err
	})
	require.NoError(t, err)
	obj, _ := s.Snapshot().Object(id)
	assert.Equal(t, DefaultSavingsCurrency, obj.Item.Currency)
	assert.Equal(t, 0.0, obj.Item.Amount)
	assert.Equal(t, 120.0, obj.Bounds.Y)

	_, err = s.Transact("user", func(tx *document.Tx) error {
		_, err := r.AddSavingsBlock(tx, tx, "x")
		return err
	})
	require.ErrorIs(t, err, document.ErrInvalid)
}
