package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

func container(id, parent string) model.Object {
	return model.Object{ID: id, Type: model.TypeContainer, ParentID: parent, Container: &model.Container{Name: id}}
}

func item(id, parent string, kind model.Kind, amount float64, currency string) model.Object {
	return model.Object{ID: id, Type: model.TypeItem, ParentID: parent,
		Item: &model.Item{Kind: kind, Amount: amount, Currency: currency}}
}

func link(id, from, to, label string) model.Object {
	return model.Object{ID: id, Type: model.TypeLink, Link: &model.Link{From: from, To: to, Label: label}}
}

func view(t *testing.T, objs ...model.Object) document.View {
	t.Helper()
	s, err := document.New(objs)
	require.NoError(t, err)
	return s.Snapshot()
}

func TestContainer_IncomeAndExpense(t *testing.T) {
	v := view(t,
		container("home", ""),
		item("salary", "home", model.KindIncome, 1000, "EUR"),
		item("rent", "home", model.KindExpense, 400, "EUR"),
	)
	got := Container(v, "home")
	want := model.Aggregate{
		Total: 1400, Count: 2,
		IncomeTotal: 1000, ExpenseTotal: 400,
		IncomeCount: 1, ExpenseCount: 1,
		Currencies: []string{"EUR"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestContainer_RecursesIntoNestedContainers(t *testing.T) {
	v := view(t,
		container("year", ""),
		container("jan", "year"),
		container("food", "jan"),
		item("groceries", "food", model.KindExpense, 120, "EUR"),
		item("pay", "jan", model.KindIncome, 2000, "USD"),
	)
	got := Container(v, "year")
	assert.Equal(t, 2120.0, got.Total)
	assert.Equal(t, got.IncomeTotal+got.ExpenseTotal+got.SavingsTotal, got.Total)
	tag, mixed := got.Currency()
	assert.Empty(t, tag)
	assert.True(t, mixed)

	assert.Equal(t, 120.0, Container(v, "food").ExpenseTotal)
}

func TestContainer_ExcludesSavingsSourcedFromItself(t *testing.T) {
	v := view(t,
		container("outer", ""),
		container("jan", "outer"),
		item("pay", "jan", model.KindIncome, 1000, ""),
		item("rent", "jan", model.KindExpense, 400, ""),
		model.Object{ID: "kept", Type: model.TypeItem, ParentID: "jan",
			Item: &model.Item{Kind: model.KindSavings, Amount: 600, SourceContainerID: "jan"}},
	)
	jan := Container(v, "jan")
	assert.Equal(t, 0.0, jan.SavingsTotal)
	assert.Equal(t, 600.0, jan.Left())

	outer := Container(v, "outer")
	assert.Equal(t, 600.0, outer.SavingsTotal)
	assert.Equal(t, 3, outer.Count)
}

func TestContainer_FoldsInLinkedSavings(t *testing.T) {
	v := view(t,
		container("pot", ""),
		container("trip", ""),
		item("stash", "pot", model.KindSavings, 300, "EUR"),
		item("nested", "trip", model.KindSavings, 50, "EUR"),
		link("l1", "stash", "trip", "120"),
		link("l2", "stash", "pot", ""),
		link("l3", "nested", "trip", "50"),
	)
	trip := Container(v, "trip")
	assert.Equal(t, 170.0, trip.SavingsTotal, "linked 120 plus nested 50 counted once")
	assert.Equal(t, 2, trip.SavingsCount)

	pot := Container(v, "pot")
	assert.Equal(t, 300.0, pot.SavingsTotal, "direct child is not counted twice")
}

func TestContainer_UnresolvedLinksContributeNothing(t *testing.T) {
	v := view(t,
		container("a", ""),
		container("b", ""),
		item("stash", "", model.KindSavings, 300, ""),
		link("la", "stash", "a", ""),
		link("lb", "stash", "b", "abc"),
	)
	assert.False(t, Container(v, "a").HasContent())
	assert.False(t, Container(v, "b").HasContent())
}

func TestContainer_SingleLinkClaimsFullAmount(t *testing.T) {
	v := view(t,
		container("a", ""),
		item("stash", "", model.KindSavings, 300, ""),
		link("la", "stash", "a", ""),
	)
	assert.Equal(t, 300.0, Container(v, "a").SavingsTotal)
}

func TestContainer_DropsOnlyCyclicSourcedSavings(t *testing.T) {
	sourced := func(id, source string, amount float64) model.Object {
		o := item(id, "", model.KindSavings, amount, "EUR")
		o.Item.SourceContainerID = source
		return o
	}
	v := view(t,
		container("a", ""),
		container("b", ""),
		container("c", ""),
		sourced("fromA", "a", 100),
		sourced("fromB", "b", 80),
		link("toB", "fromA", "b", "40"),
		link("toC", "fromA", "c", "60"),
		link("toA", "fromB", "a", "80"),
	)
	assert.Zero(t, Container(v, "a").SavingsTotal, "fromB reads a through fromA")
	assert.Zero(t, Container(v, "b").SavingsTotal, "fromA reads b through fromB")
	assert.Equal(t, 60.0, Container(v, "c").SavingsTotal, "c is outside the cycle")

	all := All(v)
	assert.Equal(t, 60.0, all["c"].SavingsTotal)
	assert.Zero(t, all["a"].SavingsTotal)
}

func TestContainer_UnknownID(t *testing.T) {
	v := view(t, item("i", "", model.KindIncome, 1, ""))
	assert.False(t, Container(v, "i").HasContent())
	assert.False(t, Container(v, "missing").HasContent())
}

func TestAll(t *testing.T) {
	v := view(t,
		container("a", ""),
		container("b", "a"),
		item("x", "b", model.KindExpense, 10, ""),
	)
	all := All(v)
	require.Len(t, all, 2)
	assert.Equal(t, 10.0, all["a"].ExpenseTotal)
	assert.Equal(t, 10.0, all["b"].ExpenseTotal)
}
