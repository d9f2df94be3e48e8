package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/moneyshape/internal/model"
)

func container(id, parent string) model.Object {
	return model.Object{ID: id, Type: model.TypeContainer, ParentID: parent,
		Bounds: model.Bounds{W: 100, H: 100}, Container: &model.Container{Name: id}}
}

func item(id, parent string, kind model.Kind, amount float64) model.Object {
	return model.Object{ID: id, Type: model.TypeItem, ParentID: parent,
		Bounds: model.Bounds{W: 10, H: 10}, Item: &model.Item{Kind: kind, Amount: amount}}
}

func link(id, from, to, label string) model.Object {
	return model.Object{ID: id, Type: model.TypeLink, Link: &model.Link{From: from, To: to, Label: label}}
}

func newBoard(t *testing.T) *Store {
	t.Helper()
	s, err := New([]model.Object{
		item("i1", "c1", model.KindIncome, 1000),
		container("c1", ""),
		container("c2", "c1"),
		item("s1", "c2", model.KindSavings, 300),
		container("c3", ""),
		link("l1", "s1", "c3", "100"),
	})
	require.NoError(t, err)
	return s
}

func TestNew_IndexesTree(t *testing.T) {
	s := newBoard(t)
	v := s.Snapshot()

	assert.Equal(t, []string{"i1", "c2"}, v.Children("c1"))
	assert.Equal(t, []string{"c1", "c3", "l1"}, v.Children(""))
	assert.Equal(t, []string{"l1"}, v.LinksFrom("s1"))
	assert.Equal(t, []string{"l1"}, v.LinksTo("c3"))
	assert.Empty(t, v.LinksTo("s1"))
	assert.Equal(t, []string{"i1", "c2", "s1"}, Descendants(v, "c1"))
	assert.True(t, IsDescendant(v, "s1", "c1"))
	assert.False(t, IsDescendant(v, "s1", "c3"))
}

func TestNew_RejectsBadBoards(t *testing.T) {
	tests := map[string][]model.Object{
		"missing parent": {item("i1", "nope", model.KindIncome, 1)},
		"item parent":    {item("i1", "", model.KindIncome, 1), item("i2", "i1", model.KindIncome, 1)},
		"duplicate":      {container("c1", ""), container("c1", "")},
		"cycle":          {container("a", "b"), container("b", "a")},
		"dangling link":  {link("l1", "x", "", "")},
		"unknown kind":   {item("i1", "", model.Kind("gift"), 1)},
		"missing props":  {{ID: "x", Type: model.TypeItem}},
	}
	for name, objs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(objs)
			require.Error(t, err)
		})
	}
}

func TestTransact_ReadsOwnWritesAndCommitsAtomically(t *testing.T) {
	s := newBoard(t)

	_, err := s.Transact("user", func(tx *Tx) error {
		id, err := tx.Create(item("", "c3", model.KindExpense, 40))
		require.NoError(t, err)
		assert.Contains(t, tx.Children("c3"), id)
		assert.Empty(t, s.Snapshot().Children("c3"), "uncommitted write leaked")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Children("c3"), 1)
	assert.Equal(t, uint64(1), s.Version())
}

func TestTransact_ErrorDiscardsWrites(t *testing.T) {
	s := newBoard(t)
	boom := errors.New("boom")

	_, err := s.Transact("user", func(tx *Tx) error {
		require.NoError(t, tx.Update("i1", model.Patch{Amount: model.Ptr(5.0)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	obj, ok := s.Snapshot().Object("i1")
	require.True(t, ok)
	assert.Equal(t, 1000.0, obj.Item.Amount)
	assert.Equal(t, uint64(0), s.Version())
}

func TestTransact_NoOpUpdateNotifiesNobody(t *testing.T) {
	s := newBoard(t)
	calls := 0
	s.Subscribe(func(ChangeSet) { calls++ })

	cs, err := s.Transact("user", func(tx *Tx) error {
		return tx.Update("i1", model.Patch{Amount: model.Ptr(1000.0)})
	})
	require.NoError(t, err)
	assert.True(t, cs.Empty())
	assert.Zero(t, calls)
}

func TestDelete_CascadesToDescendantsAndLinks(t *testing.T) {
	s := newBoard(t)

	cs, err := s.Transact("user", func(tx *Tx) error { return tx.Delete("c1") })
	require.NoError(t, err)

	var deleted []string
	for _, c := range cs.Changes {
		require.Equal(t, Deleted, c.Kind)
		deleted = append(deleted, c.ID)
	}
	if diff := cmp.Diff([]string{"i1", "c1", "c2", "s1", "l1"}, deleted); diff != "" {
		t.Fatalf("deleted ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"c3"}, s.Snapshot().IDs())
}

func TestUpdate_RejectsCycles(t *testing.T) {
	s := newBoard(t)
	_, err := s.Transact("user", func(tx *Tx) error {
		return tx.Update("c1", model.Patch{ParentID: model.Ptr("c2")})
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTxClosedAfterCommit(t *testing.T) {
	s := newBoard(t)
	var kept *Tx
	_, err := s.Transact("user", func(tx *Tx) error {
		kept = tx
		return nil
	})
	require.NoError(t, err)
	_, err = kept.Create(container("late", ""))
	require.ErrorIs(t, err, ErrClosed)
}

func TestDispatch_QueuesNestedTransactions(t *testing.T) {
	s := newBoard(t)

	var order []string
	depth := 0
	s.Subscribe(func(cs ChangeSet) {
		depth++
		defer func() { depth-- }()
		require.Equal(t, 1, depth, "listener re-entered")
		order = append(order, cs.Origin)
		if cs.Origin == "user" {
			_, err := s.Transact("engine", func(tx *Tx) error {
				return tx.Update("i1", model.Patch{Amount: model.Ptr(1.0)})
			})
			require.NoError(t, err)
			order = append(order, "engine committed")
		}
	})
	second := 0
	s.Subscribe(func(cs ChangeSet) {
		second++
		if cs.Origin == "engine" {
			assert.Equal(t, []string{"user", "engine committed", "engine"}, order)
		}
	})

	_, err := s.Transact("user", func(tx *Tx) error {
		return tx.Update("i1", model.Patch{Amount: model.Ptr(2.0)})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "engine committed", "engine"}, order)
	assert.Equal(t, 2, second)
}

func TestUnsubscribe(t *testing.T) {
	s := newBoard(t)
	calls := 0
	stop := s.Subscribe(func(ChangeSet) { calls++ })
	stop()
	_, err := s.Transact("user", func(tx *Tx) error { return tx.Delete("c3") })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestSnapshotIsStable(t *testing.T) {
	s := newBoard(t)
	before := s.Snapshot()
	_, err := s.Transact("user", func(tx *Tx) error { return tx.Delete("l1") })
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, before.LinksFrom("s1"))
	assert.Empty(t, s.Snapshot().LinksFrom("s1"))
}
