package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/engine"
	"github.com/theirongolddev/moneyshape/internal/store"
)

const household = `{
  "version": 1,
  "name": "household",
  "objects": [
    {"id": "container:home", "type": "container", "bounds": {"x": 0, "y": 0, "w": 800, "h": 600}, "container": {"name": "Home"}},
    {"id": "item:salary", "type": "budget-item", "parentId": "container:home", "bounds": {"x": 20, "y": 20, "w": 300, "h": 400}, "item": {"amount": 2000, "currency": "€", "kind": "income"}},
    {"id": "item:rent", "type": "budget-item", "parentId": "container:home", "bounds": {"x": 340, "y": 20, "w": 200, "h": 240}, "item": {"amount": 800, "currency": "€", "kind": "expense"}}
  ]
}
`

func writeBoard(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestOpen_CreatesSummaryAndSaves(t *testing.T) {
	path := writeBoard(t, t.TempDir(), "household.json", household)

	s, err := Open(path, Options{})
	require.NoError(t, err)
	assert.True(t, s.Dirty())
	assert.Equal(t, 2, s.Passes())

	sums := s.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "Home", sums[0].ContainerName)
	assert.InDelta(t, 2000, sums[0].IncomeTotal, 1e-9)
	assert.InDelta(t, 800, sums[0].ExpenseTotal, 1e-9)
	assert.InDelta(t, 1200, sums[0].Left(), 1e-9)

	before := s.Hash()
	written, err := s.Save()
	require.NoError(t, err)
	assert.True(t, written)
	assert.NotEqual(t, before, s.Hash())
	assert.False(t, s.Dirty())

	again, err := Open(path, Options{})
	require.NoError(t, err)
	assert.False(t, again.Dirty(), "a saved board must already be settled")
	assert.Equal(t, s.Hash(), again.Hash())
	written, err = again.Save()
	require.NoError(t, err)
	assert.False(t, written)
}

func TestDo_ConvergesAfterCommand(t *testing.T) {
	path := writeBoard(t, t.TempDir(), "household.json", household)
	s, err := Open(path, Options{})
	require.NoError(t, err)

	err = s.Do(func(e *engine.Engine, st *document.Store) error {
		return e.SetAmount(st, "item:rent", 900)
	})
	require.NoError(t, err)
	assert.InDelta(t, 900, s.Summaries()[0].ExpenseTotal, 1e-9)
	assert.InDelta(t, 900, s.Aggregates()["container:home"].ExpenseTotal, 1e-9)
}

func TestSave_RecordsSync(t *testing.T) {
	dir := t.TempDir()
	path := writeBoard(t, dir, "household.json", household)
	db, err := store.Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s, err := Open(path, Options{DB: db})
	require.NoError(t, err)
	_, err = s.Save()
	require.NoError(t, err)

	info, ok, err := db.Board(s.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "household", info.Name)
	assert.Equal(t, s.Hash(), info.ContentHash)
	assert.Equal(t, 4, info.Objects)

	sums, err := db.LastSummaries(s.Path)
	require.NoError(t, err)
	require.Contains(t, sums, "container:home")
	assert.InDelta(t, 800, sums["container:home"].Summary.ExpenseTotal, 1e-9)
}

func TestOpen_BadBoard(t *testing.T) {
	path := writeBoard(t, t.TempDir(), "bad.json", `{"version":1,"objects":[{"id":"x","type":"budget-item"}]}`)
	_, err := Open(path, Options{})
	assert.ErrorIs(t, err, document.ErrInvalid)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeBoard(t, dir, "a.json", household)
	writeBoard(t, dir, filepath.Join("family", "b.json"), household)
	writeBoard(t, dir, "broken.json", "{")

	var (
		mu    sync.Mutex
		calls int
	)
	results, err := LoadDir(context.Background(), dir, Options{}, true, func(_, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, calls)

	var failed, ok int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, "broken", r.Board.Name)
			continue
		}
		ok++
		assert.False(t, r.Session.Dirty())
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, ok)
}
