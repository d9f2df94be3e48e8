package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/theirongolddev/moneyshape/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return db
}

func home(income, expense float64) model.Summary {
	return model.Summary{
		ContainerID: "container:home", ContainerName: "Home",
		IncomeTotal: income, ExpenseTotal: expense, Currency: "€",
		HasIncome: true, HasExpense: true,
	}
}

func TestSaveSync_AllocationStateReplaced(t *testing.T) {
	db := openTest(t)
	board := BoardInfo{Path: "/b.json", Name: "b", ContentHash: 1 << 63, Objects: 4}

	if err := db.SaveSync(Sync{Board: board, Existed: map[string]bool{"a": true, "b": true, "c": false}}); err != nil {
		t.Fatalf("SaveSync: %v", err)
	}
	if err := db.SaveSync(Sync{Board: board, Existed: map[string]bool{"b": true}}); err != nil {
		t.Fatalf("SaveSync: %v", err)
	}

	got, err := db.AllocationState("/b.json")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]bool{"b": true}, got); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}

	info, ok, err := db.Board("/b.json")
	if err != nil || !ok {
		t.Fatalf("Board = %v, %v", ok, err)
	}
	if info.ContentHash != 1<<63 {
		t.Errorf("ContentHash = %x, want high bit preserved", info.ContentHash)
	}
	if info.SyncedAt.IsZero() {
		t.Error("SyncedAt not recorded")
	}
}

func TestSaveSync_KeepsLastSummaryOnly(t *testing.T) {
	db := openTest(t)
	board := BoardInfo{Path: "/b.json", Name: "b"}

	for _, s := range []model.Summary{home(2000, 800), home(2000, 900)} {
		if err := db.SaveSync(Sync{Board: board, Summaries: []model.Summary{s}}); err != nil {
			t.Fatalf("SaveSync: %v", err)
		}
	}

	got, err := db.LastSummaries("/b.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("LastSummaries has %d rows, want 1", len(got))
	}
	r := got["container:home"]
	if r.Summary.ExpenseTotal != 900 || r.Summary.Currency != "€" || r.Summary.ContainerName != "Home" {
		t.Errorf("last summary = %+v", r.Summary)
	}
	if r.RecordedAt.IsZero() {
		t.Error("RecordedAt not set")
	}
}

func TestBoards_AndForget(t *testing.T) {
	db := openTest(t)
	for _, p := range []string{"/z.json", "/a.yaml"} {
		if err := db.SaveSync(Sync{Board: BoardInfo{Path: p, Name: p}, Existed: map[string]bool{"x": true}}); err != nil {
			t.Fatal(err)
		}
	}
	boards, err := db.Boards()
	if err != nil {
		t.Fatal(err)
	}
	if len(boards) != 2 || boards[0].Path != "/a.yaml" {
		t.Fatalf("Boards = %+v", boards)
	}

	if err := db.Forget("/a.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.Board("/a.yaml"); ok {
		t.Error("board still tracked after Forget")
	}
	state, err := db.AllocationState("/a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(state) != 0 {
		t.Errorf("allocation state survived Forget: %v", state)
	}
	sums, err := db.LastSummaries("/a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 0 {
		t.Errorf("summaries survived Forget: %v", sums)
	}
}

func TestBoard_Unknown(t *testing.T) {
	db := openTest(t)
	if _, ok, err := db.Board("/nope"); ok || err != nil {
		t.Fatalf("Board(unknown) = %v, %v", ok, err)
	}
}
