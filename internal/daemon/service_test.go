package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const board = `{
  "version": 1,
  "objects": [
    {"id": "container:home", "type": "container", "bounds": {"x": 0, "y": 0, "w": 800, "h": 600}, "container": {"name": "Home"}},
    {"id": "item:salary", "type": "budget-item", "parentId": "container:home", "bounds": {"x": 20, "y": 20, "w": 300, "h": 400}, "item": {"amount": 2000, "kind": "income"}}
  ]
}
`

func writeBoard(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestSyncBoard_SkipsOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.json")
	writeBoard(t, path, board)
	s := New(Config{Targets: []string{path}}, nil)

	s.SyncBoard(path)
	st := s.snapshotStatus()
	require.Len(t, st.Boards, 1)
	b := st.Boards[0]
	assert.True(t, b.Written)
	assert.Empty(t, b.Error)
	require.Len(t, b.Summaries, 1)
	assert.InDelta(t, 2000, b.Summaries[0].IncomeTotal, 1e-9)

	s.SyncBoard(path)
	assert.Equal(t, int64(1), s.snapshotStatus().SyncCount, "own write must not resync")

	writeBoard(t, path, strings.Replace(board, `"amount": 2000`, `"amount": 2500`, 1))
	s.SyncBoard(path)

	s.mu.RLock()
	types := []string{}
	for _, ev := range s.events {
		types = append(types, ev.Type)
	}
	s.mu.RUnlock()
	assert.Equal(t, []string{EventSnapshot, EventSynced}, types)
	assert.InDelta(t, 2500, s.snapshotStatus().Boards[0].Summaries[0].IncomeTotal, 1e-9)
}

func TestSyncBoard_ReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	writeBoard(t, path, "{")
	s := New(Config{Targets: []string{path}}, nil)

	s.SyncBoard(path)
	st := s.snapshotStatus()
	require.Len(t, st.Boards, 1)
	assert.NotEmpty(t, st.Boards[0].Error)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, EventError, s.events[0].Type)

	// A failed board is retried on the next change.
	writeBoard(t, path, board)
	s.SyncBoard(path)
	assert.Empty(t, s.snapshotStatus().LastError)
}

func TestHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.json")
	writeBoard(t, path, board)
	s := New(Config{Targets: []string{path}}, nil)
	s.SyncBoard(path)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.SyncCount)
	assert.Equal(t, 1, st.EventCount)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	var events []Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "home", events[0].Board.Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `moneyshape_board_syncs_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "moneyshape_engine_passes_total 2")
	assert.Contains(t, rec.Body.String(), "moneyshape_engine_mutations_total")
}

func TestStreamSendsCurrentBoards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.json")
	writeBoard(t, path, board)
	s := New(Config{Targets: []string{path}}, nil)
	s.SyncBoard(path)

	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/stream", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		s.handleStream(rec, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, "event: snapshot\n")
	assert.Contains(t, body, `"name":"home"`)
	assert.Equal(t, 0, s.snapshotStatus().SubscriberCount)
}

func TestRunStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	writeBoard(t, filepath.Join(dir, "home.json"), board)
	s := New(Config{Targets: []string{dir}, Addr: "127.0.0.1:0", Debounce: 20 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.snapshotStatus().SyncCount == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
