// Package daemon provides the long-running board sync service: it watches
// board files, keeps each one settled and reports what changed over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/moneyshape/internal/docfile"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
	"github.com/theirongolddev/moneyshape/internal/watch"
)

// Config controls the daemon runtime behavior.
type Config struct {
	// Targets are board files or directories of boards.
	Targets      []string
	Addr         string
	EventsBuffer int
	Debounce     time.Duration
	Pipeline     pipeline.Options
}

// Board is the compact state of one board for status and event payloads.
type Board struct {
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	SyncedAt  time.Time       `json:"synced_at"`
	Passes    int             `json:"passes"`
	Mutations int             `json:"mutations"`
	Written   bool            `json:"written"`
	Gaps      []string        `json:"gaps,omitempty"`
	Summaries []model.Summary `json:"summaries"`
	Error     string          `json:"error,omitempty"`
}

// Event is emitted whenever a board is synced or fails to sync.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Board     Board     `json:"board"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventSynced   = "board_synced"
	EventError    = "board_error"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastSyncAt      time.Time `json:"last_sync_at"`
	SyncCount       int64     `json:"sync_count"`
	Targets         []string  `json:"targets"`
	Boards          []Board   `json:"boards"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastSyncAt  time.Time
	syncCount   int64
	lastError   string
	boards      map[string]Board
	hashes      map[string]uint64
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8731"
	}
	if cfg.Pipeline.Log == nil {
		cfg.Pipeline.Log = log
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		metrics:   newMetrics(),
		startedAt: time.Now(),
		boards:    make(map[string]Board),
		hashes:    make(map[string]uint64),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run syncs every target once, then serves HTTP and re-syncs boards as
// they change until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	w, err := watch.New(s.cfg.Targets, s.cfg.Debounce, s.log.Named("watch"))
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Seed initial state so status is useful immediately.
	for _, path := range s.initialBoards() {
		s.SyncBoard(path)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return w.Run(gctx, func(path string) { s.SyncBoard(path) })
	})
	return g.Wait()
}

func (s *Service) initialBoards() []string {
	var paths []string
	for _, t := range s.cfg.Targets {
		boards, err := docfile.ScanDir(t)
		if err != nil {
			s.log.Warn("scanning target", zap.String("target", t), zap.Error(err))
			continue
		}
		if boards == nil && docfile.IsBoardFile(t) {
			paths = append(paths, t)
			continue
		}
		for _, b := range boards {
			paths = append(paths, b.Path)
		}
	}
	return paths
}

// SyncBoard opens the board at path, settles it, saves it and publishes
// the outcome. A file whose content matches what the daemon last wrote is
// skipped, so the daemon's own saves do not trigger another sync.
func (s *Service) SyncBoard(path string) {
	start := time.Now()

	if _, hash, err := docfile.Load(path); err == nil {
		s.mu.RLock()
		last, seen := s.hashes[path]
		s.mu.RUnlock()
		if seen && last == hash {
			s.log.Debug("board unchanged", zap.String("board", path))
			return
		}
	}

	b := Board{Path: path, Name: docfile.NameOf(path), SyncedAt: start}
	sess, err := pipeline.Open(path, s.cfg.Pipeline)
	if err == nil {
		b.Name = sess.Name
		b.Written, err = sess.Save()
	}
	if sess != nil {
		b.Passes = sess.Passes()
		b.Mutations = sess.Mutations()
		b.Summaries = sess.Summaries()
		for _, gap := range sess.Gaps() {
			b.Gaps = append(b.Gaps, gap.String())
		}
	}
	if err != nil {
		b.Error = err.Error()
	}
	s.metrics.observe(b, time.Since(start))

	s.mu.Lock()
	_, existed := s.boards[path]
	s.boards[path] = b
	s.lastSyncAt = start
	s.syncCount++
	if err != nil {
		s.lastError = err.Error()
		delete(s.hashes, path)
	} else {
		s.lastError = ""
		s.hashes[path] = sess.Hash()
	}
	s.nextEventID++
	ev := Event{ID: s.nextEventID, Timestamp: start, Board: b}
	switch {
	case err != nil:
		ev.Type = EventError
	case !existed:
		ev.Type = EventSnapshot
	default:
		ev.Type = EventSynced
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("board sync failed", zap.String("board", path), zap.Error(err))
	} else {
		s.log.Info("board synced", zap.String("board", path),
			zap.Int("passes", b.Passes), zap.Bool("written", b.Written), zap.Int("gaps", len(b.Gaps)))
	}
	s.publishEvent(ev)
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards := make([]Board, 0, len(s.boards))
	for _, b := range s.boards {
		boards = append(boards, b)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].Path < boards[j].Path })

	return Status{
		StartedAt:       s.startedAt,
		LastSyncAt:      s.lastSyncAt,
		SyncCount:       s.syncCount,
		Targets:         s.cfg.Targets,
		Boards:          boards,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current boards immediately.
	for _, b := range s.snapshotStatus().Boards {
		writeSSE(w, Event{Type: EventSnapshot, Timestamp: time.Now(), Board: b})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
