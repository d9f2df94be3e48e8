package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/theirongolddev/moneyshape/internal/model"
)

// Store is an in-memory board with transactional writes and ordered
// change notifications.
type Store struct {
	txMu sync.Mutex

	mu          sync.Mutex
	state       *state
	version     uint64
	listeners   map[int]Listener
	nextID      int
	queue       []ChangeSet
	dispatching bool
}

// New builds a store holding objs. The objects are validated as a whole, so
// children may be listed before their parents.
func New(objs []model.Object) (*Store, error) {
	st := newState()
	for _, obj := range objs {
		if obj.ID == "" {
			return nil, fmt.Errorf("load: %w: object without id", ErrInvalid)
		}
		if _, ok := st.objects[obj.ID]; ok {
			return nil, fmt.Errorf("load %s: %w", obj.ID, ErrExists)
		}
		st.put(obj.Clone())
	}
	for _, id := range st.order {
		if err := st.check(st.objects[id]); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}
	return &Store{state: st, listeners: map[int]Listener{}}, nil
}

// Snapshot returns a read-only view of the latest committed version.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the number of committed transactions.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers l for every change set committed from now on. The
// returned func unregisters it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Transact runs fn against a private copy of the board and commits its
// writes atomically when fn returns nil. An error discards every write.
// A transaction that writes nothing commits nothing and notifies no one.
//
// Listeners run after the commit. When Transact is called from inside a
// listener, its change set is queued and delivered after the current one
// has reached every listener.
func (s *Store) Transact(origin string, fn func(tx *Tx) error) (ChangeSet, error) {
	s.txMu.Lock()
	s.mu.Lock()
	base := s.state
	s.mu.Unlock()

	tx := newTx(base)
	err := fn(tx)
	tx.closed = true
	if err != nil {
		s.txMu.Unlock()
		return ChangeSet{}, err
	}
	if len(tx.changes) == 0 {
		s.txMu.Unlock()
		return ChangeSet{Origin: origin}, nil
	}

	s.mu.Lock()
	s.version++
	s.state = tx.state
	cs := ChangeSet{Version: s.version, Origin: origin, Changes: tx.changes}
	s.queue = append(s.queue, cs)
	s.mu.Unlock()
	s.txMu.Unlock()

	s.dispatch()
	return cs, nil
}

func (s *Store) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		ids := make([]int, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		ls := make([]Listener, len(ids))
		for i, id := range ids {
			ls[i] = s.listeners[id]
		}
		s.mu.Unlock()

		for _, l := range ls {
			l(next)
		}
	}
}
