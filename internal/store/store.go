// Package store persists per-board engine bookkeeping in SQLite: the
// allocation remainder state that must survive restarts and the container
// summaries seen at the last sync.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/theirongolddev/moneyshape/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DB is the state database.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the state database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db, now: time.Now}, nil
}

// Close closes the state database.
func (d *DB) Close() error {
	return d.db.Close()
}

// BoardInfo is what the last sync recorded about a board.
type BoardInfo struct {
	Path        string
	Name        string
	ContentHash uint64
	Objects     int
	Gaps        int
	SyncedAt    time.Time
}

// Sync is everything recorded after one successful sync of a board.
type Sync struct {
	Board     BoardInfo
	Existed   map[string]bool
	Summaries []model.Summary
}

// SaveSync records a board's state in one transaction. The allocation
// state is replaced and each summary overwrites the one last recorded for
// its container.
func (d *DB) SaveSync(s Sync) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := d.now().UTC()
	if s.Board.SyncedAt.IsZero() {
		s.Board.SyncedAt = now
	}
	b := s.Board
	_, err = tx.Exec(`INSERT INTO boards (board_path, name, content_hash, objects, gaps, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_path) DO UPDATE SET
		name = excluded.name, content_hash = excluded.content_hash,
		objects = excluded.objects, gaps = excluded.gaps, synced_at = excluded.synced_at`,
		b.Path, b.Name, int64(b.ContentHash), b.Objects, b.Gaps, b.SyncedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving board: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM allocation_state WHERE board_path = ?", b.Path); err != nil {
		return fmt.Errorf("clearing allocation state: %w", err)
	}
	ids := make([]string, 0, len(s.Existed))
	for id, ok := range s.Existed {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := tx.Exec("INSERT INTO allocation_state (board_path, item_id) VALUES (?, ?)", b.Path, id); err != nil {
			return fmt.Errorf("saving allocation state: %w", err)
		}
	}

	for _, sum := range s.Summaries {
		mixed := 0
		if sum.Mixed {
			mixed = 1
		}
		_, err = tx.Exec(`INSERT INTO synced_summaries
			(board_path, container_id, container_name, recorded_at,
			 income_total, expense_total, savings_total, currency, mixed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(board_path, container_id) DO UPDATE SET
			container_name = excluded.container_name, recorded_at = excluded.recorded_at,
			income_total = excluded.income_total, expense_total = excluded.expense_total,
			savings_total = excluded.savings_total, currency = excluded.currency,
			mixed = excluded.mixed`,
			b.Path, sum.ContainerID, sum.ContainerName, b.SyncedAt.Format(time.RFC3339Nano),
			sum.IncomeTotal, sum.ExpenseTotal, sum.SavingsTotal, sum.Currency, mixed)
		if err != nil {
			return fmt.Errorf("recording summary: %w", err)
		}
	}

	return tx.Commit()
}

// AllocationState returns the remainder bookkeeping saved for a board.
func (d *DB) AllocationState(boardPath string) (map[string]bool, error) {
	rows, err := d.db.Query("SELECT item_id FROM allocation_state WHERE board_path = ?", boardPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

// Board returns what the last sync recorded for a board.
func (d *DB) Board(boardPath string) (BoardInfo, bool, error) {
	var b BoardInfo
	var hash int64
	var synced string
	err := d.db.QueryRow(`SELECT board_path, name, content_hash, objects, gaps, synced_at
		FROM boards WHERE board_path = ?`, boardPath).
		Scan(&b.Path, &b.Name, &hash, &b.Objects, &b.Gaps, &synced)
	if err == sql.ErrNoRows {
		return b, false, nil
	}
	if err != nil {
		return b, false, err
	}
	b.ContentHash = uint64(hash)
	b.SyncedAt, _ = time.Parse(time.RFC3339Nano, synced)
	return b, true, nil
}

// Boards lists every tracked board by path.
func (d *DB) Boards() ([]BoardInfo, error) {
	rows, err := d.db.Query(`SELECT board_path, name, content_hash, objects, gaps, synced_at
		FROM boards ORDER BY board_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []BoardInfo
	for rows.Next() {
		var b BoardInfo
		var hash int64
		var synced string
		if err := rows.Scan(&b.Path, &b.Name, &hash, &b.Objects, &b.Gaps, &synced); err != nil {
			return nil, err
		}
		b.ContentHash = uint64(hash)
		b.SyncedAt, _ = time.Parse(time.RFC3339Nano, synced)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Recorded is the summary a container had at the last sync.
type Recorded struct {
	RecordedAt time.Time
	Summary    model.Summary
}

// LastSummaries returns the summaries recorded by the last sync of a board,
// keyed by container id.
func (d *DB) LastSummaries(boardPath string) (map[string]Recorded, error) {
	rows, err := d.db.Query(`SELECT container_id, container_name, recorded_at, income_total,
		expense_total, savings_total, currency, mixed
		FROM synced_summaries WHERE board_path = ?`, boardPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]Recorded)
	for rows.Next() {
		var r Recorded
		var name, currency sql.NullString
		var at string
		var mixed int
		if err := rows.Scan(&r.Summary.ContainerID, &name, &at, &r.Summary.IncomeTotal,
			&r.Summary.ExpenseTotal, &r.Summary.SavingsTotal, &currency, &mixed); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, at)
		r.Summary.ContainerName = name.String
		r.Summary.Currency = currency.String
		r.Summary.Mixed = mixed != 0
		out[r.Summary.ContainerID] = r
	}
	return out, rows.Err()
}

// Forget drops a board and everything recorded for it.
func (d *DB) Forget(boardPath string) error {
	_, err := d.db.Exec("DELETE FROM boards WHERE board_path = ?", boardPath)
	return err
}
