package store

import (
	"context"
	"sync"
	"time"

	"github.com/efreitasn/formrelay/internal/domain"
	"github.com/google/btree"
	"github.com/google/uuid"
)

// StoredRow is a row held by MemoryStore.
type StoredRow struct {
	Seq        int64
	ID         string
	Table      string
	Values     map[string]any
	InsertedAt time.Time
}

func storedRowLess(a, b StoredRow) bool {
	return a.Seq < b.Seq
}

// MemoryStore is a thread-safe in-memory sink. Rows are kept in insertion
// order in a btree keyed by sequence number.
type MemoryStore struct {
	mu   sync.RWMutex
	rows *btree.BTreeG[StoredRow]
	seq  int64
	err  error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	const degree = 16
	return &MemoryStore{
		rows: btree.NewG[StoredRow](degree, storedRowLess),
	}
}

// FailWith makes every subsequent Insert return err. Pass nil to reset.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Insert stores the row. The returned row carries the generated id and
// created_at alongside the canonical columns.
func (s *MemoryStore) Insert(ctx context.Context, table string, row domain.Row, returning bool) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	s.seq++
	stored := StoredRow{
		Seq:        s.seq,
		ID:         uuid.New().String(),
		Table:      table,
		Values:     row.Map(),
		InsertedAt: time.Now().UTC().Truncate(time.Second),
	}
	s.rows.ReplaceOrInsert(stored)

	if !returning {
		return nil, nil
	}
	return []map[string]any{stored.record()}, nil
}

// List returns the rows stored for table, oldest first.
func (s *MemoryStore) List(table string) []StoredRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StoredRow, 0, s.rows.Len())
	s.rows.Ascend(func(r StoredRow) bool {
		if r.Table == table {
			result = append(result, r)
		}
		return true
	})
	return result
}

// Len returns the number of stored rows across all tables.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Len()
}

func (r StoredRow) record() map[string]any {
	m := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		m[k] = v
	}
	m["id"] = r.ID
	m["created_at"] = r.InsertedAt.Format(time.RFC3339)
	return m
}
