package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"lotix/pkg/numerator"
)

// SequenceStore is an in-memory numerator.Querier. It honors the same
// contract as the sys_sequences table: atomically add the increment and
// return the new value.
type SequenceStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewSequenceStore creates an empty sequence store.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{counts: make(map[string]int64)}
}

var _ numerator.Querier = (*SequenceStore)(nil)

// QueryRow interprets args as (key, increment) regardless of the SQL
// text, matching the single query shape the numerator issues.
func (s *SequenceStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(args) != 2 {
		return seqRow{err: fmt.Errorf("sequence query expects 2 args, got %d", len(args))}
	}
	key, ok := args[0].(string)
	if !ok {
		return seqRow{err: fmt.Errorf("sequence key must be a string, got %T", args[0])}
	}
	inc, ok := args[1].(int64)
	if !ok {
		return seqRow{err: fmt.Errorf("sequence increment must be int64, got %T", args[1])}
	}

	s.mu.Lock()
	s.counts[key] += inc
	val := s.counts[key]
	s.mu.Unlock()

	return seqRow{val: val}
}

type seqRow struct {
	val int64
	err error
}

func (r seqRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return fmt.Errorf("sequence row has 1 column, got %d destinations", len(dest))
	}
	p, ok := dest[0].(*int64)
	if !ok {
		return fmt.Errorf("sequence value scans into *int64, got %T", dest[0])
	}
	*p = r.val
	return nil
}
