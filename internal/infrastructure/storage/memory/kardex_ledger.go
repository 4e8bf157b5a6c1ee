package memory

import (
	"context"
	"sort"
	"sync"

	"lotix/internal/domain/ledger/kardex"
)

// KardexLedger is the in-memory kardex.Ledger.
type KardexLedger struct {
	mu        sync.RWMutex
	movements []kardex.Movement
}

// NewKardexLedger creates an empty ledger.
func NewKardexLedger() *KardexLedger {
	return &KardexLedger{}
}

var _ kardex.Ledger = (*KardexLedger)(nil)

// Record appends movements.
func (l *KardexLedger) Record(ctx context.Context, movements ...kardex.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.movements = append(l.movements, movements...)
	return nil
}

// History returns movements matching the filter, oldest first.
func (l *KardexLedger) History(ctx context.Context, filter kardex.Filter) ([]kardex.Movement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]kardex.Movement, 0, len(l.movements))
	for _, m := range l.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Direction != nil && m.Direction != *filter.Direction {
			continue
		}
		if filter.DocumentType != nil && m.DocumentType != *filter.DocumentType {
			continue
		}
		if filter.FromDate != nil && m.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Date.Before(out[j].Date)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
