package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/domain/ledger/kardex"
)

const kardexTable = "ldg_kardex"

// KardexLedger is the PostgreSQL kardex.Ledger. The table is append-only;
// there is no update or delete path.
type KardexLedger struct {
	txm *TxManager
}

// NewKardexLedger creates a kardex ledger.
func NewKardexLedger(txm *TxManager) *KardexLedger {
	return &KardexLedger{txm: txm}
}

var _ kardex.Ledger = (*KardexLedger)(nil)

// Record appends movements.
func (l *KardexLedger) Record(ctx context.Context, movements ...kardex.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	q := builder().
		Insert(kardexTable).
		Columns("id", "date", "direction", "document_type", "document_number", "document_id",
			"product_id", "quantity", "unit_price", "total", "counterparty", "created_at")
	for _, m := range movements {
		q = q.Values(m.ID, m.Date, m.Direction, m.DocumentType, m.DocumentNumber, m.DocumentID,
			m.ProductID, m.Quantity, m.UnitPrice, m.Total, m.Counterparty, m.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := l.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// History returns movements matching the filter, oldest first.
func (l *KardexLedger) History(ctx context.Context, filter kardex.Filter) ([]kardex.Movement, error) {
	q := builder().
		Select("*").
		From(kardexTable).
		OrderBy("date ASC", "created_at ASC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *filter.Direction})
	}
	if filter.DocumentType != nil {
		q = q.Where(squirrel.Eq{"document_type": *filter.DocumentType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []kardex.Movement
	if err := pgxscan.Select(ctx, l.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return out, nil
}
