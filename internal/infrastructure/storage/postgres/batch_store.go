package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
)

const batchTable = "ldg_batches"

// BatchStore is the PostgreSQL batch.Store.
//
// Per-product serialization uses a transaction-scoped advisory lock on
// the product ID, taken inside WithProduct: concurrent allocators on the
// same product queue up, different products proceed in parallel, and the
// lock releases with the transaction.
type BatchStore struct {
	txm *TxManager
}

// NewBatchStore creates a batch store.
func NewBatchStore(txm *TxManager) *BatchStore {
	return &BatchStore{txm: txm}
}

var _ batch.Store = (*BatchStore)(nil)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreateBatch records a stock-receiving event.
func (s *BatchStore) CreateBatch(ctx context.Context, nb batch.NewBatch) (*batch.Batch, error) {
	if !nb.QuantityInitial.IsPositive() {
		return nil, apperror.NewInvalidQuantity("create batch", nb.QuantityInitial.Int64())
	}
	if id.IsNil(nb.ProductID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	code := nb.Code
	if code == "" {
		code = batch.DefaultLotCode
	}

	q := builder().
		Insert(batchTable).
		Columns("id", "product_id", "purchase_id", "code", "quantity_initial", "quantity_current", "cost", "expiration", "created_at").
		Values(id.New(), nb.ProductID, nb.PurchaseID, code, nb.QuantityInitial, nb.QuantityInitial, nb.Cost, nb.Expiration, squirrel.Expr("now()")).
		Suffix("RETURNING *")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var b batch.Batch
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return &b, nil
}

// GetBatch retrieves one batch by ID.
func (s *BatchStore) GetBatch(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	sql, args, err := builder().
		Select("*").
		From(batchTable).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var b batch.Batch
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}
	return &b, nil
}

// Debit decrements a batch's current quantity. The guard runs inside the
// UPDATE, so a concurrent debit can never push the remainder negative.
func (s *BatchStore) Debit(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("debit", qty.Int64())
	}

	sql, args, err := builder().
		Update(batchTable).
		Set("quantity_current", squirrel.Expr("quantity_current - ?", qty)).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Expr("quantity_current >= ?", qty)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("debit batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.rejectDebit(ctx, batchID, qty)
	}
	return nil
}

// rejectDebit distinguishes a missing batch from an insufficient one.
func (s *BatchStore) rejectDebit(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	return apperror.NewInsufficientBatchStock(batchID.String(), qty.Int64(), b.QuantityCurrent.Int64())
}

// Credit increments a batch's current quantity, bounded by its initial
// quantity.
func (s *BatchStore) Credit(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("credit", qty.Int64())
	}

	sql, args, err := builder().
		Update(batchTable).
		Set("quantity_current", squirrel.Expr("quantity_current + ?", qty)).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Expr("quantity_current + ? <= quantity_initial", qty)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("credit batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		b, err := s.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		return apperror.NewOverCredit(batchID.String(), qty.Int64(), b.QuantityCurrent.Int64(), b.QuantityInitial.Int64())
	}
	return nil
}

// TotalStock sums current quantities over the product's batches.
func (s *BatchStore) TotalStock(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql, args, err := builder().
		Select("COALESCE(SUM(quantity_current), 0)").
		From(batchTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var total int64
	if err := s.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return types.Quantity(total), nil
}

// BatchesFor returns every batch of the product in receipt order.
func (s *BatchStore) BatchesFor(ctx context.Context, productID id.ID) ([]*batch.Batch, error) {
	sql, args, err := builder().
		Select("*").
		From(batchTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*batch.Batch
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	return out, nil
}

// WithProduct runs fn inside a transaction holding the product's
// advisory lock.
func (s *BatchStore) WithProduct(ctx context.Context, productID id.ID, fn func(ctx context.Context) error) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.txm.GetQuerier(ctx).Exec(ctx,
			"SELECT pg_advisory_xact_lock(hashtext($1))", productID.String())
		if err != nil {
			return fmt.Errorf("acquire product lock: %w", err)
		}
		return fn(ctx)
	})
}
