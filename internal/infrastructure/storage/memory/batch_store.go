// Package memory provides in-memory store implementations. They back the
// seeder and the test suites, and double as the reference semantics for
// the postgres implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
)

// BatchStore is the in-memory batch.Store. A per-product mutex serializes
// validate-then-mutate sequences (WithProduct); a store-wide mutex guards
// map consistency for the individual operations.
type BatchStore struct {
	mu        sync.RWMutex
	batches   map[id.ID]*batch.Batch
	byProduct map[id.ID][]id.ID

	productMu sync.Mutex
	locks     map[id.ID]*sync.Mutex
}

// NewBatchStore creates an empty batch store.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		batches:   make(map[id.ID]*batch.Batch),
		byProduct: make(map[id.ID][]id.ID),
		locks:     make(map[id.ID]*sync.Mutex),
	}
}

var _ batch.Store = (*BatchStore)(nil)

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

	b := &batch.Batch{
		ID:              id.New(),
		ProductID:       nb.ProductID,
		PurchaseID:      nb.PurchaseID,
		Code:            code,
		QuantityInitial: nb.QuantityInitial,
		QuantityCurrent: nb.QuantityInitial,
		Cost:            nb.Cost,
		Expiration:      nb.Expiration,
		CreatedAt:       time.Now().UTC(),
	}

	s.mu.Lock()
	s.batches[b.ID] = b
	s.byProduct[b.ProductID] = append(s.byProduct[b.ProductID], b.ID)
	s.mu.Unlock()

	out := *b
	return &out, nil
}

// GetBatch returns a copy of the batch.
func (s *BatchStore) GetBatch(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	out := *b
	return &out, nil
}

// Debit decrements a batch's current quantity.
func (s *BatchStore) Debit(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("debit", qty.Int64())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	if qty > b.QuantityCurrent {
		return apperror.NewInsufficientBatchStock(batchID.String(), qty.Int64(), b.QuantityCurrent.Int64())
	}

	b.QuantityCurrent -= qty
	return nil
}

// Credit increments a batch's current quantity.
func (s *BatchStore) Credit(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("credit", qty.Int64())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	if b.QuantityCurrent+qty > b.QuantityInitial {
		return apperror.NewOverCredit(batchID.String(), qty.Int64(), b.QuantityCurrent.Int64(), b.QuantityInitial.Int64())
	}

	b.QuantityCurrent += qty
	return nil
}

// TotalStock sums current quantities over the product's batches.
func (s *BatchStore) TotalStock(ctx context.Context, productID id.ID) (types.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total types.Quantity
	for _, batchID := range s.byProduct[productID] {
		total += s.batches[batchID].QuantityCurrent
	}
	return total, nil
}

// BatchesFor returns copies of every batch of the product, zero-quantity
// batches included, in receipt order.
func (s *BatchStore) BatchesFor(ctx context.Context, productID id.ID) ([]*batch.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byProduct[productID]
	out := make([]*batch.Batch, 0, len(ids))
	for _, batchID := range ids {
		b := *s.batches[batchID]
		out = append(out, &b)
	}
	return out, nil
}

// WithProduct serializes fn against other operations on the same product.
func (s *BatchStore) WithProduct(ctx context.Context, productID id.ID, fn func(ctx context.Context) error) error {
	mu := s.lockFor(productID)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

func (s *BatchStore) lockFor(productID id.ID) *sync.Mutex {
	s.productMu.Lock()
	defer s.productMu.Unlock()

	mu, ok := s.locks[productID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[productID] = mu
	}
	return mu
}
