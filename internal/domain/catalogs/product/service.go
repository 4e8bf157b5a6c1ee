package product

import (
	"context"
	"fmt"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/pkg/logger"
)

// Service provides business operations for the product catalog.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "id", p.ID, "code", p.Code)
	return nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetByCode retrieves a product by SKU.
func (s *Service) GetByCode(ctx context.Context, code string) (*Product, error) {
	return s.repo.GetByCode(ctx, code)
}

// Update validates and persists product changes.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	return s.repo.List(ctx, filter)
}

// RecordLastCost updates the product's last gross unit cost after a
// purchase receipt.
func (s *Service) RecordLastCost(ctx context.Context, productID id.ID, cost types.Money) error {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	p.LastCost = cost
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("record last cost: %w", err)
	}
	return nil
}
