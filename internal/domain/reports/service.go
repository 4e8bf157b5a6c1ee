package reports

import (
	"context"
	"fmt"
	"time"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/cost"
	"lotix/internal/domain/ledger/kardex"
)

// Service builds reports from the ledger, batch state, and catalog.
type Service struct {
	kardex   *kardex.Service
	cost     *cost.Engine
	store    batch.Store
	products *product.Service
}

// NewService creates a reports service.
func NewService(kardexSvc *kardex.Service, costEngine *cost.Engine, store batch.Store, products *product.Service) *Service {
	return &Service{
		kardex:   kardexSvc,
		cost:     costEngine,
		store:    store,
		products: products,
	}
}

// Kardex builds the movement history of one product over a period, with
// a running base-unit balance. The opening balance is reconstructed by
// replaying the movements before the period; the ledger is append-only,
// so the replay is exact.
func (s *Service) Kardex(ctx context.Context, productID id.ID, from, to time.Time) (*KardexReport, error) {
	prod, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	all, err := s.kardex.History(ctx, kardex.Filter{ProductID: &productID})
	if err != nil {
		return nil, fmt.Errorf("load movement history: %w", err)
	}

	report := &KardexReport{
		ProductID:   productID,
		ProductCode: prod.Code,
		ProductName: prod.Name,
		From:        from,
		To:          to,
	}

	var balance types.Quantity
	for _, m := range all {
		if m.Date.Before(from) {
			balance += m.SignedQuantity()
			continue
		}
		if m.Date.After(to) {
			break
		}
		if len(report.Rows) == 0 {
			report.OpeningBalance = balance
		}
		balance += m.SignedQuantity()
		report.Rows = append(report.Rows, KardexRow{Movement: m, Balance: balance})
	}
	if len(report.Rows) == 0 {
		report.OpeningBalance = balance
	}
	report.ClosingBalance = balance

	return report, nil
}

// Valuation builds the stock valuation across the catalog: per-product
// stock, weighted-average cost, value, and replenishment flags.
func (s *Service) Valuation(ctx context.Context) (*ValuationReport, error) {
	prods, err := s.products.List(ctx, product.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	report := &ValuationReport{
		GeneratedAt: time.Now().UTC(),
		TotalValue:  types.ZeroMoney(),
	}

	for _, prod := range prods {
		stock, err := s.store.TotalStock(ctx, prod.ID)
		if err != nil {
			return nil, fmt.Errorf("stock for %s: %w", prod.Code, err)
		}
		wac, err := s.cost.WeightedAverageCost(ctx, prod.ID)
		if err != nil {
			return nil, fmt.Errorf("cost for %s: %w", prod.Code, err)
		}
		value, err := s.cost.TotalValuation(ctx, prod.ID)
		if err != nil {
			return nil, fmt.Errorf("valuation for %s: %w", prod.Code, err)
		}

		report.Rows = append(report.Rows, ValuationRow{
			ProductID:           prod.ID,
			ProductCode:         prod.Code,
			ProductName:         prod.Name,
			Stock:               stock,
			Split:               prod.Split(stock),
			WeightedAverageCost: wac,
			Value:               value,
			BelowMin:            stock <= prod.MinStock,
		})
		report.TotalValue = report.TotalValue.Add(value)
	}

	return report, nil
}
