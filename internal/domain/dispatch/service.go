// Package dispatch builds warehouse picking lists from committed sales.
// Quantities are aggregated per product and decomposed into full packages
// plus loose units, with a per-lot breakdown taken from the sales'
// stored allocations so pickers pull the exact batches that were sold.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/documents/sale"
)

// LotPick is one lot to pull for a product.
type LotPick struct {
	BatchID   id.ID          `json:"batchId"`
	BatchCode string         `json:"batchCode"`
	Quantity  types.Quantity `json:"quantity"`
}

// Item is the aggregated pick for one product.
type Item struct {
	ProductID   id.ID  `json:"productId"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`

	// PackageUnit and BaseUnit label the split for the printed list
	BaseUnit    string `json:"baseUnit"`
	PackageUnit string `json:"packageUnit,omitempty"`

	TotalBase types.Quantity  `json:"totalBase"`
	Split     types.PackSplit `json:"split"`

	Lots []LotPick `json:"lots"`
}

// List is the picking list for one business date.
type List struct {
	Date      time.Time `json:"date"`
	Documents int       `json:"documents"`
	Items     []Item    `json:"items"`
}

// Service builds picking lists.
type Service struct {
	sales    sale.Repository
	products *product.Service
}

// NewService creates a dispatch service.
func NewService(sales sale.Repository, products *product.Service) *Service {
	return &Service{sales: sales, products: products}
}

// BuildList aggregates every committed sale of the given business date.
// Partially returned sales are included: their stock already left and
// the returns are separate documents.
func (s *Service) BuildList(ctx context.Context, date time.Time) (*List, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)

	var docs []*sale.Sale
	for _, status := range []entity.Status{entity.StatusCommitted, entity.StatusPartiallyReturned} {
		status := status
		part, err := s.sales.List(ctx, sale.ListFilter{
			Status:   &status,
			FromDate: &from,
			ToDate:   &to,
		})
		if err != nil {
			return nil, fmt.Errorf("list sales for picking: %w", err)
		}
		docs = append(docs, part...)
	}

	type agg struct {
		total types.Quantity
		lots  map[id.ID]*LotPick
	}
	byProduct := make(map[id.ID]*agg)

	for _, doc := range docs {
		for i := range doc.Lines {
			line := &doc.Lines[i]
			a, ok := byProduct[line.ProductID]
			if !ok {
				a = &agg{lots: make(map[id.ID]*LotPick)}
				byProduct[line.ProductID] = a
			}
			a.total += line.QuantityBase
			for _, entry := range line.Allocation {
				lp, ok := a.lots[entry.BatchID]
				if !ok {
					lp = &LotPick{BatchID: entry.BatchID, BatchCode: entry.BatchCode}
					a.lots[entry.BatchID] = lp
				}
				lp.Quantity += entry.Quantity
			}
		}
	}

	items := make([]Item, 0, len(byProduct))
	for productID, a := range byProduct {
		prod, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}

		lots := make([]LotPick, 0, len(a.lots))
		for _, lp := range a.lots {
			lots = append(lots, *lp)
		}
		sort.Slice(lots, func(i, j int) bool { return lots[i].BatchCode < lots[j].BatchCode })

		items = append(items, Item{
			ProductID:   productID,
			ProductCode: prod.Code,
			ProductName: prod.Name,
			BaseUnit:    prod.BaseUnit,
			PackageUnit: prod.PackageUnit,
			TotalBase:   a.total,
			Split:       prod.Split(a.total),
			Lots:        lots,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductCode < items[j].ProductCode })

	return &List{
		Date:      from,
		Documents: len(docs),
		Items:     items,
	}, nil
}
