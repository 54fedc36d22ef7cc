package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

// Summary is the aggregate snapshot served to the dashboard.
type Summary struct {
	OrdersByStatus          []StatusCount           `json:"orders_by_status"`
	TotalOrders             int64                   `json:"total_orders"`
	LowStockCount           int64                   `json:"low_stock_count"`
	LowStockItems           []inventory.LowStockRow `json:"low_stock_items"`
	InventoryValuationCents int64                   `json:"inventory_valuation_cents"`
	TopProducts             []TopProduct            `json:"top_products"`
}

// Service exposes the dashboard read endpoints.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error)
}

type service struct {
	repo    *Repository
	invRepo inventory.Repository
}

// NewService constructs a dashboard service.
func NewService(repo *Repository, invRepo inventory.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, invRepo: invRepo}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	statusCounts, err := s.repo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}
	var totalOrders int64
	for _, row := range statusCounts {
		totalOrders += row.Count
	}

	lowCount, err := s.invRepo.CountLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count low stock")
	}
	lowItems, err := s.invRepo.ListLowStock(ctx, 10)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}

	valuation, err := s.repo.InventoryValuationCents(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory valuation")
	}

	top, err := s.repo.TopProducts(ctx, 5)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top products")
	}

	return &Summary{
		OrdersByStatus:          statusCounts,
		TotalOrders:             totalOrders,
		LowStockCount:           lowCount,
		LowStockItems:           lowItems,
		InventoryValuationCents: valuation,
		TopProducts:             top,
	}, nil
}

func (s *service) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	summary, err := s.repo.Revenue(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenue aggregation")
	}
	return summary, nil
}
