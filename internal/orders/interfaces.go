package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	ReplaceLineItems(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindLineItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	UpdateOrderIfStatus(ctx context.Context, orderID uuid.UUID, current enums.OrderStatus, updates map[string]any) (int64, error)
	DeleteOrderIfStatus(ctx context.Context, orderID uuid.UUID, current enums.OrderStatus) (int64, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
}
