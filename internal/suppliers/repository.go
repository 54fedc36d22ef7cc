package supplier

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

// Repository wires together supplier persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the supplier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindByCode loads the supplier matching the normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Create inserts the supplier row.
func (r *Repository) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// Update persists the mutated supplier row.
func (r *Repository) Update(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Save(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// Delete removes the supplier. Product references are weak and survive.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Supplier{}).Error
}

// IncreaseBalance adds amount to the balance only while it stays within the
// credit limit. Returns the rows affected so callers can tell a rejected
// increase from a missing supplier.
func (r *Repository) IncreaseBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE suppliers
		SET current_balance = current_balance + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_balance + ? <= credit_limit
	`, amount, id, amount)
	return res.RowsAffected, res.Error
}

// DecreaseBalance subtracts amount from the balance, flooring at zero.
func (r *Repository) DecreaseBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE suppliers
		SET current_balance = CASE
			WHEN current_balance - ? < 0 THEN 0
			ELSE current_balance - ?
		END,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, amount, id)
	return res.RowsAffected, res.Error
}

// List returns a page of suppliers.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters SupplierFilters) (*SupplierList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Supplier{})

	if filters.IsActive != nil {
		qb = qb.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Query != "" {
		pattern := "%" + filters.Query + "%"
		qb = qb.Where("(code LIKE ? OR name LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Supplier
	if err := qb.Find(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	dtos := make([]SupplierDTO, 0, len(resultRows))
	for i := range resultRows {
		dtos = append(dtos, *NewSupplierDTO(&resultRows[i]))
	}

	return &SupplierList{
		Suppliers:  dtos,
		NextCursor: nextCursor,
	}, nil
}
