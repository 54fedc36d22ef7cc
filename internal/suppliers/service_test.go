package supplier

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

func newSupplierTestEnv(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:suppliers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Supplier{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, db
}

func staffActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.UserRoleStaff}
}

func TestCreateSupplierNormalizesCode(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	created, err := svc.Create(context.Background(), staffActor(), CreateSupplierInput{
		Code:        " acme-01 ",
		Name:        "Acme Supplies",
		CreditLimit: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	if created.Code != "ACME-01" {
		t.Fatalf("expected normalized code ACME-01, got %s", created.Code)
	}
	if !created.CurrentBalance.IsZero() {
		t.Fatalf("expected zero starting balance, got %s", created.CurrentBalance)
	}
	if !created.AvailableCredit.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected full credit available, got %s", created.AvailableCredit)
	}
}

func TestCreateSupplierDuplicateCode(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, staffActor(), CreateSupplierInput{Code: "DUP-01", Name: "First"}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	_, err := svc.Create(ctx, staffActor(), CreateSupplierInput{Code: "dup-01", Name: "Second"})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdjustBalanceWithinCreditLimit(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, staffActor(), CreateSupplierInput{
		Code:        "BAL-01",
		Name:        "Balances Inc",
		CreditLimit: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	updated, err := svc.AdjustBalance(ctx, staffActor(), created.ID, decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("increase balance: %v", err)
	}
	if !updated.CurrentBalance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected balance 300, got %s", updated.CurrentBalance)
	}
	if !updated.AvailableCredit.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected available 200, got %s", updated.AvailableCredit)
	}

	_, err = svc.AdjustBalance(ctx, staffActor(), created.ID, decimal.NewFromInt(201))
	if err == nil {
		t.Fatal("expected credit limit conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// The rejected increase must not have moved the balance.
	current, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get supplier: %v", err)
	}
	if !current.CurrentBalance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected balance unchanged at 300, got %s", current.CurrentBalance)
	}
}

func TestDecreaseBalanceFloorsAtZero(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, staffActor(), CreateSupplierInput{
		Code:        "FLR-01",
		Name:        "Floors Ltd",
		CreditLimit: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	if _, err := svc.AdjustBalance(ctx, staffActor(), created.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("increase balance: %v", err)
	}

	updated, err := svc.AdjustBalance(ctx, staffActor(), created.ID, decimal.NewFromInt(-250))
	if err != nil {
		t.Fatalf("decrease balance: %v", err)
	}
	if !updated.CurrentBalance.IsZero() {
		t.Fatalf("expected balance floored at zero, got %s", updated.CurrentBalance)
	}
}

func TestAdjustBalanceUnknownSupplier(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	_, err := svc.AdjustBalance(context.Background(), staffActor(), uuid.New(), decimal.NewFromInt(10))
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteSupplierRequiresAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newSupplierTestEnv(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, staffActor(), CreateSupplierInput{Code: "DEL-01", Name: "Gone Soon"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	if err := svc.Delete(ctx, staffActor(), created.ID); err == nil {
		t.Fatal("expected forbidden for staff")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	if err := svc.Delete(ctx, admin, created.ID); err != nil {
		t.Fatalf("delete supplier: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err == nil {
		t.Fatal("expected supplier to be gone")
	}
}
