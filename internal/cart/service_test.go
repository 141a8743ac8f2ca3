package cart

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	notification "github.com/calderonstudio/ranking-backend/internal/notifications"
	product "github.com/calderonstudio/ranking-backend/internal/products"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
	"github.com/calderonstudio/ranking-backend/pkg/pagination"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  general_points INTEGER NOT NULL DEFAULT 0,
  registered_at DATETIME NOT NULL,
  is_elevated INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  category TEXT NOT NULL,
  max_purchasers INTEGER NOT NULL,
  purchased_count INTEGER NOT NULL DEFAULT 0,
  is_available INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_discounts (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  percent NUMERIC NOT NULL,
  max_purchasers INTEGER NOT NULL,
  purchased_count INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_customer_active ON carts (customer_id) WHERE status = 'active';`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_product ON cart_items (cart_id, product_id);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type testCustomerStore struct {
	db *gorm.DB
}

func (s *testCustomerStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newCartService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	events := outbox.NewService(outbox.NewRepository(conn), testLogger())
	notifier, err := notification.NewNotifier(events)
	require.NoError(t, err)
	svc, err := NewService(
		NewRepository(conn),
		product.NewRepository(conn),
		&testCustomerStore{db: conn},
		&testTxRunner{db: conn},
		notifier,
		testLogger(),
	)
	require.NoError(t, err)
	return svc
}

func seedCartCustomer(t *testing.T, conn *gorm.DB) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		ID:           uuid.New(),
		Name:         "Ana",
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		RegisteredAt: time.Now().Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, conn.Create(customer).Error)
	return customer
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, maxPurchasers, purchased int) *models.Product {
	t.Helper()
	prod := &models.Product{
		ID:             uuid.New(),
		Name:           "Sesion de retrato",
		Description:    "Una hora de estudio",
		Price:          decimal.RequireFromString(price),
		Category:       enums.ProductCategorySessions,
		MaxPurchasers:  maxPurchasers,
		PurchasedCount: purchased,
		Available:      true,
	}
	require.NoError(t, conn.Create(prod).Error)
	return prod
}

func countCartEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func TestGetCartCreatesOnFirstAccess(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)

	cart, err := svc.GetCart(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, cart.Status)
	assert.True(t, cart.Total.IsZero())
	assert.Empty(t, cart.Items)

	again, err := svc.GetCart(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestGetCartMissingCustomer(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	_, err := svc.GetCart(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddLine(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)

	cart, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Qty)
	assert.Equal(t, "20.00", cart.Total.StringFixed(2))
	assert.EqualValues(t, 1, countCartEvents(t, conn, enums.EventCartUpdated))
}

func TestAddLineMergesExistingLine(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)

	_, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 1)
	require.NoError(t, err)
	cart, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 2)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Qty)
	assert.Equal(t, "30.00", cart.Total.StringFixed(2))
}

func TestAddLineValidation(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)

	_, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddLine(context.Background(), customer.ID, prod.ID, -1)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAddLineProductNotFound(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)

	_, err := svc.AddLine(context.Background(), customer.ID, uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddLineUnavailableProduct(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)
	require.NoError(t, conn.Model(prod).Update("is_available", false).Error)

	_, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 1)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAddLineQuotaExceeded(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 5, 4)

	_, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 2)
	requireCode(t, err, pkgerrors.CodeQuotaExceeded)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	details, ok := coded.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, prod.ID.String(), details["productId"])
	assert.Equal(t, 1, details["slotsLeft"])
}

func TestAddLineAppliesActiveDiscount(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)

	now := time.Now()
	discount := &models.ProductDiscount{
		ID:            uuid.New(),
		ProductID:     prod.ID,
		Percent:       decimal.RequireFromString("50"),
		MaxPurchasers: 10,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
	}
	require.NoError(t, conn.Create(discount).Error)

	cart, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "5.00", cart.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "5.00", cart.Total.StringFixed(2))
}

func TestRemoveLine(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	prod := seedProduct(t, conn, "10.00", 10, 0)

	_, err := svc.AddLine(context.Background(), customer.ID, prod.ID, 2)
	require.NoError(t, err)

	cart, err := svc.RemoveLine(context.Background(), customer.ID, prod.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	_, err = svc.RemoveLine(context.Background(), customer.ID, prod.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestClearCart(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)
	first := seedProduct(t, conn, "10.00", 10, 0)
	second := seedProduct(t, conn, "7.50", 10, 0)

	_, err := svc.AddLine(context.Background(), customer.ID, first.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), customer.ID, second.ID, 2)
	require.NoError(t, err)

	cart, err := svc.ClearCart(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestHistoryPagination(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)

	now := time.Now()
	var finalized []*models.Cart
	for i := 0; i < 3; i++ {
		cart := &models.Cart{
			ID:         uuid.New(),
			CustomerID: customer.ID,
			Status:     enums.CartStatusFinalized,
			Total:      decimal.RequireFromString("10.00"),
			CreatedAt:  now.Add(-time.Duration(i+1) * time.Hour),
		}
		require.NoError(t, conn.Create(cart).Error)
		finalized = append(finalized, cart)
	}
	// The open cart never shows up in history.
	_, err := svc.GetCart(context.Background(), customer.ID)
	require.NoError(t, err)

	page, err := svc.History(context.Background(), customer.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Carts, 2)
	assert.Equal(t, finalized[0].ID, page.Carts[0].ID)
	assert.Equal(t, finalized[1].ID, page.Carts[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.History(context.Background(), customer.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Carts, 1)
	assert.Equal(t, finalized[2].ID, rest.Carts[0].ID)
	assert.Empty(t, rest.NextCursor)
}

func TestHistoryRejectsBadCursor(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	customer := seedCartCustomer(t, conn)

	_, err := svc.History(context.Background(), customer.ID, pagination.Params{Cursor: "not-a-cursor"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded, "expected coded error, got %v", err)
	require.Equal(t, code, coded.Code())
}
