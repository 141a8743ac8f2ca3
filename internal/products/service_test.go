package product

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
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
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newProductService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func validCreateInput() CreateProductInput {
	return CreateProductInput{
		Name:          "Sesion de retrato",
		Description:   "Una hora de estudio",
		Price:         decimal.RequireFromString("120.00"),
		Category:      enums.ProductCategorySessions,
		MaxPurchasers: 10,
	}
}

func TestCreateProduct(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	now := time.Now()
	input := validCreateInput()
	input.Discounts = []DiscountInput{{
		Percent:       decimal.RequireFromString("20"),
		MaxPurchasers: 5,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
	}}

	created, err := svc.CreateProduct(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, created.Available)
	require.Len(t, created.Discounts, 1)

	view, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "96.00", view.EffectivePrice.StringFixed(2))
	assert.Equal(t, 5, view.EffectiveQuota)
	assert.Equal(t, 5, view.SlotsLeft)
}

func TestCreateProductValidation(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"empty name", func() CreateProductInput {
			in := validCreateInput()
			in.Name = "  "
			return in
		}()},
		{"negative price", func() CreateProductInput {
			in := validCreateInput()
			in.Price = decimal.RequireFromString("-1")
			return in
		}()},
		{"bad category", func() CreateProductInput {
			in := validCreateInput()
			in.Category = enums.ProductCategory("posters")
			return in
		}()},
		{"zero quota", func() CreateProductInput {
			in := validCreateInput()
			in.MaxPurchasers = 0
			return in
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.input)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestCreateProductRejectsBadDiscount(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	now := time.Now()

	input := validCreateInput()
	input.Discounts = []DiscountInput{{
		Percent:       decimal.RequireFromString("100"),
		MaxPurchasers: 5,
		StartsAt:      now,
		EndsAt:        now.Add(time.Hour),
	}}
	_, err := svc.CreateProduct(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeValidation)

	input.Discounts = []DiscountInput{{
		Percent:       decimal.RequireFromString("10"),
		MaxPurchasers: 5,
		StartsAt:      now.Add(time.Hour),
		EndsAt:        now,
	}}
	_, err = svc.CreateProduct(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateProductReopensWhenCapRaised(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	created, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", created.ID).
		Updates(map[string]any{"purchased_count": 10, "is_available": false}).Error)

	raised := 20
	updated, err := svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{MaxPurchasers: &raised})
	require.NoError(t, err)
	assert.True(t, updated.Available)
	assert.Equal(t, 20, updated.MaxPurchasers)
}

func TestUpdateProductNotFound(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	name := "Nuevo"
	_, err := svc.UpdateProduct(context.Background(), uuid.New(), UpdateProductInput{Name: &name})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListProductsOnlyAvailable(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	open, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)
	soldOut, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", soldOut.ID).
		Updates(map[string]any{"purchased_count": 10, "is_available": false}).Error)

	views, err := svc.ListProducts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, open.ID, views[0].Product.ID)

	all, err := svc.ListProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteProduct(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	created, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(context.Background(), created.ID))

	_, err = svc.GetProduct(context.Background(), created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = svc.DeleteProduct(context.Background(), created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded, "expected coded error, got %v", err)
	require.Equal(t, code, coded.Code())
}
