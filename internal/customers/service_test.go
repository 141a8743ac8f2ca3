package customer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
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
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_customers_email ON customers (email);`,
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

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newCustomerService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), &testTxRunner{db: conn}, testLogger())
	require.NoError(t, err)
	return svc
}

func seedCustomer(t *testing.T, conn *gorm.DB, points int, elevated bool) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		ID:            uuid.New(),
		Name:          "Ana",
		Email:         fmt.Sprintf("%s@example.com", uuid.NewString()),
		GeneralPoints: points,
		RegisteredAt:  time.Now().Add(-60 * 24 * time.Hour),
		Elevated:      elevated,
	}
	require.NoError(t, conn.Create(customer).Error)
	return customer
}

func TestRegisterNormalizesInput(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)

	created, err := svc.Register(context.Background(), RegisterInput{
		Name:  "  Ana Calderon  ",
		Email: "  ANA@Example.COM ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Calderon", created.Name)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Zero(t, created.GeneralPoints)
	assert.False(t, created.Elevated)
	assert.False(t, created.RegisteredAt.IsZero())
}

func TestRegisterValidation(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Ana"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "Ana@Example.com"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreditPoints(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)
	customer := seedCustomer(t, conn, 40, false)

	result, err := svc.CreditPoints(context.Background(), customer.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, result.PointsApplied)
	assert.False(t, result.BonusApplied)
	assert.Equal(t, 100, result.GeneralPoints)

	stored, err := svc.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.GeneralPoints)
}

func TestCreditPointsElevatedBonus(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)
	customer := seedCustomer(t, conn, 1000, true)

	result, err := svc.CreditPoints(context.Background(), customer.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 100, result.PointsApplied)
	assert.True(t, result.BonusApplied)
	assert.Equal(t, 1100, result.GeneralPoints)
}

func TestCreditPointsRejectsNonPositive(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)
	customer := seedCustomer(t, conn, 0, false)

	_, err := svc.CreditPoints(context.Background(), customer.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreditPoints(context.Background(), customer.ID, -5)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreditPointsMissingCustomer(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)

	_, err := svc.CreditPoints(context.Background(), uuid.New(), 10)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListCustomersOrdersByPoints(t *testing.T) {
	conn := setupCustomersTestDB(t)
	svc := newCustomerService(t, conn)

	low := seedCustomer(t, conn, 10, false)
	high := seedCustomer(t, conn, 500, false)

	customers, err := svc.ListCustomers(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, high.ID, customers[0].ID)
	assert.Equal(t, low.ID, customers[1].ID)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded, "expected coded error, got %v", err)
	require.Equal(t, code, coded.Code())
}
