package score

import (
	"context"
	"errors"
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
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

func setupScoresTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS seasons (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  starts_on DATETIME NOT NULL,
  ends_on DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS score_entries (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  season_id TEXT NOT NULL,
  points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_score_entries_customer_season ON score_entries (customer_id, season_id);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// fakeSeasonFinder stands in for the season service so the test does not pull
// in the whole season package.
type fakeSeasonFinder struct {
	active *models.Season
}

func (f *fakeSeasonFinder) ActiveSeason(context.Context) (*models.Season, error) {
	if f.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.active, nil
}

func (f *fakeSeasonFinder) FindByID(_ context.Context, id uuid.UUID) (*models.Season, error) {
	if f.active != nil && f.active.ID == id {
		return f.active, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newScoreService(t *testing.T, conn *gorm.DB, finder *fakeSeasonFinder) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), finder, testLogger())
	require.NoError(t, err)
	return svc
}

func seedActiveSeason(t *testing.T, conn *gorm.DB) *models.Season {
	t.Helper()
	now := time.Now()
	season := &models.Season{
		ID:       uuid.New(),
		Name:     "Temporada 1",
		StartsOn: now.Add(-24 * time.Hour),
		EndsOn:   now.Add(24 * time.Hour),
		Status:   enums.SeasonStatusActive,
	}
	require.NoError(t, conn.Create(season).Error)
	return season
}

func seedScoreCustomer(t *testing.T, conn *gorm.DB, points int) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		ID:            uuid.New(),
		Name:          "Ana",
		Email:         fmt.Sprintf("%s@example.com", uuid.NewString()),
		GeneralPoints: points,
		RegisteredAt:  time.Now().Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, conn.Create(customer).Error)
	return customer
}

func awardInTx(t *testing.T, conn *gorm.DB, svc Service, customerID uuid.UUID, lines []PurchaseLine) (int, error) {
	t.Helper()
	var earned int
	err := conn.Transaction(func(tx *gorm.DB) error {
		var txErr error
		earned, txErr = svc.AwardForPurchase(context.Background(), tx, customerID, lines)
		return txErr
	})
	return earned, err
}

func TestAwardForPurchase(t *testing.T) {
	conn := setupScoresTestDB(t)
	season := seedActiveSeason(t, conn)
	svc := newScoreService(t, conn, &fakeSeasonFinder{active: season})
	customer := seedScoreCustomer(t, conn, 5)

	earned, err := awardInTx(t, conn, svc, customer.ID, []PurchaseLine{
		{Category: enums.ProductCategoryPrints, Qty: 2},
		{Category: enums.ProductCategoryContracts, Qty: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, earned)

	var entry models.ScoreEntry
	require.NoError(t, conn.First(&entry, "customer_id = ? AND season_id = ?", customer.ID, season.ID).Error)
	assert.Equal(t, 20, entry.Points)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", customer.ID).Error)
	assert.Equal(t, 25, stored.GeneralPoints)
}

func TestAwardForPurchaseAccumulates(t *testing.T) {
	conn := setupScoresTestDB(t)
	season := seedActiveSeason(t, conn)
	svc := newScoreService(t, conn, &fakeSeasonFinder{active: season})
	customer := seedScoreCustomer(t, conn, 0)

	lines := []PurchaseLine{{Category: enums.ProductCategorySessions, Qty: 1}}
	_, err := awardInTx(t, conn, svc, customer.ID, lines)
	require.NoError(t, err)
	_, err = awardInTx(t, conn, svc, customer.ID, lines)
	require.NoError(t, err)

	var entries []models.ScoreEntry
	require.NoError(t, conn.Where("customer_id = ?", customer.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].Points)
}

func TestAwardForPurchaseNoActiveSeason(t *testing.T) {
	conn := setupScoresTestDB(t)
	svc := newScoreService(t, conn, &fakeSeasonFinder{})
	customer := seedScoreCustomer(t, conn, 0)

	earned, err := awardInTx(t, conn, svc, customer.ID, []PurchaseLine{
		{Category: enums.ProductCategoryPrints, Qty: 3},
	})
	require.NoError(t, err)
	assert.Zero(t, earned)

	var count int64
	require.NoError(t, conn.Model(&models.ScoreEntry{}).Count(&count).Error)
	assert.Zero(t, count)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", customer.ID).Error)
	assert.Zero(t, stored.GeneralPoints)
}

func TestAwardForPurchaseSkipsNonPositiveLines(t *testing.T) {
	conn := setupScoresTestDB(t)
	svc := newScoreService(t, conn, &fakeSeasonFinder{})
	customer := seedScoreCustomer(t, conn, 0)

	earned, err := awardInTx(t, conn, svc, customer.ID, []PurchaseLine{
		{Category: enums.ProductCategoryPrints, Qty: 0},
		{Category: enums.ProductCategoryContracts, Qty: -2},
	})
	require.NoError(t, err)
	assert.Zero(t, earned)
}

func TestAwardForPurchaseMissingCustomer(t *testing.T) {
	conn := setupScoresTestDB(t)
	svc := newScoreService(t, conn, &fakeSeasonFinder{})
	seedActiveSeason(t, conn)

	_, err := awardInTx(t, conn, svc, uuid.New(), []PurchaseLine{
		{Category: enums.ProductCategoryPrints, Qty: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRankingOrdersAndBreaksTies(t *testing.T) {
	conn := setupScoresTestDB(t)
	season := seedActiveSeason(t, conn)
	svc := newScoreService(t, conn, &fakeSeasonFinder{active: season})

	leader := seedScoreCustomer(t, conn, 0)
	tiedA := seedScoreCustomer(t, conn, 0)
	tiedB := seedScoreCustomer(t, conn, 0)
	idle := seedScoreCustomer(t, conn, 0)

	seedEntry := func(customerID uuid.UUID, points int) {
		entry := &models.ScoreEntry{ID: uuid.New(), CustomerID: customerID, SeasonID: season.ID, Points: points}
		require.NoError(t, conn.Create(entry).Error)
	}
	seedEntry(leader.ID, 30)
	seedEntry(tiedA.ID, 20)
	seedEntry(tiedB.ID, 20)
	seedEntry(idle.ID, 0)

	result, err := svc.Ranking(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, season.ID, result.Season.ID)
	require.Len(t, result.Entries, 3)

	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, leader.ID, result.Entries[0].CustomerID)

	// Tied customers order by id so ranking stays deterministic.
	firstTied, secondTied := tiedA.ID, tiedB.ID
	if secondTied.String() < firstTied.String() {
		firstTied, secondTied = secondTied, firstTied
	}
	assert.Equal(t, firstTied, result.Entries[1].CustomerID)
	assert.Equal(t, secondTied, result.Entries[2].CustomerID)
	assert.Equal(t, 3, result.Entries[2].Rank)
}

func TestRankingSeasonNotFound(t *testing.T) {
	conn := setupScoresTestDB(t)
	svc := newScoreService(t, conn, &fakeSeasonFinder{})

	missing := uuid.New()
	_, err := svc.Ranking(context.Background(), &missing, 10)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded, "expected coded error, got %v", err)
	require.Equal(t, code, coded.Code())
}
