package score

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
)

// RankedCustomer is one row of a season leaderboard.
type RankedCustomer struct {
	Rank       int       `json:"rank"`
	CustomerID uuid.UUID `json:"customerId"`
	Name       string    `json:"name"`
	Points     int       `json:"points"`
}

// Repository provides score entry persistence and leaderboard reads.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// AddPoints accumulates points into the customer's entry for the season,
// creating the entry on first award.
func (r *Repository) AddPoints(ctx context.Context, customerID, seasonID uuid.UUID, points int) error {
	conn := r.db.WithContext(ctx)

	result := conn.Model(&models.ScoreEntry{}).
		Where("customer_id = ? AND season_id = ?", customerID, seasonID).
		Update("points", gorm.Expr("points + ?", points))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	entry := models.ScoreEntry{
		CustomerID: customerID,
		SeasonID:   seasonID,
		Points:     points,
	}
	if err := conn.Create(&entry).Error; err != nil {
		// Concurrent first award created the row; fold into it.
		if db.IsUniqueViolation(err, "ux_score_entries_customer_season") {
			return conn.Model(&models.ScoreEntry{}).
				Where("customer_id = ? AND season_id = ?", customerID, seasonID).
				Update("points", gorm.Expr("points + ?", points)).Error
		}
		return err
	}
	return nil
}

// PointsFor returns the customer's point total for the season. A missing
// entry counts as zero.
func (r *Repository) PointsFor(ctx context.Context, customerID, seasonID uuid.UUID) (int, error) {
	var entry models.ScoreEntry
	err := r.db.WithContext(ctx).
		First(&entry, "customer_id = ? AND season_id = ?", customerID, seasonID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return entry.Points, nil
}

// TopN returns the season leaderboard: customers with points, best first.
// Ties break on customer id so the ordering is deterministic.
func (r *Repository) TopN(ctx context.Context, seasonID uuid.UUID, n int) ([]RankedCustomer, error) {
	rows := []struct {
		CustomerID uuid.UUID
		Name       string
		Points     int
	}{}
	query := r.db.WithContext(ctx).
		Table("score_entries").
		Select("score_entries.customer_id, customers.name, score_entries.points").
		Joins("JOIN customers ON customers.id = score_entries.customer_id").
		Where("score_entries.season_id = ? AND score_entries.points > 0", seasonID).
		Order("score_entries.points DESC").
		Order("score_entries.customer_id ASC")
	if n > 0 {
		query = query.Limit(n)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	ranked := make([]RankedCustomer, 0, len(rows))
	for i, row := range rows {
		ranked = append(ranked, RankedCustomer{
			Rank:       i + 1,
			CustomerID: row.CustomerID,
			Name:       row.Name,
			Points:     row.Points,
		})
	}
	return ranked, nil
}
