package badge

import (
	"fmt"
	"time"

	"github.com/calderonstudio/ranking-backend/pkg/enums"
)

// Points granted per purchased unit, by product category.
const (
	PointsPrints    = 5
	PointsSessions  = 5
	PointsContracts = 10
)

// ElevatedBonusMultiplier doubles point credits for elevated customers.
const ElevatedBonusMultiplier = 2

// Elevated tier thresholds.
const (
	ElevatedMinGeneralPoints = 1000
	ElevatedMinTenure        = 30 * 24 * time.Hour
)

// LadderThreshold pairs a lifetime point floor with the badge it unlocks.
type LadderThreshold struct {
	MinPoints int
	BadgeName string
}

// LadderThresholds lists the loyalty ladder in ascending order. A customer
// holds every badge whose floor their general points have crossed.
var LadderThresholds = []LadderThreshold{
	{MinPoints: 100, BadgeName: "Cliente Plata"},
	{MinPoints: 200, BadgeName: "Cliente Oro"},
	{MinPoints: 300, BadgeName: "Cliente Premium"},
}

// TerminalPodiumSize is how many ranking positions earn a season badge.
const TerminalPodiumSize = 3

// PointsForCategory returns the per-unit point value of a category. Unknown
// categories earn nothing.
func PointsForCategory(category enums.ProductCategory) int {
	switch category {
	case enums.ProductCategoryPrints:
		return PointsPrints
	case enums.ProductCategorySessions:
		return PointsSessions
	case enums.ProductCategoryContracts:
		return PointsContracts
	default:
		return 0
	}
}

// PointsWithBonus applies the elevated tier multiplier to a point credit.
func PointsWithBonus(points int, elevated bool) int {
	if points <= 0 {
		return 0
	}
	if elevated {
		return points * ElevatedBonusMultiplier
	}
	return points
}

// EligibleLadderBadges returns the names of every ladder badge the given
// lifetime point total qualifies for, lowest threshold first.
func EligibleLadderBadges(generalPoints int) []string {
	var names []string
	for _, tier := range LadderThresholds {
		if generalPoints >= tier.MinPoints {
			names = append(names, tier.BadgeName)
		}
	}
	return names
}

// TerminalBadgeName returns the badge name for a podium rank (1-based).
func TerminalBadgeName(rank int) string {
	return fmt.Sprintf("Temporada Top %d", rank)
}

// QualifiesForElevatedTier reports whether the customer meets both elevated
// tier conditions: the point floor and the minimum account tenure.
func QualifiesForElevatedTier(generalPoints int, registeredAt, now time.Time) bool {
	if generalPoints < ElevatedMinGeneralPoints {
		return false
	}
	return now.Sub(registeredAt) >= ElevatedMinTenure
}
