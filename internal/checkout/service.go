package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	cartpkg "github.com/calderonstudio/ranking-backend/internal/cart"
	product "github.com/calderonstudio/ranking-backend/internal/products"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

// Receipt is the result of a successful checkout.
type Receipt struct {
	CartID       uuid.UUID     `json:"cartId"`
	CustomerID   uuid.UUID     `json:"customerId"`
	Total        string        `json:"total"`
	PointsEarned int           `json:"pointsEarned"`
	Lines        []ReceiptLine `json:"lines"`
}

// ReceiptLine is one settled cart line.
type ReceiptLine struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Qty       int       `json:"qty"`
	UnitPrice string    `json:"unitPrice"`
	Subtotal  string    `json:"subtotal"`
}

// Service finalizes carts.
type Service interface {
	Checkout(ctx context.Context, customerID uuid.UUID) (*Receipt, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pointsAwarder interface {
	AwardForPurchase(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, lines []score.PurchaseLine) (int, error)
}

type checkoutNotifier interface {
	CartCheckedOut(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
}

type service struct {
	cartRepo    *cartpkg.Repository
	productRepo *product.Repository
	points      pointsAwarder
	dbClient    txRunner
	notifier    checkoutNotifier
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs a checkout service instance.
func NewService(cartRepo *cartpkg.Repository, productRepo *product.Repository, points pointsAwarder, dbClient txRunner, notifier checkoutNotifier, logg *logger.Logger) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if points == nil {
		return nil, fmt.Errorf("points awarder required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		points:      points,
		dbClient:    dbClient,
		notifier:    notifier,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// Checkout settles the customer's open cart in a single transaction. Every
// line is re-validated against the purchaser quota under row locks, so two
// concurrent checkouts cannot oversell a product.
func (s *service) Checkout(ctx context.Context, customerID uuid.UUID) (*Receipt, error) {
	var receipt *Receipt
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		r, txErr := s.checkoutTx(ctx, tx, customerID)
		if txErr != nil {
			return txErr
		}
		receipt = r
		return nil
	})
	if err != nil {
		var coded *pkgerrors.Error
		if errors.As(err, &coded) {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking out cart")
	}

	cctx := s.logg.WithCustomerID(ctx, customerID.String())
	cctx = s.logg.WithCartID(cctx, receipt.CartID.String())
	cctx = s.logg.WithField(cctx, "points_earned", receipt.PointsEarned)
	s.logg.Info(cctx, "cart checked out")
	return receipt, nil
}

func (s *service) checkoutTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*Receipt, error) {
	now := s.now()
	cartRepo := s.cartRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)

	cart, err := cartRepo.ActiveByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	total := decimal.Zero
	lines := make([]ReceiptLine, 0, len(cart.Items))
	purchaseLines := make([]score.PurchaseLine, 0, len(cart.Items))

	for i := range cart.Items {
		item := &cart.Items[i]

		// Lock the product row; quotas are enforced against current counters.
		prod, err := productRepo.FindByIDForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists").
					WithDetails(map[string]any{"productId": item.ProductID.String()})
			}
			return nil, err
		}
		if !prod.Available {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is no longer available").
				WithDetails(map[string]any{"productId": prod.ID.String()})
		}

		discount := product.SelectEffectiveDiscount(prod, now)
		quota := product.EffectiveQuota(prod, now)
		if prod.PurchasedCount+item.Qty > quota {
			slotsLeft := quota - prod.PurchasedCount
			if slotsLeft < 0 {
				slotsLeft = 0
			}
			return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "purchase quota exceeded").
				WithDetails(map[string]any{
					"productId": prod.ID.String(),
					"slotsLeft": slotsLeft,
				})
		}

		// Settle at the price in force right now.
		unitPrice := product.EffectiveUnitPrice(prod, now)
		if !unitPrice.Equal(item.UnitPrice) {
			item.UnitPrice = unitPrice
			if err := cartRepo.SaveItem(ctx, item); err != nil {
				return nil, err
			}
		}

		if err := productRepo.IncrementPurchased(ctx, prod.ID, item.Qty, quota); err != nil {
			return nil, err
		}
		if discount != nil {
			if err := productRepo.IncrementDiscountPurchased(ctx, discount.ID, item.Qty); err != nil {
				return nil, err
			}
		}

		subtotal := item.Subtotal()
		total = total.Add(subtotal)
		line := ReceiptLine{
			ProductID: prod.ID,
			Name:      prod.Name,
			Qty:       item.Qty,
			UnitPrice: unitPrice.StringFixed(2),
			Subtotal:  subtotal.StringFixed(2),
		}
		lines = append(lines, line)
		purchaseLines = append(purchaseLines, score.PurchaseLine{
			Category: prod.Category,
			Qty:      item.Qty,
		})
	}

	if err := cartRepo.UpdateTotal(ctx, cart.ID, total); err != nil {
		return nil, err
	}
	flipped, err := cartRepo.SetStatus(ctx, cart.ID, enums.CartStatusActive, enums.CartStatusFinalized)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart was already checked out")
	}

	points, err := s.points.AwardForPurchase(ctx, tx, customerID, purchaseLines)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		cart.Status = enums.CartStatusFinalized
		cart.Total = total
		if err := s.notifier.CartCheckedOut(ctx, tx, cart); err != nil {
			return nil, err
		}
	}

	return &Receipt{
		CartID:       cart.ID,
		CustomerID:   customerID,
		Total:        total.StringFixed(2),
		PointsEarned: points,
		Lines:        lines,
	}, nil
}
