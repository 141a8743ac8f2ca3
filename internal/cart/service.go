package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/calderonstudio/ranking-backend/internal/products"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/pagination"
)

// Service exposes cart editing operations.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	AddLine(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.Cart, error)
	RemoveLine(ctx context.Context, customerID, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	History(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

// HistoryPage is one page of a customer's finalized carts.
type HistoryPage struct {
	Carts      []models.Cart
	NextCursor string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type cartNotifier interface {
	CartUpdated(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
}

type service struct {
	repo        *Repository
	productRepo *product.Repository
	customers   customerReader
	dbClient    txRunner
	notifier    cartNotifier
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, productRepo *product.Repository, customers customerReader, dbClient txRunner, notifier cartNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		customers:   customers,
		dbClient:    dbClient,
		notifier:    notifier,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// GetCart returns the customer's open cart, creating an empty one on first
// access.
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	cart, err := s.repo.ActiveByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{
		CustomerID: customerID,
		Total:      decimal.Zero,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

// AddLine puts qty units of the product into the cart, merging into an
// existing line. The purchaser quota is checked optimistically here and again
// under lock at checkout.
func (s *service) AddLine(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	prod, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !prod.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is no longer available")
	}

	now := s.now()
	existingQty := 0
	var line *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			line = &cart.Items[i]
			existingQty = cart.Items[i].Qty
			break
		}
	}

	quota := product.EffectiveQuota(prod, now)
	if prod.PurchasedCount+existingQty+qty > quota {
		slotsLeft := quota - prod.PurchasedCount - existingQty
		if slotsLeft < 0 {
			slotsLeft = 0
		}
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "purchase quota exceeded").
			WithDetails(map[string]any{
				"productId": productID.String(),
				"slotsLeft": slotsLeft,
			})
	}

	unitPrice := product.EffectiveUnitPrice(prod, now)
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if line == nil {
			line = &models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
			}
		}
		line.Qty = existingQty + qty
		line.UnitPrice = unitPrice
		if err := repo.SaveItem(ctx, line); err != nil {
			return err
		}
		return s.refreshAndNotify(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart line")
	}
	return s.reload(ctx, cart.ID)
}

// RemoveLine drops the product's line from the cart.
func (s *service) RemoveLine(ctx context.Context, customerID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var removed bool
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, txErr := repo.DeleteItem(ctx, cart.ID, productID)
		if txErr != nil {
			return txErr
		}
		removed = ok
		if !ok {
			return nil
		}
		return s.refreshAndNotify(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	return s.reload(ctx, cart.ID)
}

// ClearCart removes every line from the cart.
func (s *service) ClearCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if txErr := repo.ClearItems(ctx, cart.ID); txErr != nil {
			return txErr
		}
		return s.refreshAndNotify(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return s.reload(ctx, cart.ID)
}

// History returns the customer's checked-out carts, newest first, one cursor
// page at a time.
func (s *service) History(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	carts, err := s.repo.History(ctx, customerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart history")
	}

	page := &HistoryPage{Carts: carts}
	if len(carts) > limit {
		page.Carts = carts[:limit]
		last := page.Carts[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) ensureCustomer(ctx context.Context, customerID uuid.UUID) error {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	return nil
}

// refreshAndNotify recomputes the cart total from its lines and queues the
// cart_updated event, all inside the caller's transaction.
func (s *service) refreshAndNotify(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.Subtotal())
	}
	if err := repo.UpdateTotal(ctx, cartID, total); err != nil {
		return err
	}
	cart.Total = total

	if s.notifier != nil {
		return s.notifier.CartUpdated(ctx, tx, cart)
	}
	return nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return cart, nil
}
