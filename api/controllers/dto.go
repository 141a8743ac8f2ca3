package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
)

// CustomerResponse is the wire form of a customer.
type CustomerResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	GeneralPoints int       `json:"generalPoints"`
	Elevated      bool      `json:"elevated"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

func toCustomerResponse(c *models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		GeneralPoints: c.GeneralPoints,
		Elevated:      c.Elevated,
		RegisteredAt:  c.RegisteredAt,
	}
}

// SeasonResponse is the wire form of a season.
type SeasonResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	StartsOn time.Time `json:"startsOn"`
	EndsOn   time.Time `json:"endsOn"`
	Status   string    `json:"status"`
}

func toSeasonResponse(s *models.Season) SeasonResponse {
	return SeasonResponse{
		ID:       s.ID,
		Name:     s.Name,
		StartsOn: s.StartsOn,
		EndsOn:   s.EndsOn,
		Status:   string(s.Status),
	}
}

// BadgeResponse is the wire form of a catalog badge.
type BadgeResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Requirements string     `json:"requirements"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

func toBadgeResponse(b *models.Badge) BadgeResponse {
	return BadgeResponse{
		ID:           b.ID,
		Name:         b.Name,
		Requirements: b.Requirements,
		ValidFrom:    b.ValidFrom,
		ValidUntil:   b.ValidUntil,
	}
}

// CustomerBadgeResponse is one badge held by a customer.
type CustomerBadgeResponse struct {
	Badge     BadgeResponse `json:"badge"`
	AwardedAt time.Time     `json:"awardedAt"`
}

func toCustomerBadgeResponses(grants []models.CustomerBadge) []CustomerBadgeResponse {
	out := make([]CustomerBadgeResponse, 0, len(grants))
	for _, grant := range grants {
		resp := CustomerBadgeResponse{AwardedAt: grant.AwardedAt}
		if grant.Badge != nil {
			resp.Badge = toBadgeResponse(grant.Badge)
		}
		out = append(out, resp)
	}
	return out
}

// DiscountResponse is the wire form of a discount window.
type DiscountResponse struct {
	ID             uuid.UUID `json:"id"`
	Percent        string    `json:"percent"`
	MaxPurchasers  int       `json:"maxPurchasers"`
	PurchasedCount int       `json:"purchasedCount"`
	StartsAt       time.Time `json:"startsAt"`
	EndsAt         time.Time `json:"endsAt"`
}

// ProductResponse is the wire form of a product.
type ProductResponse struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Price          string             `json:"price"`
	Category       string             `json:"category"`
	MaxPurchasers  int                `json:"maxPurchasers"`
	PurchasedCount int                `json:"purchasedCount"`
	Available      bool               `json:"available"`
	EffectivePrice string             `json:"effectivePrice,omitempty"`
	EffectiveQuota int                `json:"effectiveQuota,omitempty"`
	SlotsLeft      int                `json:"slotsLeft,omitempty"`
	Discounts      []DiscountResponse `json:"discounts,omitempty"`
}

func toProductResponse(p *models.Product) ProductResponse {
	resp := ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.StringFixed(2),
		Category:       string(p.Category),
		MaxPurchasers:  p.MaxPurchasers,
		PurchasedCount: p.PurchasedCount,
		Available:      p.Available,
	}
	for _, d := range p.Discounts {
		resp.Discounts = append(resp.Discounts, DiscountResponse{
			ID:             d.ID,
			Percent:        d.Percent.StringFixed(2),
			MaxPurchasers:  d.MaxPurchasers,
			PurchasedCount: d.PurchasedCount,
			StartsAt:       d.StartsAt,
			EndsAt:         d.EndsAt,
		})
	}
	return resp
}

// CartItemResponse is one line of a cart.
type CartItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name,omitempty"`
	Qty       int       `json:"qty"`
	UnitPrice string    `json:"unitPrice"`
	Subtotal  string    `json:"subtotal"`
}

// CartResponse is the wire form of a cart.
type CartResponse struct {
	ID     uuid.UUID          `json:"id"`
	Status string             `json:"status"`
	Total  string             `json:"total"`
	Items  []CartItemResponse `json:"items"`
}

func toCartResponse(c *models.Cart) CartResponse {
	resp := CartResponse{
		ID:     c.ID,
		Status: c.Status.String(),
		Total:  c.Total.StringFixed(2),
		Items:  make([]CartItemResponse, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		line := CartItemResponse{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"field": param})
	}
	return id, nil
}
