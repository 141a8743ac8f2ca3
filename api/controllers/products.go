package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	product "github.com/calderonstudio/ranking-backend/internal/products"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type discountRequest struct {
	Percent       string    `json:"percent" validate:"required"`
	MaxPurchasers int       `json:"maxPurchasers" validate:"required,min=1"`
	StartsAt      time.Time `json:"startsAt" validate:"required"`
	EndsAt        time.Time `json:"endsAt" validate:"required"`
}

type createProductRequest struct {
	Name          string            `json:"name" validate:"required,min=1,max=160"`
	Description   string            `json:"description"`
	Price         string            `json:"price" validate:"required"`
	Category      string            `json:"category" validate:"required"`
	MaxPurchasers int               `json:"maxPurchasers" validate:"required,min=1"`
	Discounts     []discountRequest `json:"discounts" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	Name          *string            `json:"name" validate:"omitempty,min=1,max=160"`
	Description   *string            `json:"description"`
	Price         *string            `json:"price"`
	Category      *string            `json:"category"`
	MaxPurchasers *int               `json:"maxPurchasers" validate:"omitempty,min=1"`
	Discounts     *[]discountRequest `json:"discounts" validate:"omitempty,dive"`
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid price").
			WithDetails(map[string]any{"price": raw})
	}
	return price, nil
}

func parseDiscounts(reqs []discountRequest) ([]product.DiscountInput, error) {
	discounts := make([]product.DiscountInput, 0, len(reqs))
	for _, d := range reqs {
		percent, err := decimal.NewFromString(strings.TrimSpace(d.Percent))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount percent").
				WithDetails(map[string]any{"percent": d.Percent})
		}
		discounts = append(discounts, product.DiscountInput{
			Percent:       percent,
			MaxPurchasers: d.MaxPurchasers,
			StartsAt:      d.StartsAt,
			EndsAt:        d.EndsAt,
		})
	}
	return discounts, nil
}

// CreateProduct adds a product to the catalog.
func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		price, err := parsePrice(req.Price)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		category, err := enums.ParseProductCategory(req.Category)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		discounts, err := parseDiscounts(req.Discounts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		created, err := svc.CreateProduct(ctx, product.CreateProductInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         price,
			Category:      category,
			MaxPurchasers: req.MaxPurchasers,
			Discounts:     discounts,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(created))
	}
}

// ListProducts returns the catalog, filtered to purchasable items on demand.
func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		onlyAvailable := strings.EqualFold(r.URL.Query().Get("available"), "true")
		views, err := svc.ListProducts(ctx, onlyAvailable)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]ProductResponse, 0, len(views))
		for i := range views {
			out = append(out, toProductViewResponse(&views[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetProduct returns one product with its effective price resolved.
func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.GetProduct(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductViewResponse(view))
	}
}

// UpdateProduct mutates a catalog product.
func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input := product.UpdateProductInput{
			Name:          req.Name,
			Description:   req.Description,
			MaxPurchasers: req.MaxPurchasers,
		}
		if req.Price != nil {
			price, err := parsePrice(*req.Price)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input.Price = &price
		}
		if req.Category != nil {
			category, err := enums.ParseProductCategory(*req.Category)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}
		if req.Discounts != nil {
			discounts, err := parseDiscounts(*req.Discounts)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input.Discounts = &discounts
		}
		updated, err := svc.UpdateProduct(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(updated))
	}
}

// DeleteProduct removes a product from the catalog.
func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteProduct(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

func toProductViewResponse(view *product.ProductView) ProductResponse {
	resp := toProductResponse(&view.Product)
	resp.EffectivePrice = view.EffectivePrice.StringFixed(2)
	resp.EffectiveQuota = view.EffectiveQuota
	resp.SlotsLeft = view.SlotsLeft
	return resp
}
