package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	cart "github.com/calderonstudio/ranking-backend/internal/cart"
	checkout "github.com/calderonstudio/ranking-backend/internal/checkout"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/pagination"
)

type addCartLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// GetCart returns the customer's open cart, creating it on first access.
func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := svc.GetCart(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(c))
	}
}

// AddCartLine puts units of a product into the cart.
func AddCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req addCartLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := svc.AddLine(ctx, customerID, req.ProductID, req.Qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(c))
	}
}

// RemoveCartLine drops a product's line from the cart.
func RemoveCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := svc.RemoveLine(ctx, customerID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(c))
	}
}

// ClearCart removes every line from the cart.
func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := svc.ClearCart(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(c))
	}
}

type cartHistoryResponse struct {
	Carts      []CartResponse `json:"carts"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// CartHistory returns one cursor page of the customer's checked-out carts.
func CartHistory(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.History(ctx, customerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := cartHistoryResponse{Carts: make([]CartResponse, 0, len(page.Carts)), NextCursor: page.NextCursor}
		for i := range page.Carts {
			out.Carts = append(out.Carts, toCartResponse(&page.Carts[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// Checkout settles the customer's open cart.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		receipt, err := svc.Checkout(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}
