package controllers

import (
	"net/http"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	customer "github.com/calderonstudio/ranking-backend/internal/customers"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type registerCustomerRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Email string `json:"email" validate:"required,email"`
}

type creditPointsRequest struct {
	Points int `json:"points" validate:"required,min=1"`
}

// RegisterCustomer creates a new customer account.
func RegisterCustomer(svc customer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req registerCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		created, err := svc.Register(ctx, customer.RegisterInput{Name: req.Name, Email: req.Email})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toCustomerResponse(created))
	}
}

// GetCustomer returns one customer.
func GetCustomer(svc customer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		found, err := svc.GetCustomer(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCustomerResponse(found))
	}
}

// ListCustomers returns customers ordered by lifetime points.
func ListCustomers(svc customer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		customers, err := svc.ListCustomers(ctx, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]CustomerResponse, 0, len(customers))
		for i := range customers {
			out = append(out, toCustomerResponse(&customers[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// CreditPoints adds loyalty points to a customer.
func CreditPoints(svc customer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req creditPointsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.CreditPoints(ctx, id, req.Points)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"customerId":    result.CustomerID,
			"pointsApplied": result.PointsApplied,
			"bonusApplied":  result.BonusApplied,
			"generalPoints": result.GeneralPoints,
		})
	}
}

// ListCustomerBadges returns the badges a customer holds.
func ListCustomerBadges(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		grants, err := svc.ListCustomerBadges(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCustomerBadgeResponses(grants))
	}
}

// AwardCustomerBadges grants any ladder badges the customer now qualifies for.
func AwardCustomerBadges(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		granted, err := svc.AwardEligible(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"granted": granted})
	}
}
