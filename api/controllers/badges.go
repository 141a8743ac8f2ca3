package controllers

import (
	"net/http"
	"time"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type createBadgeRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=120"`
	Requirements string     `json:"requirements" validate:"required,min=1"`
	ValidFrom    *time.Time `json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil"`
}

type updateBadgeRequest struct {
	Name         *string    `json:"name" validate:"omitempty,min=1,max=120"`
	Requirements *string    `json:"requirements" validate:"omitempty,min=1"`
	ValidFrom    *time.Time `json:"validFrom"`
	ValidUntil   *time.Time `json:"validUntil"`
}

// CreateBadge adds a badge to the catalog.
func CreateBadge(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createBadgeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		created, err := svc.CreateBadge(ctx, badge.CreateBadgeInput{
			Name:         req.Name,
			Requirements: req.Requirements,
			ValidFrom:    req.ValidFrom,
			ValidUntil:   req.ValidUntil,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toBadgeResponse(created))
	}
}

// ListBadges returns the badge catalog.
func ListBadges(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		badges, err := svc.ListBadges(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]BadgeResponse, 0, len(badges))
		for i := range badges {
			out = append(out, toBadgeResponse(&badges[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetBadge returns one catalog badge.
func GetBadge(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "badgeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		found, err := svc.GetBadge(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBadgeResponse(found))
	}
}

// UpdateBadge mutates a catalog badge.
func UpdateBadge(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "badgeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req updateBadgeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		updated, err := svc.UpdateBadge(ctx, id, badge.UpdateBadgeInput{
			Name:         req.Name,
			Requirements: req.Requirements,
			ValidFrom:    req.ValidFrom,
			ValidUntil:   req.ValidUntil,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBadgeResponse(updated))
	}
}

// DeleteBadge removes a catalog badge and its grants.
func DeleteBadge(svc badge.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "badgeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteBadge(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
