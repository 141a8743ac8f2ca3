package controllers

import (
	"net/http"
	"time"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	season "github.com/calderonstudio/ranking-backend/internal/seasons"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type createSeasonRequest struct {
	Name     string    `json:"name" validate:"required,min=1,max=120"`
	StartsOn time.Time `json:"startsOn" validate:"required"`
	EndsOn   time.Time `json:"endsOn" validate:"required"`
}

// CreateSeason registers a new season. It comes back active when its window
// already contains today and nothing else holds the active slot.
func CreateSeason(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createSeasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		created, err := svc.CreateSeason(ctx, season.CreateSeasonInput{
			Name:     req.Name,
			StartsOn: req.StartsOn,
			EndsOn:   req.EndsOn,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSeasonResponse(created))
	}
}

// ListSeasons returns every season, newest window first.
func ListSeasons(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		seasons, err := svc.ListSeasons(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]SeasonResponse, 0, len(seasons))
		for i := range seasons {
			out = append(out, toSeasonResponse(&seasons[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetSeason returns one season.
func GetSeason(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		found, err := svc.GetSeason(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSeasonResponse(found))
	}
}

// DeleteSeason removes a season that has not started.
func DeleteSeason(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteSeason(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// ActiveSeason returns the season currently open for scoring.
func ActiveSeason(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		active, err := svc.ActiveSeason(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSeasonResponse(active))
	}
}

// AwardSeasonBadges grants the podium badges for a season's final standings.
func AwardSeasonBadges(svc season.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		awards, err := svc.AwardTerminalBadges(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"awards": awards})
	}
}
