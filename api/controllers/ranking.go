package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/calderonstudio/ranking-backend/api/responses"
	"github.com/calderonstudio/ranking-backend/api/validators"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type rankingResponse struct {
	Season  SeasonResponse         `json:"season"`
	Entries []score.RankedCustomer `json:"entries"`
}

// Ranking returns the leaderboard for a season, defaulting to the active one.
func Ranking(svc score.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var seasonID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("seasonId")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid season id"))
				return
			}
			seasonID = &id
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Ranking(ctx, seasonID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rankingResponse{
			Season:  toSeasonResponse(result.Season),
			Entries: result.Entries,
		})
	}
}
