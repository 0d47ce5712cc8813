package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/api/responses"
	"github.com/angelmondragon/clips-backend/api/validators"
	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

type applyRequest struct {
	Message string `json:"message" validate:"required"`
}

// BusinessUsageHistory pages through the caller's clip usage.
func BusinessUsageHistory(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("usage"))
			return
		}
		businessID, err := businessFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listUsage(w, r, svc, logg, businessID)
	}
}

func AdminBusinessUsageHistory(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("usage"))
			return
		}
		businessID, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listUsage(w, r, svc, logg, businessID)
	}
}

func listUsage(w http.ResponseWriter, r *http.Request, svc UsageService, logg *logger.Logger, businessID uuid.UUID) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := svc.List(r.Context(), businessID, usage.ListParams{
		UsageType:  strings.TrimSpace(r.URL.Query().Get("usage_type")),
		Pagination: params,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, page)
}

// BusinessApplyToProject spends one clip to submit an offer on a project.
func BusinessApplyToProject(svc ConsumptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("consumption"))
			return
		}
		businessID, err := businessFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		projectID, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req applyRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Apply(r.Context(), consumption.ApplyInput{
			BusinessID: businessID,
			ProjectID:  projectID,
			Message:    strings.TrimSpace(req.Message),
			Actor:      actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
