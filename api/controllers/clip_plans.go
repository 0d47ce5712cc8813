package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/clips-backend/api/responses"
	"github.com/angelmondragon/clips-backend/api/validators"
	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const maxPlanDescriptionLength = 2000

type createPlanRequest struct {
	PackageName        string          `json:"package_name" validate:"required,max=120"`
	PackageDescription string          `json:"package_description" validate:"max=2000"`
	Price              decimal.Decimal `json:"price" validate:"money"`
	TotalClips         *int            `json:"total_clips" validate:"omitempty,gte=1"`
	ValidityDays       string          `json:"validity_days" validate:"required,max=32"`
	MonthlyDuration    int             `json:"monthly_duration" validate:"required,gte=1"`
}

type updatePlanRequest struct {
	PackageName        *string          `json:"package_name" validate:"omitempty,max=120"`
	PackageDescription *string          `json:"package_description" validate:"omitempty,max=2000"`
	Price              *decimal.Decimal `json:"price" validate:"omitempty,money"`
	TotalClips         *int             `json:"total_clips" validate:"omitempty,gte=1"`
	ValidityDays       *string          `json:"validity_days" validate:"omitempty,max=32"`
	MonthlyDuration    *int             `json:"monthly_duration" validate:"omitempty,gte=1"`
}

// BusinessListPlans lists the catalog with the caller's request status per plan.
func BusinessListPlans(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		businessID, err := businessFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPlans(r.Context(), &businessID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetPlan returns one catalog plan. It serves both the business and admin routes.
func GetPlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.GetPlan(r.Context(), planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

// BusinessRequestPlan opens a pending ledger entry for the chosen plan.
func BusinessRequestPlan(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		businessID, err := businessFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.RequestPlan(r.Context(), businessID, planID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func AdminListPlans(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPlans(r.Context(), nil, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminCreatePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		var req createPlanRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.CreatePlan(r.Context(), catalog.CreatePlanInput{
			PackageName:        validators.SanitizeString(req.PackageName, 120),
			PackageDescription: validators.SanitizeString(req.PackageDescription, maxPlanDescriptionLength),
			Price:              req.Price,
			TotalClips:         req.TotalClips,
			ValidityDays:       req.ValidityDays,
			MonthlyDuration:    req.MonthlyDuration,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

func AdminUpdatePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePlanRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := catalog.UpdatePlanInput{
			Price:           req.Price,
			TotalClips:      req.TotalClips,
			ValidityDays:    req.ValidityDays,
			MonthlyDuration: req.MonthlyDuration,
		}
		if req.PackageName != nil {
			name := validators.SanitizeString(*req.PackageName, 120)
			input.PackageName = &name
		}
		if req.PackageDescription != nil {
			desc := validators.SanitizeString(*req.PackageDescription, maxPlanDescriptionLength)
			input.PackageDescription = &desc
		}
		plan, err := svc.UpdatePlan(r.Context(), planID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

func AdminDeletePlan(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePlan(r.Context(), planID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
