package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/clips-backend/api/responses"
	"github.com/angelmondragon/clips-backend/api/validators"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

type planTermsRequest struct {
	PlanID          uuid.UUID        `json:"plan_id" validate:"required"`
	ValidityDays    *string          `json:"validity_days" validate:"omitempty,max=32"`
	MonthlyDuration *int             `json:"monthly_duration" validate:"omitempty,gte=1"`
	Price           *decimal.Decimal `json:"price" validate:"omitempty,money"`
}

// businessPlanRequest is the admin body shared by assignments and renewals.
type businessPlanRequest struct {
	BusinessID uuid.UUID `json:"business_id" validate:"required"`
	planTermsRequest
}

type refillRequest struct {
	BusinessID uuid.UUID       `json:"business_id" validate:"required"`
	Clip       int             `json:"clip" validate:"required,gte=1"`
	Price      decimal.Decimal `json:"price" validate:"money"`
}

type updatePaymentRequest struct {
	Status       string           `json:"status" validate:"required"`
	Price        *decimal.Decimal `json:"price" validate:"omitempty,money"`
	ValidityDays *string          `json:"validity_days" validate:"omitempty,max=32"`
}

type expiryPreviewResponse struct {
	ExpiryDate time.Time `json:"expiry_date"`
}

// BusinessActivePlan returns the caller's active ledger entry.
func BusinessActivePlan(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
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
		entry, err := svc.GetActive(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// AdminAssignPlan grants a plan directly. The entry starts with payment
// pending and clips are allocated once the payment is marked received.
func AdminAssignPlan(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		var req businessPlanRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.AssignPlan(r.Context(), ledger.AssignPlanInput{
			BusinessID:      req.BusinessID,
			PlanID:          req.PlanID,
			ValidityDays:    req.ValidityDays,
			MonthlyDuration: req.MonthlyDuration,
			Price:           req.Price,
			Actor:           actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// AdminRenewPlan restarts a business's plan once its previous window closed.
func AdminRenewPlan(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		var req businessPlanRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Renew(r.Context(), ledger.RenewInput{
			BusinessID:      req.BusinessID,
			PlanID:          req.PlanID,
			ValidityDays:    req.ValidityDays,
			MonthlyDuration: req.MonthlyDuration,
			Price:           req.Price,
			Actor:           actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func AdminRefill(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		var req refillRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refill, err := svc.Refill(r.Context(), ledger.RefillInput{
			BusinessID: req.BusinessID,
			Clip:       req.Clip,
			Price:      req.Price,
			Actor:      actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, refill)
	}
}

// AdminExpiryPreview reports when a top-up bought now for the business would
// expire.
func AdminExpiryPreview(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		businessID, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiry, err := svc.ExpiryPreview(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, expiryPreviewResponse{ExpiryDate: expiry})
	}
}

func AdminListPurchases(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.ListPurchases(r.Context(), ledger.ListPurchasesParams{
			Status:        strings.TrimSpace(q.Get("status")),
			PaymentStatus: strings.TrimSpace(q.Get("payment_status")),
			Pagination:    params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminGetPurchase(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		clipID, err := validators.ParseUUIDParam(r, "clipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.GetPurchase(r.Context(), clipID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// AdminUpdatePayment records a payment decision on a ledger entry.
func AdminUpdatePayment(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger"))
			return
		}
		clipID, err := validators.ParseUUIDParam(r, "clipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePaymentRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.UpdatePayment(r.Context(), ledger.UpdatePaymentInput{
			EntryID:      clipID,
			Status:       strings.TrimSpace(req.Status),
			Price:        req.Price,
			ValidityDays: req.ValidityDays,
			Actor:        actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}
