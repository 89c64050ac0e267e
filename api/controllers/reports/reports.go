package reports

import (
	"net/http"

	"github.com/angelmondragon/caseflow-backend/api/middleware"
	"github.com/angelmondragon/caseflow-backend/api/responses"
	"github.com/angelmondragon/caseflow-backend/api/validators"
	"github.com/angelmondragon/caseflow-backend/internal/reporting"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

// Profitability serves revenue, cost and margin for the requested window.
func Profitability(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}
		filter, err := parseFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		report, err := svc.Profitability(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// SalesMix serves the case versus unit split per product.
func SalesMix(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}
		filter, err := parseFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		report, err := svc.SalesMix(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func parseFilter(r *http.Request) (reporting.ReportFilter, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return reporting.ReportFilter{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing")
	}
	from, err := validators.ParseQueryTime(r, "from", true)
	if err != nil {
		return reporting.ReportFilter{}, err
	}
	to, err := validators.ParseQueryTime(r, "to", true)
	if err != nil {
		return reporting.ReportFilter{}, err
	}
	buyerID, err := validators.ParseQueryUUID(r, "buyer_id")
	if err != nil {
		return reporting.ReportFilter{}, err
	}
	productID, err := validators.ParseQueryUUID(r, "product_id")
	if err != nil {
		return reporting.ReportFilter{}, err
	}
	groupBy, err := reporting.ParseGroupKey(r.URL.Query().Get("group_by"))
	if err != nil {
		return reporting.ReportFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group_by").WithDetails(map[string]any{"field": "group_by"})
	}

	if enums.ActorRole(caller.Role) == enums.ActorRoleBuyer {
		if caller.BuyerID == nil || (buyerID != nil && *buyerID != *caller.BuyerID) {
			return reporting.ReportFilter{}, pkgerrors.New(pkgerrors.CodeForbidden, "buyers may only report on their own purchases")
		}
		buyerID = caller.BuyerID
	}

	return reporting.ReportFilter{
		TenantID:  caller.TenantID,
		From:      from,
		To:        to,
		BuyerID:   buyerID,
		ProductID: productID,
		GroupBy:   groupBy,
	}, nil
}
