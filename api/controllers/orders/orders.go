package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/caseflow-backend/api/middleware"
	"github.com/angelmondragon/caseflow-backend/api/responses"
	"github.com/angelmondragon/caseflow-backend/api/validators"
	internalorders "github.com/angelmondragon/caseflow-backend/internal/orders"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

const maxBuyerNoteLength = 1000

type createLineRequest struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	Granularity string `json:"granularity" validate:"required,oneof=unit case"`
	Quantity    int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type createOrderRequest struct {
	BuyerID              string              `json:"buyer_id" validate:"omitempty,uuid"`
	Lines                []createLineRequest `json:"lines" validate:"required,min=1,dive"`
	BuyerNote            *string             `json:"buyer_note" validate:"omitempty,max=1000"`
	Source               string              `json:"source" validate:"omitempty,oneof=buyer_portal distributor_portal api"`
	AllowCatalogRecovery *bool               `json:"allow_catalog_recovery"`
}

// Create submits a cart as an order. Buyers always order for themselves; distributor staff
// must name the buyer.
func Create(svc internalorders.Service, defaultRecovery bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		buyerID, err := resolveBuyer(caller, body.BuyerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			TenantID:             caller.TenantID,
			BuyerID:              buyerID,
			Lines:                make([]internalorders.LineRequest, 0, len(body.Lines)),
			ActorID:              caller.UserID,
			ActorRole:            enums.ActorRole(caller.Role),
			Source:               enums.OrderSource(body.Source),
			BuyerNote:            sanitizeNote(body.BuyerNote),
			AllowCatalogRecovery: defaultRecovery,
		}
		if body.AllowCatalogRecovery != nil {
			input.AllowCatalogRecovery = *body.AllowCatalogRecovery
		}
		for _, line := range body.Lines {
			granularity, err := enums.ParseGranularity(line.Granularity)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid granularity"))
				return
			}
			input.Lines = append(input.Lines, internalorders.LineRequest{
				ProductID:   uuid.MustParse(line.ProductID),
				Granularity: granularity,
				Quantity:    line.Quantity,
			})
		}

		result, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Detail returns the order header with its snapshot lines.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var scope *uuid.UUID
		if enums.ActorRole(caller.Role) == enums.ActorRoleBuyer {
			scope = caller.BuyerID
		}

		detail, err := svc.GetOrder(ctx, caller.TenantID, orderID, scope)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type previewRequest struct {
	BuyerID    string   `json:"buyer_id" validate:"omitempty,uuid"`
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,uuid"`
}

// PreviewPrices shows the effective unit and case prices a buyer would be charged.
func PreviewPrices(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		var body previewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var buyerID uuid.UUID
		if enums.ActorRole(caller.Role) == enums.ActorRoleBuyer || body.BuyerID != "" {
			resolved, err := resolveBuyer(caller, body.BuyerID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			buyerID = resolved
		}

		ids := make([]uuid.UUID, 0, len(body.ProductIDs))
		for _, raw := range body.ProductIDs {
			ids = append(ids, uuid.MustParse(raw))
		}

		previews, err := svc.PreviewPrices(ctx, internalorders.PreviewPricesInput{
			TenantID:   caller.TenantID,
			BuyerID:    buyerID,
			ProductIDs: ids,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": previews})
	}
}

func sanitizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*note, maxBuyerNoteLength)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// resolveBuyer pins buyer callers to their own id and requires distributors to name one.
func resolveBuyer(caller middleware.Caller, requested string) (uuid.UUID, error) {
	requested = strings.TrimSpace(requested)
	if enums.ActorRole(caller.Role) == enums.ActorRoleBuyer {
		if caller.BuyerID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer context missing")
		}
		if requested != "" && requested != caller.BuyerID.String() {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers may only act for themselves")
		}
		return *caller.BuyerID, nil
	}
	if requested == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer_id is required").WithDetails(map[string]string{"buyer_id": "is required"})
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer id")
	}
	return id, nil
}
