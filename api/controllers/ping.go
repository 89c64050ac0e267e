package controllers

import (
	"net/http"

	"github.com/angelmondragon/caseflow-backend/api/middleware"
	"github.com/angelmondragon/caseflow-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the caller identity resolved from the access token.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payload := map[string]string{
			"scope":     "private",
			"status":    "ok",
			"tenant_id": middleware.TenantIDFromContext(ctx),
			"role":      middleware.RoleFromContext(ctx),
		}
		if buyer := middleware.BuyerIDFromContext(ctx); buyer != "" {
			payload["buyer_id"] = buyer
		}
		responses.WriteSuccess(w, payload)
	}
}
