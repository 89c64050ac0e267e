package middleware

import (
	"net/http"

	"github.com/angelmondragon/caseflow-backend/api/responses"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/caseflow-backend/pkg/errors"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
)

// RequireRoles rejects callers whose role is not in the allowed set.
func RequireRoles(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if len(allowed) == 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allowed roles missing"))
				return
			}
			role := enums.ActorRole(RoleFromContext(ctx))
			for _, candidate := range allowed {
				if candidate == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed"))
		})
	}
}
