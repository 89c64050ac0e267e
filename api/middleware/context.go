package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxTenantID contextKey = "tenant_id"
	ctxBuyerID  contextKey = "buyer_id"
)

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func TenantIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxTenantID)
}

// BuyerIDFromContext is only set for buyer callers.
func BuyerIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxBuyerID)
}

// Caller is the parsed identity of the authenticated request.
type Caller struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	BuyerID  *uuid.UUID
	Role     string
}

// CallerFromContext parses the identity seeded by Auth. ok is false when any id is missing or malformed.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return Caller{}, false
	}
	tenantID, err := uuid.Parse(TenantIDFromContext(ctx))
	if err != nil {
		return Caller{}, false
	}
	caller := Caller{UserID: userID, TenantID: tenantID, Role: RoleFromContext(ctx)}
	if raw := BuyerIDFromContext(ctx); raw != "" {
		buyerID, err := uuid.Parse(raw)
		if err != nil {
			return Caller{}, false
		}
		caller.BuyerID = &buyerID
	}
	return caller, true
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithTenantID injects the tenant identifier into the context for downstream handlers.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTenantID, tenantID)
}

// WithBuyerID injects the buyer identifier into the context.
func WithBuyerID(ctx context.Context, buyerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBuyerID, buyerID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
