package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/tenant"
	"peopleops/internal/transport/http/api"
)

// ResolveTenant maps the authenticated user's tenant to a live partition
// handle. Routes behind it can assume GetHandle succeeds.
func ResolveTenant(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			handle, err := resolver.Resolve(r.Context(), user.TenantID)
			if err != nil {
				failTenant(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyHandle, handle)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveTenantCode resolves the tenant from the {tenantCode} URL segment.
// Used by the public career site, which carries no authentication.
func ResolveTenantCode(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := chi.URLParam(r, "tenantCode")
			handle, err := resolver.ResolveCode(r.Context(), code)
			if err != nil {
				failTenant(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyHandle, handle)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func failTenant(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrTenantNotFound) {
		api.Fail(w, http.StatusNotFound, "tenant_not_found", "tenant not found", GetRequestID(r.Context()))
		return
	}
	api.Fail(w, http.StatusInternalServerError, "tenant_resolve_failed", "failed to resolve tenant", GetRequestID(r.Context()))
}

func GetHandle(ctx context.Context) (*tenant.Handle, bool) {
	handle, ok := ctx.Value(ctxKeyHandle).(*tenant.Handle)
	return handle, ok
}

// WithHandle attaches a partition handle directly. Handler tests use it
// to bypass the resolver.
func WithHandle(ctx context.Context, handle *tenant.Handle) context.Context {
	return context.WithValue(ctx, ctxKeyHandle, handle)
}
