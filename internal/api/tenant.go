package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

// Headers set by the authentication gateway in front of this service.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
	HeaderRole      = "X-User-Role"
)

// RolePlatformAdmin may manage global templates.
const RolePlatformAdmin = "platform_admin"

type tenantKey struct{}

// Tenant is the caller identity resolved by the auth collaborator.
type Tenant struct {
	CompanyID string
	UserID    string
	Role      string
}

// Actor converts the tenant to a template service actor.
func (t Tenant) Actor() tmpl.Actor {
	return tmpl.Actor{CompanyID: t.CompanyID, UserID: t.UserID, Platform: t.Role == RolePlatformAdmin}
}

// RequireTenant rejects requests without a company context and stores the
// Tenant for handlers.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := Tenant{
			CompanyID: strings.TrimSpace(r.Header.Get(HeaderCompanyID)),
			UserID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:      strings.TrimSpace(r.Header.Get(HeaderRole)),
		}
		if t.CompanyID == "" {
			httputil.Error(w, http.StatusUnauthorized, "Company context is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, t)))
	})
}

// TenantFromContext returns the tenant stored by RequireTenant.
func TenantFromContext(ctx context.Context) Tenant {
	t, _ := ctx.Value(tenantKey{}).(Tenant)
	return t
}
