package gate

import (
	"context"

	"github.com/xraph/forge"
)

// Scope identifies the app and tenant an evaluation ran for.
type Scope struct {
	AppID    string
	TenantID string
}

// ScopeFromContext extracts the tenant scope from forge.Scope, falling back
// to the IDs set by WithTenant (standalone mode).
func ScopeFromContext(ctx context.Context) Scope {
	s, ok := forge.ScopeFrom(ctx)
	if ok {
		return Scope{
			AppID:    s.AppID(),
			TenantID: s.OrgID(),
		}
	}
	return Scope{
		AppID:    appIDFromContext(ctx),
		TenantID: tenantIDFromContext(ctx),
	}
}
