package gate

import "context"

type contextKey int

const (
	ctxKeyAppID contextKey = iota
	ctxKeyTenantID
	ctxKeyServices
)

// WithTenant returns a context with the given app and tenant IDs.
// Use this for standalone mode (without Forge). The IDs scope audit
// records; they never influence a decision.
func WithTenant(ctx context.Context, appID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyAppID, appID)
	ctx = context.WithValue(ctx, ctxKeyTenantID, tenantID)
	return ctx
}

func appIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyAppID).(string)
	if !ok {
		return ""
	}
	return v
}

func tenantIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyTenantID).(string)
	if !ok {
		return ""
	}
	return v
}

func withServices(ctx context.Context, s Services) context.Context {
	if len(s) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyServices, s)
}

// ServicesFrom returns the service bundle the Gate threads into every
// policy call. It is never nil.
func ServicesFrom(ctx context.Context) Services {
	s, ok := ctx.Value(ctxKeyServices).(Services)
	if !ok {
		return Services{}
	}
	return s
}
