// Package middleware provides forge middleware that guards routes with a
// gate ability.
package middleware

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gate"
)

// Resolver extracts an actor or a subject from the request.
type Resolver func(ctx forge.Context) any

type options struct {
	actor   Resolver
	subject Resolver
}

// Option configures a guard.
type Option func(*options)

// WithActor replaces the default actor resolver.
func WithActor(r Resolver) Option { return func(o *options) { o.actor = r } }

// WithSubject sets how the subject is resolved. By default there is none.
func WithSubject(r Resolver) Option { return func(o *options) { o.subject = r } }

// WithResourceParam resolves the subject as a gate.Resource of the given
// type identified by a route parameter.
func WithResourceParam(resourceType, param string) Option {
	return WithSubject(func(ctx forge.Context) any {
		return &gate.Resource{Type: resourceType, ID: ctx.Param(param)}
	})
}

func newOptions(opts []Option) *options {
	o := &options{actor: ResolveUser, subject: func(forge.Context) any { return nil }}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Require lets the request through only when the ability passes. Denials
// and evaluation errors answer 403 with the decision's message key.
func Require(g *gate.Gate, ability string, opts ...Option) forge.Middleware {
	o := newOptions(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			d, err := g.Allows(ctx.Context(), o.actor(ctx), ability, o.subject(ctx))
			if err != nil || !d.Passed() {
				return deny(ctx, d)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the abilities pass.
func RequireAny(g *gate.Gate, abilities []string, opts ...Option) forge.Middleware {
	o := newOptions(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, subject := o.actor(ctx), o.subject(ctx)
			var last *gate.Decision
			for _, ability := range abilities {
				d, err := g.Allows(ctx.Context(), actor, ability, subject)
				if err == nil && d.Passed() {
					return next(ctx)
				}
				last = d
			}
			return deny(ctx, last)
		}
	}
}

// RequireAll allows the request only if ALL abilities pass.
func RequireAll(g *gate.Gate, abilities []string, opts ...Option) forge.Middleware {
	o := newOptions(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, subject := o.actor(ctx), o.subject(ctx)
			for _, ability := range abilities {
				d, err := g.Allows(ctx.Context(), actor, ability, subject)
				if err != nil || !d.Passed() {
					return deny(ctx, d)
				}
			}
			return next(ctx)
		}
	}
}

// ResolveUser returns the Forge user as a gate.Principal, or nil for an
// anonymous request.
func ResolveUser(ctx forge.Context) any {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return &gate.Principal{ID: userID, Kind: "user"}
	}
	return nil
}

// DenyBody is the JSON body written on 403.
type DenyBody struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Params   []any  `json:"params,omitempty"`
	Decision string `json:"decision_id,omitempty"`
}

func denyBody(d *gate.Decision) DenyBody {
	body := DenyBody{Error: "access denied"}
	if d != nil {
		body.Message = d.Message()
		body.Params = d.Params()
		body.Decision = d.ID().String()
	}
	return body
}

// Evaluation errors are not echoed to the client.
func deny(ctx forge.Context, d *gate.Decision) error {
	return ctx.JSON(http.StatusForbidden, denyBody(d))
}
