// Package api exposes a Gate and its decision log over HTTP.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gate"
	"github.com/xraph/gate/decisionlog"
)

// API wires all gate HTTP handlers together.
type API struct {
	g      *gate.Gate
	logs   decisionlog.Store
	router forge.Router
}

// New creates an API from a Gate, an optional decision log store and a
// Forge router. Without a store the decision routes are not registered.
func New(g *gate.Gate, logs decisionlog.Store, router forge.Router) *API {
	return &API{g: g, logs: logs, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("gate: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerGateRoutes,
	}
	if a.logs != nil {
		registerers = append(registerers, a.registerDecisionRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
