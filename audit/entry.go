package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/gate"
	"github.com/xraph/gate/decisionlog"
)

// NewEntry converts a finished decision into a log entry scoped to the
// tenant found in ctx.
func NewEntry(ctx context.Context, d *gate.Decision, checkErr error) *decisionlog.Entry {
	scope := gate.ScopeFromContext(ctx)

	outcome := decisionlog.Deny
	if d.Passed() && checkErr == nil {
		outcome = decisionlog.Allow
	}

	var params []string
	for _, p := range d.Params() {
		params = append(params, fmt.Sprint(p))
	}

	e := &decisionlog.Entry{
		ID:         d.ID(),
		TenantID:   scope.TenantID,
		AppID:      scope.AppID,
		Actor:      gate.Identify(d.Actor()),
		Ability:    d.Ability(),
		Policy:     d.Policy(),
		Action:     d.Action(),
		Subject:    gate.Identify(d.Subject()),
		Decision:   outcome,
		Complete:   d.Complete(),
		Message:    d.Message(),
		Params:     params,
		EvalTimeNs: d.EvalTime().Nanoseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if checkErr != nil {
		e.Error = checkErr.Error()
	}
	return e
}
