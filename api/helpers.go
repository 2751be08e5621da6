package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/gate"
	"github.com/xraph/gate/decisionlog"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, decisionlog.ErrNotFound) || errors.Is(err, gate.ErrPolicyNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, gate.ErrInvalidAbility) || errors.Is(err, gate.ErrInvalidPolicy) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, gate.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
