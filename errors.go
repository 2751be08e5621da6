package gate

import "errors"

var (
	// ErrAccessDenied is returned by Enforce when a decision does not pass.
	ErrAccessDenied = errors.New("gate: access denied")

	// ErrPolicyNotFound is returned when a policy is not registered.
	ErrPolicyNotFound = errors.New("gate: policy not found")

	// ErrInvalidPolicy is returned when a registration source does not
	// produce a value satisfying the Policy contract.
	ErrInvalidPolicy = errors.New("gate: invalid policy")

	// ErrUnsupportedSource is returned when Define receives a value that is
	// not one of the supported registration shapes.
	ErrUnsupportedSource = errors.New("gate: unsupported policy source")

	// ErrInvalidAbility is returned when an ability string or policy name
	// does not follow the "policy" or "policy.action" grammar.
	ErrInvalidAbility = errors.New("gate: invalid ability")
)
