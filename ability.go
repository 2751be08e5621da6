package gate

import (
	"fmt"
	"strings"
)

// AbilitySeparator splits a policy name from an action name.
const AbilitySeparator = "."

// ParseAbility splits an ability into its policy and action names.
//
//	"post.edit" -> ("post", "edit")
//	"view"      -> ("view", "view")
//
// Empty segments and more than one separator are rejected with
// ErrInvalidAbility.
func ParseAbility(ability string) (policyName, action string, err error) {
	parts := strings.Split(ability, AbilitySeparator)
	switch len(parts) {
	case 1:
		policyName, action = parts[0], parts[0]
	case 2:
		policyName, action = parts[0], parts[1]
	default:
		return "", "", fmt.Errorf("%w: %q has more than one %q", ErrInvalidAbility, ability, AbilitySeparator)
	}
	if policyName == "" || action == "" {
		return "", "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidAbility, ability)
	}
	return policyName, action, nil
}

// JoinAbility builds an ability from its segments, e.g.
// JoinAbility("post", "edit") == "post.edit".
func JoinAbility(parts ...string) string {
	return strings.Join(parts, AbilitySeparator)
}

func validPolicyName(name string) error {
	if strings.Contains(name, AbilitySeparator) {
		return fmt.Errorf("%w: policy name %q contains %q", ErrInvalidAbility, name, AbilitySeparator)
	}
	return nil
}
