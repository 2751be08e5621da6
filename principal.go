package gate

import "slices"

// Principal is a generic actor for callers that only know an identifier,
// such as the HTTP API and middleware. Policies can type-assert *Principal
// to read roles and attributes.
type Principal struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Identity implements Identifier as "kind:id", or just the ID.
func (p *Principal) Identity() string {
	if p.Kind == "" {
		return p.ID
	}
	return p.Kind + ":" + p.ID
}

// HasRole reports whether the principal carries role.
func (p *Principal) HasRole(role string) bool { return slices.Contains(p.Roles, role) }

// Resource is a generic subject identified by type and ID.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Identity implements Identifier as "type:id", or just the type.
func (r *Resource) Identity() string {
	if r.ID == "" {
		return r.Type
	}
	return r.Type + ":" + r.ID
}
