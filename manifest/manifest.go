// Package manifest defines gate policies declaratively in YAML.
//
// A manifest lists policies, each with the roles allowed to perform every
// action and an optional set of super roles that pass any action:
//
//	policies:
//	  - name: post
//	    super: [admin]
//	    actions:
//	      view:
//	        anyone: true
//	      edit:
//	        roles: [editor, author]
//	        deny: post.not_editor
//
// Actors are matched through RoleHolder. Actors that do not implement it
// hold no roles.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/xraph/gate"
)

// Message keys produced by manifest policies.
const (
	MessageSuperRole = "auth.gate_superRole"
	MessageRole      = "auth.gate_role"
	MessageNoRole    = "auth.gate_missingRole"
)

// ErrInvalidManifest is returned for a manifest that cannot be applied.
var ErrInvalidManifest = errors.New("manifest: invalid manifest")

// RoleHolder is implemented by actors that carry roles.
type RoleHolder interface {
	HasRole(role string) bool
}

// Manifest is the root document.
type Manifest struct {
	Policies []Policy `yaml:"policies"`
}

// Policy describes one gate policy.
type Policy struct {
	Name    string          `yaml:"name"`
	Super   []string        `yaml:"super,omitempty"`
	Actions map[string]Rule `yaml:"actions"`
}

// Rule describes who may perform a single action.
type Rule struct {
	// Anyone passes every actor, including nil.
	Anyone bool `yaml:"anyone,omitempty"`

	// Roles pass an actor holding at least one of them.
	Roles []string `yaml:"roles,omitempty"`

	// Allow and Deny override the message keys of the decision.
	Allow string `yaml:"allow,omitempty"`
	Deny  string `yaml:"deny,omitempty"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest read: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest unmarshal: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and rules.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Policies))
	for i, p := range m.Policies {
		if p.Name == "" {
			return fmt.Errorf("%w: policy #%d has no name", ErrInvalidManifest, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: policy %q declared twice", ErrInvalidManifest, p.Name)
		}
		seen[p.Name] = true
		if len(p.Actions) == 0 {
			return fmt.Errorf("%w: policy %q has no actions", ErrInvalidManifest, p.Name)
		}
		for action, r := range p.Actions {
			if _, _, err := gate.ParseAbility(gate.JoinAbility(p.Name, action)); err != nil {
				return fmt.Errorf("%w: policy %q action %q: %w", ErrInvalidManifest, p.Name, action, err)
			}
			if !r.Anyone && len(r.Roles) == 0 {
				return fmt.Errorf("%w: policy %q action %q allows nobody", ErrInvalidManifest, p.Name, action)
			}
		}
	}
	return nil
}

// Apply defines every manifest policy on g, replacing policies of the same
// name.
func (m *Manifest) Apply(g *gate.Gate) error {
	for _, p := range m.Policies {
		if err := g.Define(p.Name, gate.Instance(p.Build())); err != nil {
			return err
		}
	}
	return nil
}

// Build turns the description into a gate.Policy.
func (p Policy) Build() gate.Policy {
	rp := &rolePolicy{
		Base:  gate.NewBase(p.Name, p),
		super: append([]string(nil), p.Super...),
	}
	actions := make([]string, 0, len(p.Actions))
	for a := range p.Actions {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, a := range actions {
		rp.Handle(a, ruleOperation(p.Actions[a]))
	}
	return rp
}

type rolePolicy struct {
	gate.Base
	super []string
}

// Before passes actors holding a super role.
func (p *rolePolicy) Before(_ context.Context, d *gate.Decision, actor any, _ string, _ any) error {
	if role, ok := firstRole(actor, p.super); ok {
		d.Pass(MessageSuperRole, role)
	}
	return nil
}

func ruleOperation(r Rule) gate.Operation {
	roles := append([]string(nil), r.Roles...)
	return func(_ context.Context, d *gate.Decision, actor any, _ string, _ any) error {
		if r.Anyone {
			d.Pass(r.Allow)
			return nil
		}
		if role, ok := firstRole(actor, roles); ok {
			key := r.Allow
			if key == "" {
				key = MessageRole
			}
			d.Pass(key, role)
			return nil
		}
		key := r.Deny
		if key == "" {
			key = MessageNoRole
		}
		d.Fail(key, d.Action())
		return nil
	}
}

func firstRole(actor any, roles []string) (string, bool) {
	h, ok := actor.(RoleHolder)
	if !ok {
		return "", false
	}
	for _, r := range roles {
		if h.HasRole(r) {
			return r, true
		}
	}
	return "", false
}
