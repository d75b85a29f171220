// Package resolver computes the context override an operation category needs
// before it can run on the host. Resolution is read-only: it inspects host
// state, it never mutates it.
package resolver

import (
	"fmt"

	"github.com/aretw0/maquette/pkg/domain"
)

// Resolver resolves operation categories against a host state snapshot.
type Resolver struct {
	rules   map[string]Rule
	version int
}

// New builds a Resolver from a rule set.
func New(rs RuleSet) *Resolver {
	rules := make(map[string]Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		rules[r.Category] = r
	}
	return &Resolver{rules: rules, version: rs.Version}
}

// NewDefault builds a Resolver with the baked-in rule table.
func NewDefault() *Resolver {
	return New(DefaultRules())
}

// Version returns the rule table version, for diagnostics.
func (r *Resolver) Version() int {
	return r.version
}

// Known reports whether a category has a rule.
func (r *Resolver) Known(category string) bool {
	_, ok := r.rules[category]
	return ok
}

// Resolve computes the override for one attempt. Unknown categories resolve
// to no override: execution proceeds best effort. A known category whose
// requirements cannot be met by the current host state returns
// domain.ErrUnresolvedContext. The result is computed fresh from the given
// snapshot; nothing is cached between attempts.
func (r *Resolver) Resolve(category string, state *domain.HostState) (*domain.ContextOverride, error) {
	rule, ok := r.rules[category]
	if !ok {
		return nil, nil
	}

	if rule.Region != "" && !state.HasRegion(rule.Region) {
		return nil, fmt.Errorf("category %q needs an open %s region: %w", category, rule.Region, domain.ErrUnresolvedContext)
	}
	if rule.NeedsSelection && (state == nil || len(state.Selection) == 0) {
		return nil, fmt.Errorf("category %q needs a selection: %w", category, domain.ErrUnresolvedContext)
	}

	override := &domain.ContextOverride{
		Region: rule.Region,
		Mode:   rule.Mode,
	}
	if rule.NeedsSelection {
		override.Selection = append([]string(nil), state.Selection...)
	}
	if len(rule.Params) > 0 {
		override.Params = make(map[string]any, len(rule.Params))
		for k, v := range rule.Params {
			override.Params[k] = v
		}
	}
	return override, nil
}
