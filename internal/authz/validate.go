package authz

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks the catalog invariants: the hierarchy is acyclic and refers
// only to known roles, admin designations are known roles, and every role
// resolves to a non-empty effective permission set. A failure here is a
// configuration error; the process must refuse to serve.
func (c *Catalog) Validate() error {
	var errs []error

	for role, subs := range c.subsumes {
		if !c.Knows(role) {
			errs = append(errs, fmt.Errorf("authz: hierarchy entry for unknown role %q", role))
		}
		for _, sub := range subs {
			if !c.Knows(sub) {
				errs = append(errs, fmt.Errorf("authz: role %q subsumes unknown role %q", role, sub))
			}
		}
	}
	for role := range c.admin {
		if !c.Knows(role) {
			errs = append(errs, fmt.Errorf("authz: admin designation for unknown role %q", role))
		}
	}

	for _, role := range c.AllRoles() {
		if err := c.checkAcyclic(role, make(map[Role]int), 0); err != nil {
			errs = append(errs, err)
			break
		}
	}

	resolver := NewResolver(c, nil)
	for _, role := range c.AllRoles() {
		if c.IsSuperAdminRole(role) {
			continue
		}
		if len(resolver.Permissions([]Role{role})) == 0 {
			errs = append(errs, fmt.Errorf("authz: role %q resolves to an empty permission set", role))
		}
	}

	return errors.Join(errs...)
}

const (
	visitInProgress = 1
	visitDone       = 2
)

func (c *Catalog) checkAcyclic(role Role, state map[Role]int, depth int) error {
	if depth > MaxHierarchyDepth {
		return fmt.Errorf("authz: hierarchy exceeds max depth %d at role %q", MaxHierarchyDepth, role)
	}
	switch state[role] {
	case visitInProgress:
		return fmt.Errorf("authz: hierarchy cycle through role %q", role)
	case visitDone:
		return nil
	}
	state[role] = visitInProgress
	for _, sub := range c.subsumes[role] {
		if err := c.checkAcyclic(sub, state, depth+1); err != nil {
			return err
		}
	}
	state[role] = visitDone
	return nil
}

// Validate checks that every chain rule names a known category, a known
// property type, and a non-empty approver list of roles the catalog knows.
// An action category with no possible approver is a configuration error, not
// a runtime deny-all.
func (a *ApprovalChains) Validate(catalog *Catalog) error {
	var errs []error
	if len(a.rules) == 0 {
		errs = append(errs, errors.New("authz: no approval chains configured"))
	}
	for i, rule := range a.rules {
		if rule.Category == "" {
			errs = append(errs, fmt.Errorf("authz: approval rule %d has no category", i))
		}
		if len(rule.Approvers) == 0 {
			errs = append(errs, fmt.Errorf("authz: approval rule %d (%s) has no approvers", i, rule.Category))
		}
		for _, role := range rule.Approvers {
			if !catalog.Knows(role) {
				errs = append(errs, fmt.Errorf("authz: approval rule %d (%s) names unknown role %q", i, rule.Category, role))
			}
		}
		if rule.MaxAmountCents < 0 {
			errs = append(errs, fmt.Errorf("authz: approval rule %d (%s) has negative amount cap", i, rule.Category))
		}
	}
	return errors.Join(errs...)
}

// Validate checks that SLA entries name known roles and priorities, and that
// for each role a higher priority never maps to a longer response window than
// a lower one.
func (p *SLAPolicy) Validate(catalog *Catalog) error {
	var errs []error
	if p.defaultResp <= 0 {
		errs = append(errs, errors.New("authz: sla default response must be positive"))
	}
	for key, d := range p.hours {
		if !catalog.Knows(key.role) {
			errs = append(errs, fmt.Errorf("authz: sla entry for unknown role %q", key.role))
		}
		if !KnownPriority(key.priority) {
			errs = append(errs, fmt.Errorf("authz: sla entry for unknown priority %q", key.priority))
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("authz: sla entry (%s, %s) must be positive", key.role, key.priority))
		}
	}
	ordered := Priorities()
	for _, role := range catalog.AllRoles() {
		prev := time.Duration(0)
		for i := len(ordered) - 1; i >= 0; i-- {
			d, ok := p.hours[slaKey{role: role, priority: ordered[i]}]
			if !ok {
				continue
			}
			if prev > 0 && d < prev {
				errs = append(errs, fmt.Errorf("authz: sla for role %q: priority %q has shorter window than a higher priority", role, ordered[i]))
			}
			prev = d
		}
	}
	return errors.Join(errs...)
}

// ValidateConfig validates the catalog, approval chains and SLA policy
// together. Call at startup and abort on error.
func ValidateConfig(catalog *Catalog, chains *ApprovalChains, sla *SLAPolicy) error {
	if err := catalog.Validate(); err != nil {
		return err
	}
	return errors.Join(chains.Validate(catalog), sla.Validate(catalog))
}
