package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	return NewGate(newTestResolver(t))
}

func TestGateLoadingAlwaysPending(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleSuperAdmin}, Loading: true}
	reqs := []Requirement{
		{},
		{Authentication: true},
		{Admin: true},
		{Permission: PermListingView},
	}
	for _, req := range reqs {
		decision := g.Evaluate(subject, req)
		assert.True(t, decision.Pending())
	}
}

func TestGateUnauthenticated(t *testing.T) {
	g := newTestGate(t)

	decision := g.Evaluate(Subject{}, Requirement{Authentication: true})
	assert.True(t, decision.Denied())
	assert.Equal(t, ReasonNotAuthenticated, decision.Reason)
}

func TestGateAuthenticationPrecedesPermission(t *testing.T) {
	g := newTestGate(t)

	decision := g.Evaluate(Subject{}, Requirement{
		Authentication: true,
		Permission:     PermListingView,
	})
	assert.Equal(t, ReasonNotAuthenticated, decision.Reason)
}

func TestGateMissingRole(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleTenant}}
	decision := g.Evaluate(subject, Requirement{AllRoles: []Role{RoleTenant, RoleOwner}})
	assert.True(t, decision.Denied())
	assert.Equal(t, ReasonMissingRole, decision.Reason)
}

func TestGateMissingAnyRole(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleTenant}}
	decision := g.Evaluate(subject, Requirement{AnyRoles: []Role{RoleAdmin, RoleSupportAgent}})
	assert.True(t, decision.Denied())
	assert.Equal(t, ReasonMissingAnyRole, decision.Reason)
}

func TestGateAnyRoleSatisfiedByHierarchy(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleAdmin}}
	decision := g.Evaluate(subject, Requirement{AnyRoles: []Role{RoleSupportAgent}})
	assert.True(t, decision.Allowed())
}

func TestGatePermissionDenied(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleTenant}}
	decision := g.Evaluate(subject, Requirement{Permission: PermListingPublish})
	assert.True(t, decision.Denied())
	assert.Equal(t, ReasonPermissionDenied, decision.Reason)
}

func TestGateKYCRequired(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleOwner}}
	denied := g.Evaluate(subject, Requirement{Permission: PermListingPublish, KYC: true})
	assert.Equal(t, ReasonKYCRequired, denied.Reason)

	subject.KYCVerified = true
	assert.True(t, g.Evaluate(subject, Requirement{Permission: PermListingPublish, KYC: true}).Allowed())
}

func TestGateAdminRequired(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RolePropertyManager}}
	decision := g.Evaluate(subject, Requirement{Admin: true})
	assert.Equal(t, ReasonAdminRequired, decision.Reason)

	subject.Roles = []Role{RoleAdmin}
	assert.True(t, g.Evaluate(subject, Requirement{Admin: true}).Allowed())
}

func TestGateZeroRequirementAllowsAnyone(t *testing.T) {
	g := newTestGate(t)

	assert.True(t, g.Evaluate(Subject{}, Requirement{}).Allowed())
}

func TestGateEmptyAnyPermissionsIgnored(t *testing.T) {
	g := newTestGate(t)

	// An empty AnyPermissions list is no requirement at all; the resolver's
	// never-satisfied rule only applies when a non-empty list was configured.
	subject := Subject{Authenticated: true, Roles: []Role{RoleTenant}}
	assert.True(t, g.Evaluate(subject, Requirement{Authentication: true}).Allowed())
}

func TestGateEvaluateIdempotent(t *testing.T) {
	g := newTestGate(t)

	subject := Subject{Authenticated: true, Roles: []Role{RoleFinanceManager}}
	req := Requirement{Permission: PermRefundApprove}
	first := g.Evaluate(subject, req)
	second := g.Evaluate(subject, req)
	assert.Equal(t, first, second)
	assert.True(t, first.Allowed())
}
