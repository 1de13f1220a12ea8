package authz

// Subject is the snapshot of session state the gate evaluates against. It is
// the only shape this package ever reads from the session layer.
type Subject struct {
	UserID        string
	Roles         []Role
	Authenticated bool
	Loading       bool
	KYCVerified   bool
}

// Outcome is the shape of a gate decision.
type Outcome string

// Gate outcomes.
const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomePending Outcome = "pending"
)

// Reason explains a denial. Each value maps to an actionable next step for
// the caller: redirect to login, show an access message, or start a
// verification flow.
type Reason string

// Denial reasons.
const (
	ReasonNotAuthenticated Reason = "NOT_AUTHENTICATED"
	ReasonMissingRole      Reason = "MISSING_ROLE"
	ReasonMissingAnyRole   Reason = "MISSING_ANY_ROLE"
	ReasonPermissionDenied Reason = "PERMISSION_DENIED"
	ReasonKYCRequired      Reason = "KYC_REQUIRED"
	ReasonAdminRequired    Reason = "ADMIN_REQUIRED"
)

// Message returns the human-readable explanation for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonNotAuthenticated:
		return "You must sign in to continue."
	case ReasonMissingRole:
		return "Your account is missing a role required for this action."
	case ReasonMissingAnyRole:
		return "None of your roles grant access to this action."
	case ReasonPermissionDenied:
		return "You do not have permission to perform this action."
	case ReasonKYCRequired:
		return "Identity verification is required before this action."
	case ReasonAdminRequired:
		return "This action is restricted to administrators."
	default:
		return "Access denied."
	}
}

// Decision is the result of one gate evaluation.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Allow returns an allowed decision.
func Allow() Decision {
	return Decision{Outcome: OutcomeAllowed}
}

// Deny returns a denied decision with the given reason.
func Deny(reason Reason) Decision {
	return Decision{Outcome: OutcomeDenied, Reason: reason}
}

// Pend returns a pending decision; the caller should re-evaluate once the
// session has finished loading.
func Pend() Decision {
	return Decision{Outcome: OutcomePending}
}

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllowed }

// Denied reports whether the decision refuses access.
func (d Decision) Denied() bool { return d.Outcome == OutcomeDenied }

// Pending reports whether the session was still loading at evaluation time.
func (d Decision) Pending() bool { return d.Outcome == OutcomePending }

// Requirement is a declarative access spec attached to a protected action.
// All populated fields combine with AND semantics; within AnyRoles and
// AnyPermissions, OR semantics apply. The zero Requirement allows everyone.
type Requirement struct {
	Authentication bool
	AllRoles       []Role
	AnyRoles       []Role
	Permission     Permission
	AnyPermissions []Permission
	AllPermissions []Permission
	KYC            bool
	Admin          bool
}

// Gate evaluates declarative requirements against session snapshots. Each
// evaluation is a fresh, idempotent computation with no persistent state.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate over the resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Resolver exposes the underlying resolver.
func (g *Gate) Resolver() *Resolver {
	return g.resolver
}

// Evaluate runs the gate state machine. A loading session always yields
// Pending before any other check so callers never surface a premature denial
// mid-refresh; authentication precedes role and permission checks so an
// unauthenticated user is told to sign in rather than that they lack a
// permission.
func (g *Gate) Evaluate(subject Subject, req Requirement) Decision {
	if subject.Loading {
		return Pend()
	}
	if req.Authentication && !subject.Authenticated {
		return Deny(ReasonNotAuthenticated)
	}
	for _, role := range req.AllRoles {
		if !g.resolver.HasRole(subject.Roles, role) {
			return Deny(ReasonMissingRole)
		}
	}
	if len(req.AnyRoles) > 0 && !g.resolver.HasAnyRole(subject.Roles, req.AnyRoles) {
		return Deny(ReasonMissingAnyRole)
	}
	if req.Permission != "" && !g.resolver.HasPermission(subject.Roles, req.Permission) {
		return Deny(ReasonPermissionDenied)
	}
	if len(req.AnyPermissions) > 0 && !g.resolver.HasAnyPermission(subject.Roles, req.AnyPermissions) {
		return Deny(ReasonPermissionDenied)
	}
	if !g.resolver.HasAllPermissions(subject.Roles, req.AllPermissions) {
		return Deny(ReasonPermissionDenied)
	}
	if req.KYC && !subject.KYCVerified {
		return Deny(ReasonKYCRequired)
	}
	if req.Admin && !g.resolver.IsAdmin(subject.Roles) {
		return Deny(ReasonAdminRequired)
	}
	return Allow()
}
