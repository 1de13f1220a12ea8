package authz

import (
	"log/slog"
	"sort"
)

// MaxHierarchyDepth caps role hierarchy traversal. The validated catalog is
// acyclic, so the cap only guards against a malformed catalog sneaking past
// startup; it keeps EffectiveRoles terminating regardless.
const MaxHierarchyDepth = 10

// Resolver answers role and permission questions against a catalog. All
// methods are pure with respect to their inputs and safe for concurrent use;
// the only side effect is a warning log when an unknown role is encountered.
type Resolver struct {
	catalog *Catalog
	logger  *slog.Logger
}

// NewResolver constructs a Resolver. A nil logger falls back to slog.Default.
func NewResolver(catalog *Catalog, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Catalog exposes the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// EffectiveRoles flattens the hierarchy: every input role plus every role it
// subsumes, transitively, deduplicated and sorted. Roles the catalog does not
// know contribute only themselves and are logged for investigation.
func (r *Resolver) EffectiveRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	frontier := append([]Role(nil), roles...)
	for depth := 0; depth <= MaxHierarchyDepth && len(frontier) > 0; depth++ {
		var next []Role
		for _, role := range frontier {
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			if !r.catalog.Knows(role) {
				r.logger.Warn("unknown role in role set", slog.String("role", string(role)))
				continue
			}
			next = append(next, r.catalog.Subsumed(role)...)
		}
		frontier = next
	}
	out := make([]Role, 0, len(seen))
	for role := range seen {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission reports whether the role set grants perm, either directly,
// through the hierarchy, or by holding a super-admin role.
func (r *Resolver) HasPermission(roles []Role, perm Permission) bool {
	effective := r.EffectiveRoles(roles)
	for _, role := range effective {
		if r.catalog.IsSuperAdminRole(role) {
			return true
		}
		for _, granted := range r.catalog.PermissionsFor(role) {
			if granted == perm {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of perms is granted. An empty
// requirement list is never satisfied.
func (r *Resolver) HasAnyPermission(roles []Role, perms []Permission) bool {
	for _, perm := range perms {
		if r.HasPermission(roles, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission in perms is granted. An
// empty requirement list is vacuously satisfied.
func (r *Resolver) HasAllPermissions(roles []Role, perms []Permission) bool {
	for _, perm := range perms {
		if !r.HasPermission(roles, perm) {
			return false
		}
	}
	return true
}

// HasRole reports direct or hierarchy-inherited membership of want.
func (r *Resolver) HasRole(roles []Role, want Role) bool {
	for _, role := range r.EffectiveRoles(roles) {
		if role == want {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the role set holds at least one of want.
func (r *Resolver) HasAnyRole(roles []Role, want []Role) bool {
	if len(want) == 0 {
		return false
	}
	effective := make(map[Role]struct{})
	for _, role := range r.EffectiveRoles(roles) {
		effective[role] = struct{}{}
	}
	for _, role := range want {
		if _, ok := effective[role]; ok {
			return true
		}
	}
	return false
}

// IsAdmin reports whether any effective role carries administrative privilege.
func (r *Resolver) IsAdmin(roles []Role) bool {
	for _, role := range r.EffectiveRoles(roles) {
		if r.catalog.IsAdminRole(role) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether any effective role is flagged super-admin.
func (r *Resolver) IsSuperAdmin(roles []Role) bool {
	for _, role := range r.EffectiveRoles(roles) {
		if r.catalog.IsSuperAdminRole(role) {
			return true
		}
	}
	return false
}

// Permissions returns the full effective permission set for the role set,
// sorted for determinism. Super-admins receive every permission any role in
// the catalog grants.
func (r *Resolver) Permissions(roles []Role) []Permission {
	set := make(map[Permission]struct{})
	if r.IsSuperAdmin(roles) {
		for _, role := range r.catalog.AllRoles() {
			for _, perm := range r.catalog.PermissionsFor(role) {
				set[perm] = struct{}{}
			}
		}
	} else {
		for _, role := range r.EffectiveRoles(roles) {
			for _, perm := range r.catalog.PermissionsFor(role) {
				set[perm] = struct{}{}
			}
		}
	}
	out := make([]Permission, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
