// Package authz implements the role and permission engine for Parkside.
// All resolution is computed from an immutable catalog loaded at startup;
// nothing in this package performs I/O.
package authz

import "sort"

// Role identifies a job function a user can hold. Users hold a set of roles.
type Role string

// Known roles.
const (
	RoleTenant          Role = "tenant"
	RoleOwner           Role = "owner"
	RoleInvestor        Role = "investor"
	RolePropertyManager Role = "property-manager"
	RoleSupportAgent    Role = "support-agent"
	RoleFinanceManager  Role = "finance-manager"
	RoleFinanceDirector Role = "finance-director"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super-admin"
)

// Permission identifies a single grantable capability. Permissions are never
// assigned to users directly; they derive from role membership.
type Permission string

// Listing permissions.
const (
	PermListingView    Permission = "listing.view"
	PermListingCreate  Permission = "listing.create"
	PermListingEdit    Permission = "listing.edit"
	PermListingPublish Permission = "listing.publish"
	PermListingApprove Permission = "listing.approve"
	PermListingFeature Permission = "listing.feature"
)

// Messaging permissions.
const (
	PermAgentMessage Permission = "agent.message"
)

// Financial permissions.
const (
	PermFinancialsView Permission = "financials.view"
	PermRefundRequest  Permission = "refund.request"
	PermRefundApprove  Permission = "refund.approve"
)

// Maintenance permissions.
const (
	PermMaintenanceRequest     Permission = "maintenance.request"
	PermMaintenanceAssign      Permission = "maintenance.assign"
	PermMaintenanceCostApprove Permission = "maintenance.cost.approve"
)

// Platform administration permissions.
const (
	PermUserManage Permission = "user.manage"
	PermRoleManage Permission = "role.manage"
	PermKYCReview  Permission = "kyc.review"
)

// Catalog is the immutable role/permission configuration: the permissions
// directly granted to each role, the subsumption hierarchy, and the
// admin/super-admin designations. Constructed once at startup and treated as
// read-only for the process lifetime.
type Catalog struct {
	permissions map[Role][]Permission
	subsumes    map[Role][]Role
	admin       map[Role]bool
	superAdmin  map[Role]bool
}

// CatalogConfig collects the inputs for building a Catalog.
type CatalogConfig struct {
	Permissions map[Role][]Permission
	Subsumes    map[Role][]Role
	AdminRoles  []Role
	SuperAdmins []Role
}

// NewCatalog builds a Catalog from the given configuration. The result is not
// validated here; call Validate before serving.
func NewCatalog(cfg CatalogConfig) *Catalog {
	c := &Catalog{
		permissions: make(map[Role][]Permission, len(cfg.Permissions)),
		subsumes:    make(map[Role][]Role, len(cfg.Subsumes)),
		admin:       make(map[Role]bool, len(cfg.AdminRoles)),
		superAdmin:  make(map[Role]bool, len(cfg.SuperAdmins)),
	}
	for role, perms := range cfg.Permissions {
		c.permissions[role] = append([]Permission(nil), perms...)
	}
	for role, subs := range cfg.Subsumes {
		c.subsumes[role] = append([]Role(nil), subs...)
	}
	for _, role := range cfg.AdminRoles {
		c.admin[role] = true
	}
	for _, role := range cfg.SuperAdmins {
		c.admin[role] = true
		c.superAdmin[role] = true
	}
	return c
}

// PermissionsFor returns the permissions directly granted to role. Unknown
// roles yield an empty set so that lookups fail closed.
func (c *Catalog) PermissionsFor(role Role) []Permission {
	perms, ok := c.permissions[role]
	if !ok {
		return nil
	}
	return append([]Permission(nil), perms...)
}

// Subsumed returns the roles directly subsumed by role.
func (c *Catalog) Subsumed(role Role) []Role {
	subs, ok := c.subsumes[role]
	if !ok {
		return nil
	}
	return append([]Role(nil), subs...)
}

// AllRoles returns every role known to the catalog, sorted for determinism.
func (c *Catalog) AllRoles() []Role {
	roles := make([]Role, 0, len(c.permissions))
	for role := range c.permissions {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Knows reports whether role is present in the catalog.
func (c *Catalog) Knows(role Role) bool {
	_, ok := c.permissions[role]
	return ok
}

// IsAdminRole reports whether role carries administrative privilege.
func (c *Catalog) IsAdminRole(role Role) bool {
	return c.admin[role]
}

// IsSuperAdminRole reports whether role holds every permission in the system.
func (c *Catalog) IsSuperAdminRole(role Role) bool {
	return c.superAdmin[role]
}

// DefaultCatalog returns the production Parkside catalog.
//
// Hierarchy: owner, investor and support-agent subsume tenant;
// property-manager subsumes owner; finance-director subsumes finance-manager;
// admin subsumes property-manager, support-agent and finance-director;
// super-admin subsumes admin.
func DefaultCatalog() *Catalog {
	return NewCatalog(CatalogConfig{
		Permissions: map[Role][]Permission{
			RoleTenant: {
				PermListingView,
				PermAgentMessage,
				PermMaintenanceRequest,
				PermRefundRequest,
			},
			RoleOwner: {
				PermListingCreate,
				PermListingEdit,
				PermListingPublish,
				PermFinancialsView,
			},
			RoleInvestor: {
				PermFinancialsView,
				PermListingFeature,
			},
			RolePropertyManager: {
				PermListingApprove,
				PermMaintenanceAssign,
			},
			RoleSupportAgent: {
				PermAgentMessage,
				PermMaintenanceAssign,
			},
			RoleFinanceManager: {
				PermFinancialsView,
				PermRefundApprove,
				PermMaintenanceCostApprove,
			},
			RoleFinanceDirector: {
				PermFinancialsView,
			},
			RoleAdmin: {
				PermUserManage,
				PermRoleManage,
				PermKYCReview,
			},
			RoleSuperAdmin: {
				PermRoleManage,
			},
		},
		Subsumes: map[Role][]Role{
			RoleOwner:           {RoleTenant},
			RoleInvestor:        {RoleTenant},
			RoleSupportAgent:    {RoleTenant},
			RolePropertyManager: {RoleOwner},
			RoleFinanceDirector: {RoleFinanceManager},
			RoleAdmin:           {RolePropertyManager, RoleSupportAgent, RoleFinanceDirector},
			RoleSuperAdmin:      {RoleAdmin},
		},
		AdminRoles:  []Role{RoleAdmin},
		SuperAdmins: []Role{RoleSuperAdmin},
	})
}
