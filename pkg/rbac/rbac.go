// Package rbac decides whether a UI fragment may be shown to a user based on a
// role → permission table.
//
// Lookups are default-deny at both levels: an unknown role resolves to an empty
// permission set and an unknown permission key resolves to false. Roles do not
// inherit from each other; a table that wants inheritance must spell it out.
package rbac

// Permission keys used by the storefront page.
const (
	PermBuyCredits  = "canBuyCredits"
	PermSubscribe   = "canSubscribe"
	PermViewBalance = "canViewBalance"
)

// Built-in role names.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleViewer    = "viewer"
)

// Table maps role → permission key → granted.
type Table map[string]map[string]bool

// Allows reports whether role holds permission. A nil table denies everything.
func (t Table) Allows(role, permission string) bool {
	perms, ok := t[role]
	if !ok {
		return false
	}
	return perms[permission]
}

// CanRender reports whether a fragment guarded by permission may be rendered
// for a user with the given role. An empty role (unauthenticated) is treated as
// a role with no permissions.
func CanRender(role, permission string, table Table) bool {
	if role == "" {
		return false
	}
	return table.Allows(role, permission)
}

// Gate binds a permission table to a source of the current role. It is the
// rendering primitive: guarded content is produced only when allowed.
type Gate struct {
	table Table
	role  func() string
}

// NewGate creates a Gate. role is called on every check so that a session
// change is picked up without rebuilding the gate.
func NewGate(table Table, role func() string) *Gate {
	if role == nil {
		role = func() string { return "" }
	}
	return &Gate{table: table, role: role}
}

// CanRender reports whether the current user may see content guarded by permission.
func (g *Gate) CanRender(permission string) bool {
	return CanRender(g.role(), permission, g.table)
}

// Render returns fragment() when the current user holds permission, and the
// empty string otherwise. fragment is not evaluated when access is denied.
func (g *Gate) Render(permission string, fragment func() string) string {
	if !g.CanRender(permission) {
		return ""
	}
	return fragment()
}

// DefaultTable returns the permission table used when no table file is configured.
func DefaultTable() Table {
	return Table{
		RoleAdmin: {
			PermBuyCredits:  true,
			PermSubscribe:   true,
			PermViewBalance: true,
		},
		RoleDeveloper: {
			PermBuyCredits:  false,
			PermSubscribe:   false,
			PermViewBalance: true,
		},
		RoleViewer: {
			PermViewBalance: true,
		},
	}
}
