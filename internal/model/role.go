package model

// Role is the closed set of account roles. Values outside this set are
// never persisted: ParseRole rejects them and the accounts table carries a
// CHECK constraint on the same list.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleStandard  Role = "standard"
	RoleGuest     Role = "guest"
	RoleLocked    Role = "locked"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleStandard

// IsValid reports whether r is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleStandard, RoleGuest, RoleLocked:
		return true
	default:
		return false
	}
}

// ParseRole converts a raw string to a Role. An empty string yields
// DefaultRole.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return DefaultRole, true
	}
	r := Role(s)
	return r, r.IsValid()
}

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleModerator, RoleStandard, RoleGuest, RoleLocked}
}
