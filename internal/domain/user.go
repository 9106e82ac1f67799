package domain

import "time"

// Role enumerates the access levels in the repair shop.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleMaster   Role = "master"
	RoleManager  Role = "manager"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleMaster, RoleManager:
		return true
	}
	return false
}

// User is an operator-side account. Users are never hard-deleted because
// history rows reference them; deactivation flips IsActive instead.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
}

// CanManageTickets reports whether the user may create, edit and delete tickets.
func (u *User) CanManageTickets() bool {
	return u.Role == RoleAdmin || u.Role == RoleOperator
}
