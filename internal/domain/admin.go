package domain

import "time"

// AdminRole enumerates operator roles known to the admin directory.
type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "superadmin"
)

// AdminStatus represents lifecycle states for an admin account.
type AdminStatus string

const (
	AdminStatusActive    AdminStatus = "active"
	AdminStatusInactive  AdminStatus = "inactive"
	AdminStatusSuspended AdminStatus = "suspended"
)

// AdminIdentity models an operator who may act on tickets.
// Tickets only ever reference it by ID.
type AdminIdentity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	Status       AdminStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPrivileged reports whether the role may mutate tickets.
func (a *AdminIdentity) IsPrivileged() bool {
	if a == nil {
		return false
	}
	return a.Role == AdminRoleAdmin || a.Role == AdminRoleSuperAdmin
}

// IsActive reports whether the account may sign in.
func (a *AdminIdentity) IsActive() bool {
	return a != nil && a.Status == AdminStatusActive
}
