package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole is the platform staff role. Order: admin < moderator < super_admin.
type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleModerator  AdminRole = "moderator"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

var adminRoleRank = map[AdminRole]int{
	AdminRoleAdmin:      1,
	AdminRoleModerator:  2,
	AdminRoleSuperAdmin: 3,
}

// Rank returns the position of r in the admin ordering, 0 when unknown
func (r AdminRole) Rank() int {
	return adminRoleRank[r]
}

// AtLeast reports whether r is min or above. Unknown roles never pass.
func (r AdminRole) AtLeast(min AdminRole) bool {
	return atLeast(r.Rank(), min.Rank())
}

// Admin is a platform administrator membership row
type Admin struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      AdminRole `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Admin model
func (Admin) TableName() string {
	return "admins"
}

// atLeast compares two ranks where zero means "unknown"
func atLeast(have, want int) bool {
	if have == 0 || want == 0 {
		return false
	}
	return have >= want
}
