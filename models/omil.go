package models

import (
	"time"

	"github.com/google/uuid"
)

// OMILStatus is the lifecycle state of a municipal employment office
type OMILStatus string

const (
	OMILStatusActive    OMILStatus = "active"
	OMILStatusSuspended OMILStatus = "suspended"
	OMILStatusInactive  OMILStatus = "inactive"
)

// OMILRole is the staff role inside an OMIL. Order: member < coordinator < director.
type OMILRole string

const (
	OMILRoleMember      OMILRole = "member"
	OMILRoleCoordinator OMILRole = "coordinator"
	OMILRoleDirector    OMILRole = "director"
)

var omilRoleRank = map[OMILRole]int{
	OMILRoleMember:      1,
	OMILRoleCoordinator: 2,
	OMILRoleDirector:    3,
}

// Rank returns the position of r in the OMIL ordering, 0 when unknown
func (r OMILRole) Rank() int {
	return omilRoleRank[r]
}

// AtLeast reports whether r is min or above. Unknown roles never pass.
func (r OMILRole) AtLeast(min OMILRole) bool {
	return atLeast(r.Rank(), min.Rank())
}

// OMIL is a municipal employment office
type OMIL struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Municipality string     `json:"municipality" db:"municipality"`
	Status       OMILStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the OMIL model
func (OMIL) TableName() string {
	return "omils"
}

// IsActive reports whether the office currently accepts staff activity
func (o *OMIL) IsActive() bool {
	return o.Status == OMILStatusActive
}

// OMILMember links a user to the OMIL they work for
type OMILMember struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	OMILID    uuid.UUID `json:"omil_id" db:"omil_id"`
	Role      OMILRole  `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the OMILMember model
func (OMILMember) TableName() string {
	return "omil_members"
}

// OMILMembership is a member row read together with its owning office
type OMILMembership struct {
	Member OMILMember
	OMIL   OMIL
}
