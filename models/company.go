package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyStatus is the verification state of an employer account
type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusPending   CompanyStatus = "pending"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

// CompanyRole is a recruiter's role inside a company. Order: member < recruiter < owner.
type CompanyRole string

const (
	CompanyRoleMember    CompanyRole = "member"
	CompanyRoleRecruiter CompanyRole = "recruiter"
	CompanyRoleOwner     CompanyRole = "owner"
)

var companyRoleRank = map[CompanyRole]int{
	CompanyRoleMember:    1,
	CompanyRoleRecruiter: 2,
	CompanyRoleOwner:     3,
}

// Rank returns the position of r in the company ordering, 0 when unknown
func (r CompanyRole) Rank() int {
	return companyRoleRank[r]
}

// AtLeast reports whether r is min or above. Unknown roles never pass.
func (r CompanyRole) AtLeast(min CompanyRole) bool {
	return atLeast(r.Rank(), min.Rank())
}

// Company is an employer publishing job offers
type Company struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	TaxID     string        `json:"tax_id" db:"tax_id"`
	Status    CompanyStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Company model
func (Company) TableName() string {
	return "companies"
}

// IsActive reports whether the company has been approved and not suspended
func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}

// CompanyMember links a user to the company they recruit for
type CompanyMember struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	CompanyID uuid.UUID   `json:"company_id" db:"company_id"`
	Role      CompanyRole `json:"role" db:"role"`
	IsActive  bool        `json:"is_active" db:"is_active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the CompanyMember model
func (CompanyMember) TableName() string {
	return "company_members"
}

// CompanyMembership is a member row read together with its company
type CompanyMembership struct {
	Member  CompanyMember
	Company Company
}
