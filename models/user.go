package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoleClass is the coarse account type carried in access tokens
type RoleClass string

const (
	RoleClassJobSeeker     RoleClass = "job_seeker"
	RoleClassCompanyMember RoleClass = "company_member"
	RoleClassOMILMember    RoleClass = "omil_member"
	RoleClassAdmin         RoleClass = "admin"
)

// Valid reports whether r is one of the known role classes
func (r RoleClass) Valid() bool {
	switch r {
	case RoleClassJobSeeker, RoleClassCompanyMember, RoleClassOMILMember, RoleClassAdmin:
		return true
	}
	return false
}

// User is a registered account. Password hashes never leave the service.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	RoleClass    RoleClass `json:"role_class" db:"role_class"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, passwordHash string, roleClass RoleClass) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		RoleClass:    roleClass,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthenticatedIdentity is attached to the request context once a bearer
// token has been verified and checked against the revocation registry.
type AuthenticatedIdentity struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	RoleClass RoleClass `json:"role_class"`
	TokenID   string    `json:"-"`
}
