package repositories

import (
	"context"
	"errors"

	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if function succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// UserRepository is the credential store
type UserRepository interface {
	// Create inserts a user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminRepository reads platform administrator memberships
type AdminRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Admin, error)
}

// OMILRepository reads OMIL staff memberships together with their office
type OMILRepository interface {
	GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.OMILMembership, error)
}

// CompanyRepository reads recruiter memberships together with their company
type CompanyRepository interface {
	GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.CompanyMembership, error)
}

// AuditRepository persists authentication audit events
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByUser retrieves a user's audit trail, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	Admins    AdminRepository
	OMILs     OMILRepository
	Companies CompanyRepository
	AuditLogs AuditRepository
}
