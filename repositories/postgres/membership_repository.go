package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminRepository implements repositories.AdminRepository
type AdminRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *DB, logger *zap.Logger) repositories.AdminRepository {
	return &AdminRepository{db: db, logger: logger}
}

// GetByUserID returns the admin row for a user
func (r *AdminRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Admin, error) {
	query := `
		SELECT id, user_id, role, is_active, created_at
		FROM admins
		WHERE user_id = $1
	`

	admin := &models.Admin{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&admin.ID,
		&admin.UserID,
		&admin.Role,
		&admin.IsActive,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return admin, nil
}

// OMILRepository implements repositories.OMILRepository
type OMILRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOMILRepository creates a new OMIL membership repository
func NewOMILRepository(db *DB, logger *zap.Logger) repositories.OMILRepository {
	return &OMILRepository{db: db, logger: logger}
}

// GetMembershipByUserID loads the member row and its office in one round trip
func (r *OMILRepository) GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.OMILMembership, error) {
	query := `
		SELECT m.id, m.user_id, m.omil_id, m.role, m.is_active, m.created_at,
		       o.id, o.name, o.municipality, o.status, o.created_at
		FROM omil_members m
		JOIN omils o ON o.id = m.omil_id
		WHERE m.user_id = $1
	`

	ms := &models.OMILMembership{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&ms.Member.ID,
		&ms.Member.UserID,
		&ms.Member.OMILID,
		&ms.Member.Role,
		&ms.Member.IsActive,
		&ms.Member.CreatedAt,
		&ms.OMIL.ID,
		&ms.OMIL.Name,
		&ms.OMIL.Municipality,
		&ms.OMIL.Status,
		&ms.OMIL.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get omil membership: %w", err)
	}

	return ms, nil
}

// CompanyRepository implements repositories.CompanyRepository
type CompanyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company membership repository
func NewCompanyRepository(db *DB, logger *zap.Logger) repositories.CompanyRepository {
	return &CompanyRepository{db: db, logger: logger}
}

// GetMembershipByUserID loads the member row and its company in one round trip
func (r *CompanyRepository) GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.CompanyMembership, error) {
	query := `
		SELECT m.id, m.user_id, m.company_id, m.role, m.is_active, m.created_at,
		       c.id, c.name, c.tax_id, c.status, c.created_at
		FROM company_members m
		JOIN companies c ON c.id = m.company_id
		WHERE m.user_id = $1
	`

	ms := &models.CompanyMembership{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&ms.Member.ID,
		&ms.Member.UserID,
		&ms.Member.CompanyID,
		&ms.Member.Role,
		&ms.Member.IsActive,
		&ms.Member.CreatedAt,
		&ms.Company.ID,
		&ms.Company.Name,
		&ms.Company.TaxID,
		&ms.Company.Status,
		&ms.Company.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company membership: %w", err)
	}

	return ms, nil
}
