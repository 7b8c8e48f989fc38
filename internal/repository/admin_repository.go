package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"thakii-backend/internal/domain"
	"thakii-backend/internal/service/admin"
	"thakii-backend/pkg/database"
)

const adminColumns = `
	id, email, role, status, is_super_admin, description, added_by,
	COALESCE(updated_by, ''), created_at, updated_at,
	COALESCE(removed_by, ''), removed_at, last_login, login_count`

// AdminRepository stores admin records in the admin_users table.
type AdminRepository struct {
	db *database.PostgresDB
}

var _ admin.Store = (*AdminRepository)(nil)

func NewAdminRepository(db *database.PostgresDB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts a new admin record
func (r *AdminRepository) Create(ctx context.Context, rec *domain.AdminRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = admin.NewID()
	}

	query := `
		INSERT INTO admin_users (
			id, email, role, status, is_super_admin, description, added_by,
			created_at, updated_at, login_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.ID,
		rec.Email,
		rec.Role,
		string(rec.Status),
		rec.IsSuperAdmin,
		rec.Description,
		rec.AddedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.LoginCount,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create admin: %w", err)
	}

	return rec.ID, nil
}

// Get returns the record with the given id
func (r *AdminRepository) Get(ctx context.Context, id string) (*domain.AdminRecord, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE id = $1`

	rec, err := scanAdmin(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, admin.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return rec, nil
}

// Update merges the non-nil patch fields into the record
func (r *AdminRepository) Update(ctx context.Context, id string, patch domain.AdminPatch) (*domain.AdminRecord, error) {
	query := `
		UPDATE admin_users SET
			role = COALESCE($2::text, role),
			description = COALESCE($3::text, description),
			status = COALESCE($4::text, status),
			is_super_admin = COALESCE($5::boolean, is_super_admin),
			updated_by = COALESCE($6::text, updated_by),
			updated_at = COALESCE($7::timestamptz, updated_at),
			removed_by = COALESCE($8::text, removed_by),
			removed_at = COALESCE($9::timestamptz, removed_at),
			last_login = COALESCE($10::timestamptz, last_login),
			login_count = COALESCE($11::integer, login_count)
		WHERE id = $1
		RETURNING ` + adminColumns

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	rec, err := scanAdmin(r.db.Pool.QueryRow(ctx, query,
		id,
		patch.Role,
		patch.Description,
		status,
		patch.IsSuperAdmin,
		patch.UpdatedBy,
		patch.UpdatedAt,
		patch.RemovedBy,
		patch.RemovedAt,
		patch.LastLogin,
		patch.LoginCount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, admin.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}

	return rec, nil
}

// List returns all admin records, newest first
func (r *AdminRepository) List(ctx context.Context) ([]*domain.AdminRecord, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var records []*domain.AdminRecord
	for rows.Next() {
		rec, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	return records, nil
}

func (r *AdminRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *AdminRepository) Name() string { return "postgres" }

func scanAdmin(row pgx.Row) (*domain.AdminRecord, error) {
	var rec domain.AdminRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Role,
		&status,
		&rec.IsSuperAdmin,
		&rec.Description,
		&rec.AddedBy,
		&rec.UpdatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.RemovedBy,
		&rec.RemovedAt,
		&rec.LastLogin,
		&rec.LoginCount,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.AdminStatus(status)
	return &rec, nil
}
