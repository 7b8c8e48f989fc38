package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"thakii-backend/internal/domain"
	"thakii-backend/pkg/logger"
)

const (
	systemActor            = "system"
	superAdminDescription  = "System-generated super admin"
	recentLoginsStatsLimit = 10
)

// Registry manages administrator records. Members of the configured
// super-admin set can never be removed or demoted through it.
//
// Add checks for an existing email before inserting and relies on no
// uniqueness constraint, so two concurrent Adds of one email may both succeed.
type Registry struct {
	store  Store
	admins domain.SuperAdminSet
	now    func() time.Time
	logger *logger.Logger
}

// NewRegistry creates a registry over store.
func NewRegistry(store Store, admins domain.SuperAdminSet, log *logger.Logger) *Registry {
	return &Registry{
		store:  store,
		admins: admins,
		now:    time.Now,
		logger: logger.OrNop(log),
	}
}

// Add registers email as an active admin. role defaults to "admin".
func (r *Registry) Add(ctx context.Context, email, role, addedBy, description string) (*domain.AdminRecord, error) {
	email = domain.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, newError(KindInvalidEmailFormat, "invalid email format: %q", email)
	}
	if role = strings.TrimSpace(role); role == "" {
		role = domain.RoleAdmin
	}

	existing, err := r.findByEmail(ctx, email, false)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindAdminAlreadyExists, "admin %s already exists", email)
	}

	now := r.now().UTC()
	rec := &domain.AdminRecord{
		Email:        email,
		Role:         role,
		Status:       domain.AdminStatusActive,
		IsSuperAdmin: r.admins.Contains(email),
		Description:  description,
		AddedBy:      addedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	r.logger.Info("Admin added",
		zap.String("admin_id", rec.ID),
		zap.String("email", email),
		zap.String("role", role),
		zap.String("added_by", addedBy))
	return rec, nil
}

// Remove soft-deletes the record. Super admins are protected.
func (r *Registry) Remove(ctx context.Context, id, removedBy string) (*domain.AdminRecord, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsSuperAdmin || r.admins.Contains(rec.Email) {
		return nil, newError(KindSuperAdminProtected, "super admin %s cannot be removed", rec.Email)
	}
	if rec.Status == domain.AdminStatusRemoved {
		return rec, nil
	}

	now := r.now().UTC()
	status := domain.AdminStatusRemoved
	updated, err := r.store.Update(ctx, id, domain.AdminPatch{
		Status:    &status,
		RemovedBy: &removedBy,
		RemovedAt: &now,
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, r.storeError(id, err)
	}

	r.logger.Info("Admin removed",
		zap.String("admin_id", id),
		zap.String("email", rec.Email),
		zap.String("removed_by", removedBy))
	return updated, nil
}

// Update applies a partial update. For super-admin set members, changes to
// IsSuperAdmin and Status are dropped.
func (r *Registry) Update(ctx context.Context, id string, update domain.AdminUpdate, updatedBy string) (*domain.AdminRecord, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.admins.Contains(rec.Email) {
		if update.IsSuperAdmin != nil || update.Status != nil {
			r.logger.Warn("Ignoring protected field changes on super admin",
				zap.String("admin_id", id),
				zap.String("updated_by", updatedBy))
		}
		update.IsSuperAdmin = nil
		update.Status = nil
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, newError(KindInvalidStatus, "unknown status %q", *update.Status)
	}
	if update.Status != nil && *update.Status == domain.AdminStatusRemoved && rec.IsSuperAdmin {
		return nil, newError(KindSuperAdminProtected, "super admin %s cannot be removed", rec.Email)
	}

	now := r.now().UTC()
	updated, err := r.store.Update(ctx, id, domain.AdminPatch{
		Role:         update.Role,
		Description:  update.Description,
		Status:       update.Status,
		IsSuperAdmin: update.IsSuperAdmin,
		UpdatedBy:    &updatedBy,
		UpdatedAt:    &now,
	})
	if err != nil {
		return nil, r.storeError(id, err)
	}

	r.logger.Info("Admin updated",
		zap.String("admin_id", id),
		zap.String("updated_by", updatedBy))
	return updated, nil
}

// Get returns one record.
func (r *Registry) Get(ctx context.Context, id string) (*domain.AdminRecord, error) {
	return r.get(ctx, id)
}

// List returns every record, newest first.
func (r *Registry) List(ctx context.Context) ([]*domain.AdminRecord, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	sortNewestFirst(records)
	return records, nil
}

// ListActive returns active records, newest first.
func (r *Registry) ListActive(ctx context.Context) ([]*domain.AdminRecord, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	active := records[:0]
	for _, rec := range records {
		if rec.IsActive() {
			active = append(active, rec)
		}
	}
	return active, nil
}

// IsAdmin reports whether email has an active record or is a super admin.
func (r *Registry) IsAdmin(ctx context.Context, email string) (bool, error) {
	if r.admins.Contains(email) {
		return true, nil
	}
	rec, err := r.findByEmail(ctx, domain.NormalizeEmail(email), true)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// IsSuperAdmin reports membership in the configured super-admin set.
func (r *Registry) IsSuperAdmin(email string) bool {
	return r.admins.Contains(email)
}

// RecordLogin bumps the login counters of the active record for email.
// It returns nil, nil when email has no active record.
func (r *Registry) RecordLogin(ctx context.Context, email string) (*domain.AdminRecord, error) {
	rec, err := r.findByEmail(ctx, domain.NormalizeEmail(email), true)
	if err != nil || rec == nil {
		return nil, err
	}

	now := r.now().UTC()
	count := rec.LoginCount + 1
	updated, err := r.store.Update(ctx, rec.ID, domain.AdminPatch{
		LastLogin:  &now,
		LoginCount: &count,
	})
	if err != nil {
		return nil, r.storeError(rec.ID, err)
	}
	return updated, nil
}

// EnsureSuperAdminsExist creates a record for every super admin that has
// none and restores records that were removed or lost the super-admin flag.
// It returns how many records it wrote and is safe to call repeatedly.
func (r *Registry) EnsureSuperAdminsExist(ctx context.Context) (int, error) {
	changed := 0
	for _, email := range r.admins.Emails() {
		existing, err := r.findByEmail(ctx, email, false)
		if err != nil {
			return changed, err
		}
		if existing == nil {
			if _, err := r.Add(ctx, email, domain.RoleSuperAdmin, systemActor, superAdminDescription); err != nil {
				return changed, err
			}
			changed++
			continue
		}
		if existing.IsActive() && existing.IsSuperAdmin {
			continue
		}
		if err := r.restoreSuperAdmin(ctx, existing); err != nil {
			return changed, err
		}
		changed++
	}
	if changed > 0 {
		r.logger.Info("Super admin records ensured", zap.Int("count", changed))
	}
	return changed, nil
}

func (r *Registry) restoreSuperAdmin(ctx context.Context, rec *domain.AdminRecord) error {
	now := r.now().UTC()
	status := domain.AdminStatusActive
	flag := true
	actor := systemActor
	if _, err := r.store.Update(ctx, rec.ID, domain.AdminPatch{
		Status:       &status,
		IsSuperAdmin: &flag,
		UpdatedBy:    &actor,
		UpdatedAt:    &now,
	}); err != nil {
		return r.storeError(rec.ID, err)
	}
	r.logger.Warn("Super admin record restored",
		zap.String("admin_id", rec.ID),
		zap.String("email", rec.Email),
		zap.String("previous_status", string(rec.Status)))
	return nil
}

// Stats summarizes the registry.
func (r *Registry) Stats(ctx context.Context) (*domain.AdminStats, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.AdminStats{
		TotalAdmins:  len(records),
		Roles:        make(map[string]int),
		RecentLogins: []domain.RecentLogin{},
	}
	var logins []*domain.AdminRecord
	for _, rec := range records {
		switch rec.Status {
		case domain.AdminStatusActive:
			stats.ActiveAdmins++
			stats.Roles[rec.Role]++
			if rec.IsSuperAdmin {
				stats.SuperAdmins++
			}
		case domain.AdminStatusRemoved:
			stats.RemovedAdmins++
		}
		if rec.LastLogin != nil {
			logins = append(logins, rec)
		}
	}

	sort.SliceStable(logins, func(i, j int) bool {
		return logins[i].LastLogin.After(*logins[j].LastLogin)
	})
	if len(logins) > recentLoginsStatsLimit {
		logins = logins[:recentLoginsStatsLimit]
	}
	for _, rec := range logins {
		stats.RecentLogins = append(stats.RecentLogins, domain.RecentLogin{
			Email:      rec.Email,
			LastLogin:  *rec.LastLogin,
			LoginCount: rec.LoginCount,
		})
	}
	return stats, nil
}

func (r *Registry) get(ctx context.Context, id string) (*domain.AdminRecord, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, r.storeError(id, err)
	}
	return rec, nil
}

func (r *Registry) findByEmail(ctx context.Context, email string, activeOnly bool) (*domain.AdminRecord, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	for _, rec := range records {
		if domain.NormalizeEmail(rec.Email) != email {
			continue
		}
		if activeOnly && !rec.IsActive() {
			continue
		}
		return rec, nil
	}
	return nil, nil
}

func (r *Registry) storeError(id string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return newError(KindAdminNotFound, "admin %s not found", id)
	}
	return fmt.Errorf("admin store: %w", err)
}

// validEmail only requires an "@" and a ".".
func validEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

func sortNewestFirst(records []*domain.AdminRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
