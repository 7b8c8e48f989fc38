package domain

import "time"

// AdminStatus is the lifecycle state of an admin record.
type AdminStatus string

const (
	AdminStatusActive  AdminStatus = "active"
	AdminStatusRemoved AdminStatus = "removed"
)

// Valid reports whether s is a known status.
func (s AdminStatus) Valid() bool {
	return s == AdminStatusActive || s == AdminStatusRemoved
}

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// AdminRecord is a registry entry. Records are never hard-deleted.
type AdminRecord struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	Status       AdminStatus `json:"status"`
	IsSuperAdmin bool        `json:"is_super_admin"`
	Description  string      `json:"description"`
	AddedBy      string      `json:"added_by"`
	UpdatedBy    string      `json:"updated_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	RemovedBy    string      `json:"removed_by,omitempty"`
	RemovedAt    *time.Time  `json:"removed_at,omitempty"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
	LoginCount   int         `json:"login_count"`
}

// IsActive reports whether the record is active.
func (r *AdminRecord) IsActive() bool {
	return r.Status == AdminStatusActive
}

// AdminUpdate is a caller-supplied partial update. Nil fields are left unchanged.
type AdminUpdate struct {
	Role         *string      `json:"role,omitempty"`
	Description  *string      `json:"description,omitempty"`
	Status       *AdminStatus `json:"status,omitempty"`
	IsSuperAdmin *bool        `json:"is_super_admin,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u AdminUpdate) Empty() bool {
	return u.Role == nil && u.Description == nil && u.Status == nil && u.IsSuperAdmin == nil
}

// AdminPatch is the store-level partial merge, including bookkeeping fields
// that only the registry sets.
type AdminPatch struct {
	Role         *string
	Description  *string
	Status       *AdminStatus
	IsSuperAdmin *bool
	UpdatedBy    *string
	UpdatedAt    *time.Time
	RemovedBy    *string
	RemovedAt    *time.Time
	LastLogin    *time.Time
	LoginCount   *int
}

// Apply merges the patch into r.
func (p AdminPatch) Apply(r *AdminRecord) {
	if p.Role != nil {
		r.Role = *p.Role
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.IsSuperAdmin != nil {
		r.IsSuperAdmin = *p.IsSuperAdmin
	}
	if p.UpdatedBy != nil {
		r.UpdatedBy = *p.UpdatedBy
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = *p.UpdatedAt
	}
	if p.RemovedBy != nil {
		r.RemovedBy = *p.RemovedBy
	}
	if p.RemovedAt != nil {
		t := *p.RemovedAt
		r.RemovedAt = &t
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		r.LastLogin = &t
	}
	if p.LoginCount != nil {
		r.LoginCount = *p.LoginCount
	}
}

// RecentLogin is one entry of the stats login feed.
type RecentLogin struct {
	Email      string    `json:"email"`
	LastLogin  time.Time `json:"last_login"`
	LoginCount int       `json:"login_count"`
}

// AdminStats summarizes the registry.
type AdminStats struct {
	TotalAdmins   int            `json:"total_admins"`
	ActiveAdmins  int            `json:"active_admins"`
	SuperAdmins   int            `json:"super_admins"`
	RemovedAdmins int            `json:"removed_admins"`
	Roles         map[string]int `json:"roles"`
	RecentLogins  []RecentLogin  `json:"recent_logins"`
}
