package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thakii-backend/internal/domain"
)

const rootEmail = "root@thakii.test"

var registryNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRegistry(t *testing.T, store Store) *Registry {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	r := NewRegistry(store, domain.NewSuperAdminSet(rootEmail), nil)
	r.now = (&stepClock{t: registryNow}).Now
	return r
}

func strPtr(s string) *string { return &s }

func TestRegistry_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active admin with defaults", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "  Alice@Example.com ", "", rootEmail, "course staff")
		require.NoError(t, err)

		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "alice@example.com", rec.Email)
		assert.Equal(t, domain.RoleAdmin, rec.Role)
		assert.Equal(t, domain.AdminStatusActive, rec.Status)
		assert.False(t, rec.IsSuperAdmin)
		assert.Equal(t, rootEmail, rec.AddedBy)
		assert.Nil(t, rec.LastLogin)
		assert.Zero(t, rec.LoginCount)

		stored, err := r.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Email, stored.Email)
	})

	t.Run("super admin flag follows the configured set", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "ROOT@thakii.test", "admin", "system", "")
		require.NoError(t, err)
		assert.True(t, rec.IsSuperAdmin)
	})

	t.Run("rejects malformed email without creating a record", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		for _, email := range []string{"not-an-email", "a@b", "plain.text", ""} {
			_, err := r.Add(ctx, email, "admin", rootEmail, "")
			assert.Equal(t, KindInvalidEmailFormat, KindOf(err), email)
		}
		all, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("rejects duplicates in any status", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "bob@example.com", "", rootEmail, "")
		require.NoError(t, err)

		_, err = r.Add(ctx, "BOB@example.com", "", rootEmail, "")
		assert.Equal(t, KindAdminAlreadyExists, KindOf(err))

		_, err = r.Remove(ctx, rec.ID, rootEmail)
		require.NoError(t, err)
		_, err = r.Add(ctx, "bob@example.com", "", rootEmail, "")
		assert.Equal(t, KindAdminAlreadyExists, KindOf(err))
	})
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("soft deletes", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "carol@example.com", "", rootEmail, "")
		require.NoError(t, err)

		removed, err := r.Remove(ctx, rec.ID, rootEmail)
		require.NoError(t, err)
		assert.Equal(t, domain.AdminStatusRemoved, removed.Status)
		assert.Equal(t, rootEmail, removed.RemovedBy)
		require.NotNil(t, removed.RemovedAt)
		assert.True(t, removed.UpdatedAt.After(rec.UpdatedAt))

		all, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		again, err := r.Remove(ctx, rec.ID, "someone-else")
		require.NoError(t, err)
		assert.Equal(t, rootEmail, again.RemovedBy)
	})

	t.Run("unknown id", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		_, err := r.Remove(ctx, "missing", rootEmail)
		assert.Equal(t, KindAdminNotFound, KindOf(err))
	})

	t.Run("super admins are protected", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, rootEmail, domain.RoleSuperAdmin, "system", "")
		require.NoError(t, err)

		_, err = r.Remove(ctx, rec.ID, "other@example.com")
		assert.Equal(t, KindSuperAdminProtected, KindOf(err))

		stored, err := r.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive())
	})

	t.Run("flagged records are protected even outside the set", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "dave@example.com", "", rootEmail, "")
		require.NoError(t, err)
		_, err = r.Update(ctx, rec.ID, domain.AdminUpdate{IsSuperAdmin: boolPtr(true)}, rootEmail)
		require.NoError(t, err)

		_, err = r.Remove(ctx, rec.ID, rootEmail)
		assert.Equal(t, KindSuperAdminProtected, KindOf(err))
	})
}

func boolPtr(b bool) *bool { return &b }

func TestRegistry_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies partial changes", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "erin@example.com", "", rootEmail, "old")
		require.NoError(t, err)

		updated, err := r.Update(ctx, rec.ID, domain.AdminUpdate{Description: strPtr("new")}, rootEmail)
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Description)
		assert.Equal(t, domain.RoleAdmin, updated.Role)
		assert.Equal(t, rootEmail, updated.UpdatedBy)
		assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))
	})

	t.Run("super admin status and flag cannot change", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, rootEmail, domain.RoleSuperAdmin, "system", "")
		require.NoError(t, err)

		removed := domain.AdminStatusRemoved
		updated, err := r.Update(ctx, rec.ID, domain.AdminUpdate{
			Status:       &removed,
			IsSuperAdmin: boolPtr(false),
			Description:  strPtr("owner"),
		}, "other@example.com")
		require.NoError(t, err)

		assert.Equal(t, domain.AdminStatusActive, updated.Status)
		assert.True(t, updated.IsSuperAdmin)
		assert.Equal(t, "owner", updated.Description)
	})

	t.Run("flagged records cannot be removed through update", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "hank@example.com", "", rootEmail, "")
		require.NoError(t, err)
		_, err = r.Update(ctx, rec.ID, domain.AdminUpdate{IsSuperAdmin: boolPtr(true)}, rootEmail)
		require.NoError(t, err)

		removed := domain.AdminStatusRemoved
		_, err = r.Update(ctx, rec.ID, domain.AdminUpdate{Status: &removed}, rootEmail)
		assert.Equal(t, KindSuperAdminProtected, KindOf(err))

		stored, err := r.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive())
		assert.True(t, stored.IsSuperAdmin)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		rec, err := r.Add(ctx, "frank@example.com", "", rootEmail, "")
		require.NoError(t, err)

		bogus := domain.AdminStatus("suspended")
		_, err = r.Update(ctx, rec.ID, domain.AdminUpdate{Status: &bogus}, rootEmail)
		assert.Equal(t, KindInvalidStatus, KindOf(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		r := newTestRegistry(t, nil)
		_, err := r.Update(ctx, "missing", domain.AdminUpdate{Role: strPtr("x")}, rootEmail)
		assert.Equal(t, KindAdminNotFound, KindOf(err))
	})
}

func TestRegistry_ListAndIsAdmin(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, nil)

	first, err := r.Add(ctx, "one@example.com", "", rootEmail, "")
	require.NoError(t, err)
	second, err := r.Add(ctx, "two@example.com", "", rootEmail, "")
	require.NoError(t, err)
	_, err = r.Remove(ctx, first.ID, rootEmail)
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	active, err := r.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	tests := []struct {
		email string
		want  bool
	}{
		{"two@example.com", true},
		{"TWO@example.com", true},
		{"one@example.com", false},
		{rootEmail, true},
		{"stranger@example.com", false},
	}
	for _, tt := range tests {
		got, err := r.IsAdmin(ctx, tt.email)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.email)
	}
	assert.True(t, r.IsSuperAdmin("Root@Thakii.test"))
	assert.False(t, r.IsSuperAdmin("two@example.com"))
}

func TestRegistry_RecordLogin(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, nil)

	_, err := r.Add(ctx, "gina@example.com", "", rootEmail, "")
	require.NoError(t, err)

	rec, err := r.RecordLogin(ctx, "gina@example.com")
	require.NoError(t, err)
	require.NotNil(t, rec.LastLogin)
	assert.Equal(t, 1, rec.LoginCount)

	rec, err = r.RecordLogin(ctx, "GINA@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.LoginCount)

	rec, err = r.RecordLogin(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRegistry_EnsureSuperAdminsExist(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRegistry(store, domain.NewSuperAdminSet(rootEmail, "owner@thakii.test"), nil)

	created, err := r.EnsureSuperAdminsExist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = r.EnsureSuperAdminsExist(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, rec := range all {
		assert.Equal(t, domain.RoleSuperAdmin, rec.Role)
		assert.Equal(t, "system", rec.AddedBy)
		assert.Equal(t, "System-generated super admin", rec.Description)
		assert.True(t, rec.IsSuperAdmin)
	}
}

func TestRegistry_EnsureSuperAdminsExist_RestoresRecords(t *testing.T) {
	ctx := context.Background()
	const ops = "ops@thakii.test"

	tests := []struct {
		name   string
		mutate func(t *testing.T, r *Registry, id string)
	}{
		{
			name: "removed record",
			mutate: func(t *testing.T, r *Registry, id string) {
				_, err := r.Remove(ctx, id, rootEmail)
				require.NoError(t, err)
			},
		},
		{
			name: "unflagged record",
			mutate: func(t *testing.T, r *Registry, id string) {
				_, err := r.Update(ctx, id, domain.AdminUpdate{IsSuperAdmin: boolPtr(false)}, rootEmail)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			before := newTestRegistry(t, store)
			rec, err := before.Add(ctx, ops, "", rootEmail, "")
			require.NoError(t, err)
			tt.mutate(t, before, rec.ID)

			after := NewRegistry(store, domain.NewSuperAdminSet(rootEmail, ops), nil)
			changed, err := after.EnsureSuperAdminsExist(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, changed, "root created, ops restored")

			stored, err := after.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.AdminStatusActive, stored.Status)
			assert.True(t, stored.IsSuperAdmin)
			assert.Equal(t, "system", stored.UpdatedBy)

			all, err := after.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			changed, err = after.EnsureSuperAdminsExist(ctx)
			require.NoError(t, err)
			assert.Zero(t, changed)
		})
	}
}

func TestRegistry_Stats(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, nil)

	_, err := r.EnsureSuperAdminsExist(ctx)
	require.NoError(t, err)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := r.Add(ctx, email, "", rootEmail, "")
		require.NoError(t, err)
	}
	active, err := r.ListActive(ctx)
	require.NoError(t, err)
	for _, rec := range active {
		if rec.Email == "c@example.com" {
			_, err := r.Remove(ctx, rec.ID, rootEmail)
			require.NoError(t, err)
		}
	}
	_, err = r.RecordLogin(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = r.RecordLogin(ctx, rootEmail)
	require.NoError(t, err)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAdmins)
	assert.Equal(t, 3, stats.ActiveAdmins)
	assert.Equal(t, 1, stats.SuperAdmins)
	assert.Equal(t, 1, stats.RemovedAdmins)
	assert.Equal(t, map[string]int{domain.RoleAdmin: 2, domain.RoleSuperAdmin: 1}, stats.Roles)
	require.Len(t, stats.RecentLogins, 2)
	assert.Equal(t, rootEmail, stats.RecentLogins[0].Email, "most recent login first")
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s *failingStore) List(context.Context) ([]*domain.AdminRecord, error) {
	return nil, s.err
}

func TestRegistry_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	r := newTestRegistry(t, &failingStore{MemoryStore: NewMemoryStore(), err: boom})

	_, err := r.Add(context.Background(), "x@example.com", "", rootEmail, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Kind(""), KindOf(err))

	_, err = r.IsAdmin(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, boom)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	login := registryNow
	id, err := s.Create(ctx, &domain.AdminRecord{Email: "h@example.com", LastLogin: &login})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	got.Email = "mutated@example.com"
	*got.LastLogin = registryNow.Add(time.Hour)

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "h@example.com", again.Email)
	assert.True(t, again.LastLogin.Equal(registryNow))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = s.Update(ctx, "missing", domain.AdminPatch{})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.NoError(t, s.Health(ctx))
	assert.Equal(t, "memory", s.Name())
}
