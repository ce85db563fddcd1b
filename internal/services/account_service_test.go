package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccountFixture(t *testing.T) (*AccountService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewAccountService(repo, time.Hour, bcrypt.MinCost, testLogger()), repo
}

func TestRegisterGrantsDefaultAccess(t *testing.T) {
	svc, repo := newAccountFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.False(t, u.IsSuperadmin)

	roles, err := repo.RolesForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{core.RoleUser}, roles)

	menus, err := repo.MenusForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, menus, len(roleMenus[core.RoleUser]))
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "password123"},
		{"short password", "alice", "short"},
		{"reserved username", "superadmin", "password123"},
		{"reserved username mixed case", "SuperAdmin", "password123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "password456")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestLoginLifecycle(t *testing.T) {
	svc, repo := newAccountFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	token, id, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, id.UserID)
	assert.False(t, id.IsAdmin)

	resolved, _, err := repo.GetSession(ctx, token, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.UserID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrongpassword")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "superadmin", "anything")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials,
		"the reserved account must not be reachable through regular login")
}

func TestLoginSnapshotsAdminTier(t *testing.T) {
	svc, repo := newAccountFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)
	role, err := repo.EnsureRole(ctx, core.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.GrantRole(ctx, u.ID, role.ID))

	_, id, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.True(t, id.IsAdmin)
}

func TestSuperadminLogin(t *testing.T) {
	svc, repo := newAccountFixture(t)
	ctx := context.Background()

	prov := NewProvisioner(repo, "rootpassword", bcrypt.MinCost, testLogger())
	require.NoError(t, prov.Run(ctx))

	token, id, err := svc.SuperadminLogin(ctx, "rootpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, id.IsSuperadmin)
	assert.True(t, id.Privileged())

	_, _, err = svc.SuperadminLogin(ctx, "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}
