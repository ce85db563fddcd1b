package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type adminFixture struct {
	repo     *storage.SQLiteRepository
	svc      *AdminService
	accounts *AccountService
	resolver *auth.Resolver
	admin    core.Identity
	user     core.User
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	resolver := auth.NewResolver(repo, time.Hour, time.Minute, 16, testLogger())
	accounts := NewAccountService(repo, time.Hour, bcrypt.MinCost, testLogger())

	prov := NewProvisioner(repo, "rootpassword", bcrypt.MinCost, testLogger())
	require.NoError(t, prov.Run(ctx))

	u, err := accounts.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	return &adminFixture{
		repo:     repo,
		svc:      NewAdminService(repo, resolver),
		accounts: accounts,
		resolver: resolver,
		admin:    core.Identity{UserID: 99, Username: "op", IsAdmin: true},
		user:     u,
	}
}

func TestAdminListUsers(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	users, err := f.svc.ListUsers(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, users, 2, "superadmin plus alice")
	assert.True(t, users[0].IsSuperadmin)
	assert.Equal(t, "alice", users[1].Username)
	assert.Equal(t, []string{core.RoleUser}, users[1].Roles)
}

func TestAdminOperationsRequirePrivilege(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	plain := core.Identity{UserID: f.user.ID, Username: "alice"}

	_, err := f.svc.ListUsers(ctx, plain)
	assert.ErrorIs(t, err, core.ErrAccessDenied)

	err = f.svc.DeleteUser(ctx, core.Identity{}, f.user.ID)
	assert.ErrorIs(t, err, core.ErrLoginRequired)
}

func TestAdminDeleteUserDropsSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	token, _, err := f.accounts.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	_, err = f.resolver.Resolve(ctx, token)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, f.user.ID))

	_, err = f.resolver.Resolve(ctx, token)
	assert.ErrorIs(t, err, core.ErrNotFound, "deleted user's session must stop resolving")

	_, err = f.repo.GetUserByID(ctx, f.user.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdminCannotTouchSuperadmin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	root, err := f.repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.admin, root.ID), core.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.RevokeRole(ctx, f.admin, root.ID, core.RoleAdmin), core.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.GrantRole(ctx, f.admin, root.ID, core.RoleUser), core.ErrAccessDenied)
}

func TestAdminRoleChangeInvalidatesSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	token, _, err := f.accounts.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	id, err := f.resolver.Resolve(ctx, token)
	require.NoError(t, err)
	require.False(t, id.IsAdmin)

	require.NoError(t, f.svc.GrantRole(ctx, f.admin, f.user.ID, core.RoleAdmin))

	_, err = f.resolver.Resolve(ctx, token)
	assert.ErrorIs(t, err, core.ErrNotFound, "old session must not keep the stale tier")

	// A fresh login carries the new tier.
	_, fresh, err := f.accounts.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.True(t, fresh.IsAdmin)
}

func TestAdminGrantUnknownRole(t *testing.T) {
	f := newAdminFixture(t)
	err := f.svc.GrantRole(context.Background(), f.admin, f.user.ID, "Wizard")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdminMenus(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateMenu(ctx, f.admin, "Reports", "/reports")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	again, err := f.svc.CreateMenu(ctx, f.admin, "Reports", "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "existing title is returned unchanged")
	assert.Equal(t, "/reports", again.URL)

	_, err = f.svc.CreateMenu(ctx, f.admin, "", "")
	assert.True(t, core.IsValidation(err))

	require.NoError(t, f.svc.GrantMenu(ctx, f.admin, f.user.ID, created.ID))
	menus, err := f.repo.MenusForUser(ctx, f.user.ID)
	require.NoError(t, err)

	titles := make([]string, 0, len(menus))
	for _, m := range menus {
		titles = append(titles, m.Title)
	}
	assert.Contains(t, titles, "Reports")
}
