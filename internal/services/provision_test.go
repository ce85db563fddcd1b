package services

import (
	"context"
	"testing"

	"tally/internal/core"
	"tally/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newProvisionFixture(t *testing.T) (*Provisioner, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewProvisioner(repo, "rootpassword", bcrypt.MinCost, testLogger()), repo
}

func TestProvisionSeedsEverything(t *testing.T) {
	prov, repo := newProvisionFixture(t)
	ctx := context.Background()

	require.NoError(t, prov.Run(ctx))

	admin, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	assert.True(t, admin.IsSuperadmin)

	roles, err := repo.RolesForUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{core.RoleUser, core.RoleAdmin}, roles)

	menus, err := repo.MenusForUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, menus, len(defaultMenus), "superadmin sees every seeded menu")
}

func TestProvisionRerunChangesNothing(t *testing.T) {
	prov, repo := newProvisionFixture(t)
	ctx := context.Background()

	require.NoError(t, prov.Run(ctx))

	admin, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	menusBefore, err := repo.ListMenus(ctx)
	require.NoError(t, err)

	require.NoError(t, prov.Run(ctx), "second run must succeed")

	adminAfter, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, adminAfter.ID, "no second superadmin row")
	assert.Equal(t, admin.PasswordHash, adminAfter.PasswordHash, "existing password is preserved")

	menusAfter, err := repo.ListMenus(ctx)
	require.NoError(t, err)
	assert.Equal(t, menusBefore, menusAfter, "menu set unchanged by rerun")

	count, err := repo.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProvisionRerunGrantsNewMenusToSuperadmin(t *testing.T) {
	prov, repo := newProvisionFixture(t)
	ctx := context.Background()

	require.NoError(t, prov.Run(ctx))
	reports, err := repo.EnsureMenu(ctx, "Reports", "/reports")
	require.NoError(t, err)

	require.NoError(t, prov.Run(ctx))

	admin, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	menus, err := repo.MenusForUser(ctx, admin.ID)
	require.NoError(t, err)

	titles := make([]string, 0, len(menus))
	for _, m := range menus {
		titles = append(titles, m.Title)
	}
	assert.Contains(t, titles, reports.Title, "superadmin picks up menus added since the last run")
}

func TestProvisionHealsDemotedSuperadmin(t *testing.T) {
	prov, repo := newProvisionFixture(t)
	ctx := context.Background()

	require.NoError(t, prov.Run(ctx))
	admin, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	require.NoError(t, repo.SetSuperadmin(ctx, admin.ID, false))

	require.NoError(t, prov.Run(ctx))

	healed, err := repo.GetUserByUsername(ctx, core.SuperadminUsername)
	require.NoError(t, err)
	assert.True(t, healed.IsSuperadmin, "flag restored on the next run")
}

func TestProvisionGrantsRoleMenusToExistingUsers(t *testing.T) {
	prov, repo := newProvisionFixture(t)
	ctx := context.Background()

	// A user created before any menus exist.
	u, err := repo.CreateUser(ctx, "alice", "hash", false)
	require.NoError(t, err)
	role, err := repo.EnsureRole(ctx, core.RoleUser)
	require.NoError(t, err)
	require.NoError(t, repo.GrantRole(ctx, u.ID, role.ID))

	require.NoError(t, prov.Run(ctx))

	menus, err := repo.MenusForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, menus, len(roleMenus[core.RoleUser]))
}
