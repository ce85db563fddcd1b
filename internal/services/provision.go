package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/storage"
)

// The seeded navigation set. Existing entries are matched by title, so
// renaming one here creates a new entry rather than updating the old.
var defaultMenus = []core.Menu{
	{Title: "Dashboard", URL: "/dashboard"},
	{Title: "Expenses", URL: "/expenses"},
	{Title: "Graph", URL: "/graph"},
	{Title: "Administration", URL: "/admin/users"},
}

// roleMenus maps a role to the menu titles it implies. Grants are
// additive: provisioning never revokes a menu a user already has.
var roleMenus = map[string][]string{
	core.RoleUser:  {"Dashboard", "Expenses", "Graph"},
	core.RoleAdmin: {"Dashboard", "Expenses", "Graph", "Administration"},
}

// Provisioner seeds the database to a known-good state. Every step is
// existence-guarded, so running it on every startup is safe and heals
// partial state from an earlier interrupted run.
type Provisioner struct {
	store              *storage.SQLiteRepository
	superadminPassword string
	bcryptCost         int
	logger             *slog.Logger
}

func NewProvisioner(store *storage.SQLiteRepository, superadminPassword string, bcryptCost int, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		store:              store,
		superadminPassword: superadminPassword,
		bcryptCost:         bcryptCost,
		logger:             logger,
	}
}

// Run brings roles, menus, the superadmin account, and per-user menu
// grants up to date. Any persistence fault aborts the run; a later run
// picks up where this one left off.
func (p *Provisioner) Run(ctx context.Context) error {
	roles := make(map[string]core.Role)
	for _, name := range []string{core.RoleUser, core.RoleAdmin} {
		role, err := p.store.EnsureRole(ctx, name)
		if err != nil {
			return fmt.Errorf("provision role %s: %w", name, err)
		}
		roles[name] = role
	}

	menus := make(map[string]core.Menu)
	for _, m := range defaultMenus {
		menu, err := p.store.EnsureMenu(ctx, m.Title, m.URL)
		if err != nil {
			return fmt.Errorf("provision menu %s: %w", m.Title, err)
		}
		menus[m.Title] = menu
	}

	admin, err := p.ensureSuperadmin(ctx)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if err := p.store.GrantRole(ctx, admin.ID, role.ID); err != nil {
			return fmt.Errorf("grant role to superadmin: %w", err)
		}
	}

	// Superadmin sees every menu, including ones created through the
	// admin surface since the last run, so the grant set comes from the
	// store rather than the seeded defaults.
	allMenus, err := p.store.ListMenus(ctx)
	if err != nil {
		return fmt.Errorf("list menus for superadmin grants: %w", err)
	}
	for _, menu := range allMenus {
		if err := p.store.GrantMenu(ctx, admin.ID, menu.ID); err != nil {
			return fmt.Errorf("grant menu to superadmin: %w", err)
		}
	}

	if err := p.grantRoleMenus(ctx, menus); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "provisioning complete",
		"roles", len(roles), "menus", len(menus))
	return nil
}

// ensureSuperadmin creates the reserved account if missing and restores
// its flag if a stray write cleared it. The password is only set on
// creation; an existing account keeps its hash.
func (p *Provisioner) ensureSuperadmin(ctx context.Context) (core.User, error) {
	user, err := p.store.GetUserByUsername(ctx, core.SuperadminUsername)
	if errors.Is(err, core.ErrNotFound) {
		hash, err := auth.HashPassword(p.superadminPassword, p.bcryptCost)
		if err != nil {
			return core.User{}, fmt.Errorf("hash superadmin password: %w", err)
		}
		user, err = p.store.CreateUser(ctx, core.SuperadminUsername, hash, true)
		if err != nil {
			return core.User{}, fmt.Errorf("create superadmin: %w", err)
		}
		p.logger.InfoContext(ctx, "created superadmin account", "user_id", user.ID)
		return user, nil
	}
	if err != nil {
		return core.User{}, fmt.Errorf("look up superadmin: %w", err)
	}

	if !user.IsSuperadmin {
		if err := p.store.SetSuperadmin(ctx, user.ID, true); err != nil {
			return core.User{}, fmt.Errorf("restore superadmin flag: %w", err)
		}
		user.IsSuperadmin = true
		p.logger.WarnContext(ctx, "restored superadmin flag", "user_id", user.ID)
	}
	return user, nil
}

// grantRoleMenus grants every user the menus its roles imply. Grants
// only; a manually granted extra menu is never taken away.
func (p *Provisioner) grantRoleMenus(ctx context.Context, menus map[string]core.Menu) error {
	dir, err := p.store.OwnerDirectory(ctx)
	if err != nil {
		return fmt.Errorf("load users for menu grants: %w", err)
	}

	for userID, info := range dir {
		for _, role := range info.Roles {
			for _, title := range roleMenus[role] {
				menu, ok := menus[title]
				if !ok {
					continue
				}
				if err := p.store.GrantMenu(ctx, userID, menu.ID); err != nil {
					return fmt.Errorf("grant menu %s to user %d: %w", title, userID, err)
				}
			}
		}
	}
	return nil
}
