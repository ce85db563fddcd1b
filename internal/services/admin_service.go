package services

import (
	"context"
	"fmt"
	"sort"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/policy"
	"tally/internal/storage"
)

// UserView is the admin surface's row for one account.
type UserView struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	IsSuperadmin bool     `json:"is_superadmin"`
}

// AdminService exposes user and menu management to privileged callers.
// Everything that changes what a user may do also drops that user's
// sessions, so a demoted account cannot keep acting on a stale tier.
type AdminService struct {
	store    *storage.SQLiteRepository
	resolver *auth.Resolver
}

func NewAdminService(store *storage.SQLiteRepository, resolver *auth.Resolver) *AdminService {
	return &AdminService{store: store, resolver: resolver}
}

// ListUsers returns every account with its roles, ordered by id.
func (s *AdminService) ListUsers(ctx context.Context, actor core.Identity) ([]UserView, error) {
	if err := policy.RequirePrivileged(actor); err != nil {
		return nil, err
	}

	dir, err := s.store.OwnerDirectory(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(dir))
	for id, info := range dir {
		views = append(views, UserView{
			ID:           id,
			Username:     info.Username,
			Roles:        info.Roles,
			IsSuperadmin: info.IsSuperadmin,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

// DeleteUser removes an account and everything cascaded from it. The
// seeded superadmin account cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actor core.Identity, userID int64) error {
	if err := policy.RequirePrivileged(actor); err != nil {
		return err
	}
	if err := s.guardSuperadmin(ctx, userID); err != nil {
		return err
	}

	if err := s.resolver.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}
	return s.store.DeleteUser(ctx, userID)
}

// GrantRole adds a role to a user and drops their sessions so the next
// login carries the new tier.
func (s *AdminService) GrantRole(ctx context.Context, actor core.Identity, userID int64, roleName string) error {
	if err := policy.RequirePrivileged(actor); err != nil {
		return err
	}
	if err := s.guardSuperadmin(ctx, userID); err != nil {
		return err
	}

	role, err := s.store.GetRole(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.store.GrantRole(ctx, userID, role.ID); err != nil {
		return err
	}
	return s.resolver.InvalidateUser(ctx, userID)
}

// RevokeRole removes a role from a user and drops their sessions.
func (s *AdminService) RevokeRole(ctx context.Context, actor core.Identity, userID int64, roleName string) error {
	if err := policy.RequirePrivileged(actor); err != nil {
		return err
	}
	if err := s.guardSuperadmin(ctx, userID); err != nil {
		return err
	}

	role, err := s.store.GetRole(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.store.RevokeRole(ctx, userID, role.ID); err != nil {
		return err
	}
	return s.resolver.InvalidateUser(ctx, userID)
}

// ListMenus returns every menu entry.
func (s *AdminService) ListMenus(ctx context.Context, actor core.Identity) ([]core.Menu, error) {
	if err := policy.RequirePrivileged(actor); err != nil {
		return nil, err
	}
	return s.store.ListMenus(ctx)
}

// CreateMenu adds a menu entry. Creating an existing title returns the
// existing entry unchanged.
func (s *AdminService) CreateMenu(ctx context.Context, actor core.Identity, title, url string) (core.Menu, error) {
	if err := policy.RequirePrivileged(actor); err != nil {
		return core.Menu{}, err
	}
	if title == "" || url == "" {
		return core.Menu{}, core.NewValidationError("menu", "title and url are required")
	}
	return s.store.EnsureMenu(ctx, title, url)
}

// GrantMenu makes a menu visible to a user.
func (s *AdminService) GrantMenu(ctx context.Context, actor core.Identity, userID, menuID int64) error {
	if err := policy.RequirePrivileged(actor); err != nil {
		return err
	}
	return s.store.GrantMenu(ctx, userID, menuID)
}

// guardSuperadmin refuses mutations of the seeded superadmin account.
func (s *AdminService) guardSuperadmin(ctx context.Context, userID int64) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsSuperadmin {
		return core.ErrAccessDenied
	}
	return nil
}
