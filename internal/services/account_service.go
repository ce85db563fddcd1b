package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/storage"
)

// AccountService handles registration and the two login paths. The
// regular path serves self-registered users; the superadmin path accepts
// only the reserved account.
type AccountService struct {
	store      *storage.SQLiteRepository
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
}

func NewAccountService(store *storage.SQLiteRepository, sessionTTL time.Duration, bcryptCost int, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:      store,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new account with the User role and its menus.
// Duplicate usernames surface as a validation outcome whether they lose
// a race or arrive sequentially.
func (s *AccountService) Register(ctx context.Context, username, password string) (core.User, error) {
	if err := core.ValidateCredentials(username, password); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hash, false)
	if err != nil {
		return core.User{}, err
	}

	if err := s.grantDefaultAccess(ctx, user.ID); err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "registered user", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// grantDefaultAccess gives a fresh account the User role and the menus
// that role implies.
func (s *AccountService) grantDefaultAccess(ctx context.Context, userID int64) error {
	role, err := s.store.EnsureRole(ctx, core.RoleUser)
	if err != nil {
		return fmt.Errorf("ensure user role: %w", err)
	}
	if err := s.store.GrantRole(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("grant user role: %w", err)
	}
	for _, title := range roleMenus[core.RoleUser] {
		menu, err := s.store.EnsureMenu(ctx, title, menuURL(title))
		if err != nil {
			return fmt.Errorf("ensure menu %s: %w", title, err)
		}
		if err := s.store.GrantMenu(ctx, userID, menu.ID); err != nil {
			return fmt.Errorf("grant menu %s: %w", title, err)
		}
	}
	return nil
}

func menuURL(title string) string {
	for _, m := range defaultMenus {
		if m.Title == title {
			return m.URL
		}
	}
	return "/"
}

// Login authenticates a regular user and opens a session. The reserved
// superadmin username is refused here with the same error as a wrong
// password.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, core.Identity, error) {
	if core.IsReservedUsername(username) {
		return "", core.Identity{}, core.ErrInvalidCredentials
	}
	return s.login(ctx, username, password)
}

// SuperadminLogin authenticates the reserved account only.
func (s *AccountService) SuperadminLogin(ctx context.Context, password string) (string, core.Identity, error) {
	return s.login(ctx, core.SuperadminUsername, password)
}

func (s *AccountService) login(ctx context.Context, username, password string) (string, core.Identity, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return "", core.Identity{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return "", core.Identity{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", core.Identity{}, core.ErrInvalidCredentials
	}

	roles, err := s.store.RolesForUser(ctx, user.ID)
	if err != nil {
		return "", core.Identity{}, err
	}
	// Snapshot taken once at login. Role changes invalidate sessions
	// instead of mutating this claim.
	isAdmin := slices.Contains(roles, core.RoleAdmin)

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", core.Identity{}, err
	}

	now := time.Now().UTC()
	if err := s.store.CreateSession(ctx, storage.Session{
		Token:        token,
		UserID:       user.ID,
		IsAdmin:      isAdmin,
		ExpiresAt:    now.Add(s.sessionTTL),
		LastActivity: now,
	}); err != nil {
		return "", core.Identity{}, err
	}

	id := core.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		IsAdmin:      isAdmin,
		IsSuperadmin: user.IsSuperadmin,
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "is_admin", isAdmin)
	return token, id, nil
}
