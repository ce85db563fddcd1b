package services

import (
	"context"

	"tally/internal/core"
	"tally/internal/storage"
)

// MenuService resolves which navigation entries a caller may see.
type MenuService struct {
	store *storage.SQLiteRepository
}

func NewMenuService(store *storage.SQLiteRepository) *MenuService {
	return &MenuService{store: store}
}

// MenusFor returns the caller's visible menus, alphabetical by title.
// Anonymous callers have no menu at all.
func (s *MenuService) MenusFor(ctx context.Context, actor core.Identity) ([]core.Menu, error) {
	if !actor.Authenticated() {
		return nil, core.ErrLoginRequired
	}
	return s.store.MenusForUser(ctx, actor.UserID)
}
