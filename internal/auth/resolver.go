package auth

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/storage"
)

// SessionStore is the slice of the repository the resolver needs.
type SessionStore interface {
	GetSession(ctx context.Context, token string, now time.Time) (core.Identity, storage.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt, now time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID int64) ([]string, error)
}

// Resolver turns session tokens into identities. There is exactly one
// resolution path: every request goes through Resolve, and everything
// that changes what a token means (logout, role changes) goes through
// the invalidation methods so the cache can never serve a stale tier.
type Resolver struct {
	store      SessionStore
	cache      *cache.LRUCache[core.Identity]
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewResolver builds a resolver. cacheTTL bounds how long a resolved
// identity may be served without re-reading the session row; it should
// be much shorter than sessionTTL.
func NewResolver(store SessionStore, sessionTTL, cacheTTL time.Duration, maxCached int, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:      store,
		cache:      cache.NewLRUCache[core.Identity](maxCached, cacheTTL),
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Resolve maps a token to the caller's identity. Unknown and expired
// tokens yield the anonymous identity with core.ErrNotFound. Sessions
// past the halfway point of their lifetime are renewed in passing, so
// active users stay logged in while idle sessions expire.
func (r *Resolver) Resolve(ctx context.Context, token string) (core.Identity, error) {
	if id, ok := r.cache.Get(token); ok {
		return id, nil
	}

	now := time.Now().UTC()
	id, sess, err := r.store.GetSession(ctx, token, now)
	if err != nil {
		return core.Identity{}, err
	}

	if sess.ExpiresAt.Sub(now) < r.sessionTTL/2 {
		if err := r.store.RenewSession(ctx, token, now.Add(r.sessionTTL), now); err != nil {
			// Renewal is best effort; the session is still valid as loaded.
			r.logger.WarnContext(ctx, "session renewal failed", "error", err)
		}
	}

	r.cache.Set(token, id)
	return id, nil
}

// Logout deletes a session and evicts it from the cache.
func (r *Resolver) Logout(ctx context.Context, token string) error {
	if err := r.store.DeleteSession(ctx, token); err != nil {
		return err
	}
	r.cache.Delete(token)
	return nil
}

// InvalidateUser drops every session a user holds. Called after role or
// password changes so the next request re-authenticates from scratch.
func (r *Resolver) InvalidateUser(ctx context.Context, userID int64) error {
	tokens, err := r.store.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		r.cache.Delete(token)
	}
	r.logger.InfoContext(ctx, "invalidated user sessions", "user_id", userID, "count", len(tokens))
	return nil
}

// Cache exposes the identity cache for registration with the cache
// manager's cleanup loop.
func (r *Resolver) Cache() *cache.LRUCache[core.Identity] { return r.cache }
