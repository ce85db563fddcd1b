package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestGenerateSessionTokenUnique(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

type fakeSessionStore struct {
	sessions map[string]storage.Session
	users    map[int64]core.Identity
	renewed  map[string]time.Time
	getCalls int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]storage.Session),
		users:    make(map[int64]core.Identity),
		renewed:  make(map[string]time.Time),
	}
}

func (f *fakeSessionStore) GetSession(_ context.Context, token string, now time.Time) (core.Identity, storage.Session, error) {
	f.getCalls++
	s, ok := f.sessions[token]
	if !ok || !s.ExpiresAt.After(now) {
		return core.Identity{}, storage.Session{}, core.ErrNotFound
	}
	id := f.users[s.UserID]
	id.UserID = s.UserID
	id.IsAdmin = s.IsAdmin
	return id, s, nil
}

func (f *fakeSessionStore) RenewSession(_ context.Context, token string, expiresAt, _ time.Time) error {
	s := f.sessions[token]
	s.ExpiresAt = expiresAt
	f.sessions[token] = s
	f.renewed[token] = expiresAt
	return nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionStore) DeleteSessionsForUser(_ context.Context, userID int64) ([]string, error) {
	var tokens []string
	for token, s := range f.sessions {
		if s.UserID == userID {
			tokens = append(tokens, token)
			delete(f.sessions, token)
		}
	}
	return tokens, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolverResolveAndCache(t *testing.T) {
	store := newFakeSessionStore()
	store.users[1] = core.Identity{Username: "alice"}
	store.sessions["tok"] = storage.Session{
		Token: "tok", UserID: 1, IsAdmin: true,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	r := NewResolver(store, 24*time.Hour, time.Minute, 16, testLogger())
	ctx := context.Background()

	id, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.True(t, id.IsAdmin)

	_, err = r.Resolve(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls, "second resolve must be served from cache")
}

func TestResolverUnknownToken(t *testing.T) {
	r := NewResolver(newFakeSessionStore(), time.Hour, time.Minute, 16, testLogger())
	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolverRenewsPastHalfway(t *testing.T) {
	store := newFakeSessionStore()
	store.users[1] = core.Identity{Username: "alice"}
	store.sessions["tok"] = storage.Session{
		Token: "tok", UserID: 1,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	r := NewResolver(store, time.Hour, time.Minute, 16, testLogger())
	_, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Contains(t, store.renewed, "tok", "a session near expiry must be renewed")
}

func TestResolverLogoutEvicts(t *testing.T) {
	store := newFakeSessionStore()
	store.users[1] = core.Identity{Username: "alice"}
	store.sessions["tok"] = storage.Session{
		Token: "tok", UserID: 1, ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	r := NewResolver(store, 24*time.Hour, time.Hour, 16, testLogger())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.NoError(t, r.Logout(ctx, "tok"))

	_, err = r.Resolve(ctx, "tok")
	assert.ErrorIs(t, err, core.ErrNotFound, "logged-out token must not resolve from cache")
}

func TestResolverInvalidateUserEvictsAllSessions(t *testing.T) {
	store := newFakeSessionStore()
	store.users[1] = core.Identity{Username: "alice"}
	for _, tok := range []string{"a", "b"} {
		store.sessions[tok] = storage.Session{
			Token: tok, UserID: 1, ExpiresAt: time.Now().Add(24 * time.Hour),
		}
	}

	r := NewResolver(store, 24*time.Hour, time.Hour, 16, testLogger())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "a")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, r.InvalidateUser(ctx, 1))

	_, err = r.Resolve(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = r.Resolve(ctx, "b")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
