package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tally/internal/core"
)

// Session is a stored login session. IsAdmin is a snapshot of the role
// check taken at login time; role changes invalidate the session rather
// than mutate the snapshot.
type Session struct {
	Token        string
	UserID       int64
	IsAdmin      bool
	ExpiresAt    time.Time
	LastActivity time.Time
}

// CreateSession stores a new session for a user.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, is_admin, expires_at, last_activity)
		VALUES (?, ?, ?, ?, ?)
	`, s.Token, s.UserID, s.IsAdmin, s.ExpiresAt, s.LastActivity)
	if err != nil {
		return &core.StorageError{Op: "create session", Err: err}
	}
	return nil
}

// GetSession resolves a live session token to the caller's identity.
// Expired tokens are indistinguishable from unknown ones.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string, now time.Time) (core.Identity, Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, s.is_admin, s.expires_at, s.last_activity,
		       u.username, u.is_superadmin
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, now)

	var (
		s  Session
		id core.Identity
	)
	err := row.Scan(&s.Token, &s.UserID, &s.IsAdmin, &s.ExpiresAt, &s.LastActivity,
		&id.Username, &id.IsSuperadmin)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Identity{}, Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Identity{}, Session{}, &core.StorageError{Op: "get session", Err: err}
	}
	id.UserID = s.UserID
	id.IsAdmin = s.IsAdmin
	return id, s, nil
}

// RenewSession extends a session's lifetime and records activity.
func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, expiresAt, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ?, last_activity = ? WHERE token = ?",
		expiresAt, now, token)
	if err != nil {
		return &core.StorageError{Op: "renew session", Err: err}
	}
	return nil
}

// DeleteSession removes a session by token. Unknown tokens are a no-op.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return &core.StorageError{Op: "delete session", Err: err}
	}
	return nil
}

// DeleteSessionsForUser removes every session a user holds and returns
// the deleted tokens so callers can evict cached identities.
func (r *SQLiteRepository) DeleteSessionsForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT token FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return nil, &core.StorageError{Op: "delete user sessions", Err: err}
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, &core.StorageError{Op: "delete user sessions", Err: err}
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "delete user sessions", Err: err}
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return nil, &core.StorageError{Op: "delete user sessions", Err: err}
	}
	return tokens, nil
}

// CleanExpiredSessions removes sessions past their expiry.
func (r *SQLiteRepository) CleanExpiredSessions(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now); err != nil {
		return &core.StorageError{Op: "clean sessions", Err: err}
	}
	return nil
}
