// Package policy decides which slice of the expense table a caller may
// see. Every expense operation derives its scope here, from the
// server-side identity, before touching storage.
package policy

import (
	"tally/internal/core"
)

// Scope narrows an expense query to the subset visible to a caller.
// Either All is set (privileged callers) or OwnerID names the single
// owner whose rows are visible.
type Scope struct {
	All     bool
	OwnerID int64
}

// For derives the scope for an identity. One rule for every operation:
// admin or superadmin sees everything, an authenticated user sees only
// their own rows, and an anonymous caller is refused outright — an
// unscoped query for an anonymous identity must be impossible.
func For(id core.Identity) (Scope, error) {
	if id.Privileged() {
		return Scope{All: true}, nil
	}
	if !id.Authenticated() {
		return Scope{}, core.ErrLoginRequired
	}
	return Scope{OwnerID: id.UserID}, nil
}

// RequirePrivileged gates the admin surface. It distinguishes the two
// refusal outcomes: missing identity redirects to login, an insufficient
// tier is an access-denied outcome.
func RequirePrivileged(id core.Identity) error {
	if !id.Authenticated() {
		return core.ErrLoginRequired
	}
	if !id.Privileged() {
		return core.ErrAccessDenied
	}
	return nil
}

// Allows reports whether an expense owned by ownerID is visible under s.
func (s Scope) Allows(ownerID int64) bool {
	return s.All || s.OwnerID == ownerID
}
