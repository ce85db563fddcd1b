package http

import (
	"context"
	"errors"
	"net/http"

	"tally/internal/core"
)

type contextKey string

const identityContextKey contextKey = "identity"

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session"

// withIdentity resolves the session cookie into a caller identity before any
// handler runs. A missing, expired, or unknown token yields the anonymous
// identity; handlers never see a resolution error, only the zero Identity.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id core.Identity

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			resolved, err := s.resolver.Resolve(r.Context(), cookie.Value)
			switch {
			case err == nil:
				id = resolved
			case errors.Is(err, core.ErrNotFound):
				// Stale cookie from a logged-out or expired session.
				s.clearSessionCookie(w)
			default:
				s.logger.Error("session resolution failed", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the caller identity resolved by withIdentity. Outside
// the middleware chain it returns the anonymous identity.
func identityFrom(r *http.Request) core.Identity {
	if id, ok := r.Context().Value(identityContextKey).(core.Identity); ok {
		return id
	}
	return core.Identity{}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
