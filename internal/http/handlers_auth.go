package http

import (
	"net/http"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.accounts.Register(r.Context(), payload.Username, payload.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, id, err := s.accounts.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, toSessionView(id))
}

// handleSuperadminLogin is the only way the seeded account signs in; the
// regular login path refuses its username outright.
func (s *Server) handleSuperadminLogin(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, id, err := s.accounts.SuperadminLogin(r.Context(), payload.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, toSessionView(id))
}

// handleLogout is idempotent: a missing or stale cookie still returns 204.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.resolver.Logout(r.Context(), cookie.Value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
