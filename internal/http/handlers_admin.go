package http

import (
	"net/http"
)

type rolePayload struct {
	Role string `json:"role"`
}

type menuPayload struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type grantMenuPayload struct {
	MenuID int64 `json:"menu_id"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.admin.DeleteUser(r.Context(), identityFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var payload rolePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.admin.GrantRole(r.Context(), identityFrom(r), id, payload.Role); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.admin.RevokeRole(r.Context(), identityFrom(r), id, r.PathValue("role")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantMenu(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var payload grantMenuPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.admin.GrantMenu(r.Context(), identityFrom(r), id, payload.MenuID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.admin.ListMenus(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"menus": toMenuViews(menus)})
}

func (s *Server) handleCreateMenu(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var payload menuPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	menu, err := s.admin.CreateMenu(r.Context(), identityFrom(r), payload.Title, payload.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, menuView{ID: menu.ID, Title: menu.Title, URL: menu.URL})
}
