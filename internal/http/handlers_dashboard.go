package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dashboard, err := s.dashboards.Dashboard(r.Context(), identityFrom(r), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(dashboard))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	graph, err := s.dashboards.Graph(r.Context(), identityFrom(r), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGraphView(graph))
}

func (s *Server) handleMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.menus.MenusFor(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"menus": toMenuViews(menus)})
}
