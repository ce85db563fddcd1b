package http

import (
	"net/http"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var payload expensePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	draft, err := payload.toDraft()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.expenses.Create(r.Context(), identityFrom(r), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseView(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	expense, err := s.expenses.Get(r.Context(), identityFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var payload expensePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	draft, err := payload.toDraft()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	draft.ID = id

	updated, err := s.expenses.Update(r.Context(), identityFrom(r), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(updated))
}

// handleDeleteExpense always answers 204 for an in-scope id, present or
// already gone. Repeated deletes are indistinguishable from the first.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.expenses.Delete(r.Context(), identityFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	expenses, err := s.expenses.List(r.Context(), identityFrom(r), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": toExpenseViews(expenses)})
}
