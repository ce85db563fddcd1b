package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/services"
)

// errorBody is the uniform error envelope. Fields is present only for
// validation failures; Login only when authentication is required.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Login  string            `json:"login,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a domain error onto the wire. Anything outside the known
// taxonomy is a server fault: logged with detail, surfaced without.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var v *core.ValidationError
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: v.Fields})
	case errors.Is(err, core.ErrLoginRequired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required", Login: "/auth/login"})
	case errors.Is(err, core.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	case errors.Is(err, core.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "access denied"})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithError(err)
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", fields.ToSlice()...)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// Wire views. Domain types carry no JSON tags; the shapes below are the API
// contract and can evolve independently of the model.

type expenseView struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Notes       string `json:"notes,omitempty"`
	UserID      int64  `json:"user_id"`
}

func toExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.Key(),
		Notes:       e.Notes,
		UserID:      e.UserID,
	}
}

func toExpenseViews(expenses []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseView(e))
	}
	return out
}

type summaryView struct {
	Count    int    `json:"count"`
	SumCents int64  `json:"sum_cents"`
	Sum      string `json:"sum"`
}

func toSummaryView(s core.Summary) summaryView {
	return summaryView{Count: s.Count, SumCents: s.Sum.Cents, Sum: s.Sum.String()}
}

type categoryBucketView struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	SumCents int64  `json:"sum_cents"`
}

type userBucketView struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Count        int    `json:"count"`
	SumCents     int64  `json:"sum_cents"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperadmin bool   `json:"is_superadmin"`
}

type dayBucketView struct {
	Date     string `json:"date"`
	Count    int    `json:"count"`
	SumCents int64  `json:"sum_cents"`
}

type monthBucketView struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Count    int   `json:"count"`
	SumCents int64 `json:"sum_cents"`
}

func toDayBucketViews(days []core.DayBucket) []dayBucketView {
	out := make([]dayBucketView, 0, len(days))
	for _, d := range days {
		out = append(out, dayBucketView{Date: d.Date.Key(), Count: d.Count, SumCents: d.Sum.Cents})
	}
	return out
}

type dashboardView struct {
	Start             string               `json:"start"`
	End               string               `json:"end"`
	Totals            summaryView          `json:"totals"`
	ByCategory        []categoryBucketView `json:"by_category"`
	Recent            []expenseView        `json:"recent"`
	ByDay             []dayBucketView      `json:"by_day"`
	ByMonth           []monthBucketView    `json:"by_month"`
	AverageDailyCents int64                `json:"average_daily_cents"`
	ByUser            []userBucketView     `json:"by_user,omitempty"`
}

func toDashboardView(d services.Dashboard) dashboardView {
	view := dashboardView{
		Start:             d.Start.Format(time.DateOnly),
		End:               d.End.Format(time.DateOnly),
		Totals:            toSummaryView(d.Totals),
		ByCategory:        make([]categoryBucketView, 0, len(d.ByCategory)),
		Recent:            toExpenseViews(d.Recent),
		ByDay:             toDayBucketViews(d.ByDay),
		ByMonth:           make([]monthBucketView, 0, len(d.ByMonth)),
		AverageDailyCents: d.AverageDaily.Cents,
	}
	for _, c := range d.ByCategory {
		view.ByCategory = append(view.ByCategory, categoryBucketView{Category: c.Category, Count: c.Count, SumCents: c.Sum.Cents})
	}
	for _, m := range d.ByMonth {
		view.ByMonth = append(view.ByMonth, monthBucketView{Year: m.Year, Month: m.Month, Count: m.Count, SumCents: m.Sum.Cents})
	}
	for _, u := range d.ByUser {
		view.ByUser = append(view.ByUser, userBucketView{
			UserID:       u.UserID,
			Username:     u.Username,
			Count:        u.Count,
			SumCents:     u.Sum.Cents,
			IsAdmin:      u.IsAdmin,
			IsSuperadmin: u.IsSuperadmin,
		})
	}
	return view
}

type graphView struct {
	Start             string          `json:"start"`
	End               string          `json:"end"`
	ByDay             []dayBucketView `json:"by_day"`
	AverageDailyCents int64           `json:"average_daily_cents"`
}

func toGraphView(g services.Graph) graphView {
	return graphView{
		Start:             g.Start.Format(time.DateOnly),
		End:               g.End.Format(time.DateOnly),
		ByDay:             toDayBucketViews(g.ByDay),
		AverageDailyCents: g.AverageDaily.Cents,
	}
}

type menuView struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func toMenuViews(menus []core.Menu) []menuView {
	out := make([]menuView, 0, len(menus))
	for _, m := range menus {
		out = append(out, menuView{ID: m.ID, Title: m.Title, URL: m.URL})
	}
	return out
}

type sessionView struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperadmin bool   `json:"is_superadmin"`
}

func toSessionView(id core.Identity) sessionView {
	return sessionView{
		UserID:       id.UserID,
		Username:     id.Username,
		IsAdmin:      id.IsAdmin,
		IsSuperadmin: id.IsSuperadmin,
	}
}
