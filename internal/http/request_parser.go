package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
)

// Request payloads stay small and explicit. Amounts arrive as decimal
// strings ("12.34" or "12,34") and are converted to cents at the boundary so
// no float ever touches the domain.

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type expensePayload struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Notes       string `json:"notes"`
	UserID      int64  `json:"user_id"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.NewValidationError("body", "malformed JSON payload")
	}
	return nil
}

// toDraft turns the payload into an unvalidated expense. Field-level
// validation is the service's job; only the formats are checked here.
func (p expensePayload) toDraft() (core.Expense, error) {
	v := &core.ValidationError{}

	cents, err := core.ParseDecimalToCents(p.Amount)
	if err != nil {
		v.Add("amount", "amount must be a positive decimal")
	}

	var date core.Date
	if p.Date != "" {
		t, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			v.Add("date", "date must be YYYY-MM-DD")
		} else {
			date = core.DateOf(t)
		}
	}

	if len(v.Fields) > 0 {
		return core.Expense{}, v
	}
	return core.Expense{
		Description: p.Description,
		Amount:      core.Money{Cents: cents},
		Category:    p.Category,
		Date:        date,
		Notes:       p.Notes,
		UserID:      p.UserID,
	}, nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// parseRange reads optional start/end query bounds. Absent values stay nil;
// the aggregation window normalizer fills the defaults.
func parseRange(r *http.Request) (start, end *time.Time, err error) {
	parse := func(name string) (*time.Time, error) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, core.NewValidationError(name, name+" must be YYYY-MM-DD")
		}
		return &t, nil
	}

	if start, err = parse("start"); err != nil {
		return nil, nil, err
	}
	if end, err = parse("end"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// limitBody caps request bodies well above any legitimate payload.
func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
}
