package core

import (
	"strings"
	"testing"
	"time"
)

func validExpense() Expense {
	return Expense{
		Description: "Groceries",
		Amount:      Money{Cents: 2500},
		Category:    "Food",
		Date:        NewDate(2024, 1, 5),
		UserID:      1,
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		field  string
	}{
		{"empty description", func(e *Expense) { e.Description = "  " }, "description"},
		{"long description", func(e *Expense) { e.Description = strings.Repeat("x", 101) }, "description"},
		{"empty category", func(e *Expense) { e.Category = "" }, "category"},
		{"zero amount", func(e *Expense) { e.Amount.Cents = 0 }, "amount"},
		{"negative amount", func(e *Expense) { e.Amount.Cents = -100 }, "amount"},
		{"long notes", func(e *Expense) { e.Notes = strings.Repeat("n", 501) }, "notes"},
		{"zero date", func(e *Expense) { e.Date = Date{Time: time.Time{}} }, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			err := e.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			v, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := v.Fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, v.Fields)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("alice", "longenough"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	cases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "longenough"},
		{"short password", "alice", "short"},
		{"reserved username", "superadmin", "longenough"},
		{"reserved username mixed case", "SuperAdmin", "longenough"},
		{"reserved username padded", "  superadmin ", "longenough"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateCredentials(tc.username, tc.password); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestIdentityTiers(t *testing.T) {
	anon := Identity{}
	if anon.Authenticated() || anon.Privileged() {
		t.Fatalf("anonymous identity must have no privileges")
	}
	user := Identity{UserID: 7, Username: "alice"}
	if !user.Authenticated() || user.Privileged() {
		t.Fatalf("plain user must be authenticated but not privileged")
	}
	admin := Identity{UserID: 8, Username: "bob", IsAdmin: true}
	super := Identity{UserID: 1, Username: SuperadminUsername, IsSuperadmin: true}
	if !admin.Privileged() || !super.Privileged() {
		t.Fatalf("admin and superadmin must be privileged")
	}
}
