package core

import (
	"strings"
	"time"
)

// Reserved names persisted by provisioning. The authorization layer and the
// seeding logic agree on these literals; renaming one requires a coordinated
// data migration.
const (
	SuperadminUsername = "superadmin"

	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// Input limits enforced at the validation boundary.
const (
	MaxDescriptionLen = 100
	MaxNotesLen       = 500
	MaxUsernameLen    = 50
	MinPasswordLen    = 8
)

type (
	// Date is a day-granularity calendar date (UTC midnight).
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		IsSuperadmin bool
		CreatedAt    time.Time
	}

	Role struct {
		ID   int64
		Name string
	}

	// Menu is one navigation entry. Visibility is granted per user through
	// the user_menus join.
	Menu struct {
		ID    int64
		Title string
		URL   string
	}

	Expense struct {
		ID          int64
		Description string
		Amount      Money
		Category    string
		Date        Date
		Notes       string
		CreatedAt   time.Time
		UserID      int64
	}

	// Identity is the resolved caller. The zero value is the anonymous
	// identity: no user, no privileges.
	Identity struct {
		UserID       int64
		Username     string
		IsAdmin      bool
		IsSuperadmin bool
	}
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to day granularity.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// Key returns the date in YYYY-MM-DD form, usable as a bucket key.
func (d Date) Key() string { return d.Format("2006-01-02") }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	v := &ValidationError{}
	if err := e.Date.Validate(); err != nil {
		v.Add("date", "date is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		v.Add("description", "description is required")
	} else if len(e.Description) > MaxDescriptionLen {
		v.Add("description", "description too long (max 100 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		v.Add("category", "category is required")
	}
	if e.Amount.Cents <= 0 {
		v.Add("amount", "amount must be positive")
	}
	if len(e.Notes) > MaxNotesLen {
		v.Add("notes", "notes too long (max 500 characters)")
	}
	if len(v.Fields) > 0 {
		return v
	}
	return nil
}

// Authenticated reports whether the identity belongs to a logged-in user.
func (id Identity) Authenticated() bool { return id.UserID != 0 }

// Privileged reports whether the identity passes the unified admin tier
// check: Admin role or the superadmin flag. Every expense operation uses
// this single rule.
func (id Identity) Privileged() bool { return id.IsAdmin || id.IsSuperadmin }

// IsReservedUsername reports whether name collides with the seeded
// superadmin identity. Comparison is case-insensitive.
func IsReservedUsername(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), SuperadminUsername)
}

// ValidateCredentials checks a registration username/password pair.
func ValidateCredentials(username, password string) error {
	v := &ValidationError{}
	username = strings.TrimSpace(username)
	if username == "" {
		v.Add("username", "username is required")
	} else if len(username) > MaxUsernameLen {
		v.Add("username", "username too long (max 50 characters)")
	} else if IsReservedUsername(username) {
		v.Add("username", "username is reserved")
	}
	if len(password) < MinPasswordLen {
		v.Add("password", "password must be at least 8 characters")
	}
	if len(v.Fields) > 0 {
		return v
	}
	return nil
}
