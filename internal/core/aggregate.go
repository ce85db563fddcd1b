package core

import (
	"sort"
	"time"
)

// Summary is the top-line total for a scoped expense set.
type Summary struct {
	Count int
	Sum   Money
}

// CategoryBucket is the per-category rollup.
type CategoryBucket struct {
	Category string
	Count    int
	Sum      Money
}

// UserBucket is the per-owner rollup for the admin dashboard.
type UserBucket struct {
	UserID       int64
	Username     string
	Count        int
	Sum          Money
	IsAdmin      bool
	IsSuperadmin bool
}

// DayBucket is one day of the time series. Days without expenses are not
// synthesized; the series is sparse.
type DayBucket struct {
	Date  Date
	Count int
	Sum   Money
}

// MonthBucket is one (year, month) bucket of the time series.
type MonthBucket struct {
	Year  int
	Month int
	Count int
	Sum   Money
}

// OwnerInfo describes an expense owner for ByUser. Roles is the set of
// role names granted to the user.
type OwnerInfo struct {
	Username     string
	Roles        []string
	IsSuperadmin bool
}

// OwnerLookup resolves an owner id to its user info. A false return marks
// the owner as unknown (e.g. deleted concurrently).
type OwnerLookup func(userID int64) (OwnerInfo, bool)

// Totals sums a scoped expense set. The input is already scoped and
// materialized; no further filtering happens here.
func Totals(expenses []Expense) Summary {
	s := Summary{Count: len(expenses)}
	for _, e := range expenses {
		s.Sum.Cents += e.Amount.Cents
	}
	return s
}

// ByCategory rolls expenses up per category, sorted by sum descending.
// Equal sums fall back to category name ascending so the order is stable.
func ByCategory(expenses []Expense) []CategoryBucket {
	byName := make(map[string]*CategoryBucket)
	for _, e := range expenses {
		b, ok := byName[e.Category]
		if !ok {
			b = &CategoryBucket{Category: e.Category}
			byName[e.Category] = b
		}
		b.Count++
		b.Sum.Cents += e.Amount.Cents
	}
	buckets := make([]CategoryBucket, 0, len(byName))
	for _, b := range byName {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Sum.Cents != buckets[j].Sum.Cents {
			return buckets[i].Sum.Cents > buckets[j].Sum.Cents
		}
		return buckets[i].Category < buckets[j].Category
	})
	return buckets
}

// ByUser rolls expenses up per owner, sorted by sum descending. Tier flags
// come from the lookup: IsAdmin from the Admin role being present,
// IsSuperadmin from the user record.
func ByUser(expenses []Expense, lookup OwnerLookup) []UserBucket {
	byID := make(map[int64]*UserBucket)
	for _, e := range expenses {
		b, ok := byID[e.UserID]
		if !ok {
			b = &UserBucket{UserID: e.UserID, Username: "(unknown)"}
			if info, found := lookup(e.UserID); found {
				b.Username = info.Username
				b.IsSuperadmin = info.IsSuperadmin
				for _, role := range info.Roles {
					if role == RoleAdmin {
						b.IsAdmin = true
					}
				}
			}
			byID[e.UserID] = b
		}
		b.Count++
		b.Sum.Cents += e.Amount.Cents
	}
	buckets := make([]UserBucket, 0, len(byID))
	for _, b := range byID {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Sum.Cents != buckets[j].Sum.Cents {
			return buckets[i].Sum.Cents > buckets[j].Sum.Cents
		}
		return buckets[i].UserID < buckets[j].UserID
	})
	return buckets
}

// Recent returns the n most recent expenses, date descending with ties
// broken by id descending. The ordering is total, so same-day entries keep
// a stable recency order.
func Recent(expenses []Expense, n int) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// ByDay buckets expenses per distinct day, ascending by date.
func ByDay(expenses []Expense) []DayBucket {
	byKey := make(map[string]*DayBucket)
	for _, e := range expenses {
		key := e.Date.Key()
		b, ok := byKey[key]
		if !ok {
			b = &DayBucket{Date: e.Date}
			byKey[key] = b
		}
		b.Count++
		b.Sum.Cents += e.Amount.Cents
	}
	buckets := make([]DayBucket, 0, len(byKey))
	for _, b := range byKey {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date.Time)
	})
	return buckets
}

// ByMonth buckets expenses per distinct (year, month), ascending.
func ByMonth(expenses []Expense) []MonthBucket {
	type key struct{ year, month int }
	byKey := make(map[key]*MonthBucket)
	for _, e := range expenses {
		k := key{e.Date.Year(), e.Date.Month()}
		b, ok := byKey[k]
		if !ok {
			b = &MonthBucket{Year: k.year, Month: k.month}
			byKey[k] = b
		}
		b.Count++
		b.Sum.Cents += e.Amount.Cents
	}
	buckets := make([]MonthBucket, 0, len(byKey))
	for _, b := range byKey {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Year != buckets[j].Year {
			return buckets[i].Year < buckets[j].Year
		}
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}

// AverageDaily is the mean of the day sums, rounded half-up to a cent.
// Zero when no days are present.
func AverageDaily(days []DayBucket) Money {
	if len(days) == 0 {
		return Money{}
	}
	var total int64
	for _, d := range days {
		total += d.Sum.Cents
	}
	n := int64(len(days))
	return Money{Cents: (total + n/2) / n}
}

// DefaultGraphWindow is the window used when a graph request carries no
// explicit bounds.
const DefaultGraphWindow = 6 // months

// NormalizeRange turns optional user-supplied bounds into a concrete
// [start, end] window. Missing bounds default to the last six months up to
// now; bounds beyond now clamp down to now; if start ends up after end the
// two are swapped. Normalization happens before querying so unbounded
// ranges are never fetched.
func NormalizeRange(start, end *time.Time, now time.Time) (time.Time, time.Time) {
	s := now.AddDate(0, -DefaultGraphWindow, 0)
	e := now
	if start != nil {
		s = *start
	}
	if end != nil {
		e = *end
	}
	if s.After(now) {
		s = now
	}
	if e.After(now) {
		e = now
	}
	if s.After(e) {
		s, e = e, s
	}
	return s, e
}
