package services

import (
	"context"
	"time"

	"tally/internal/core"
	"tally/internal/policy"
	"tally/internal/storage"
)

// How many expenses the dashboard's recent list shows.
const recentLimit = 5

// Dashboard is the fully derived view model for one caller and window.
// Every slice is computed from a single scoped load of the expense set.
type Dashboard struct {
	Start        time.Time
	End          time.Time
	Totals       core.Summary
	ByCategory   []core.CategoryBucket
	Recent       []core.Expense
	ByDay        []core.DayBucket
	ByMonth      []core.MonthBucket
	AverageDaily core.Money
	// ByUser is populated only for privileged callers; a plain user's
	// dashboard never breaks down by owner.
	ByUser []core.UserBucket
}

// Graph is the time-series slice of the dashboard.
type Graph struct {
	Start        time.Time
	End          time.Time
	ByDay        []core.DayBucket
	AverageDaily core.Money
}

type DashboardService struct {
	store *storage.SQLiteRepository
}

func NewDashboardService(store *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{store: store}
}

// Dashboard derives the caller's dashboard over [start, end]. Missing
// or degenerate bounds are normalized before anything is queried.
func (s *DashboardService) Dashboard(ctx context.Context, actor core.Identity, start, end *time.Time) (Dashboard, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return Dashboard{}, err
	}

	from, to := core.NormalizeRange(start, end, time.Now().UTC())
	expenses, err := s.store.ListExpenses(ctx, scope, from, to)
	if err != nil {
		return Dashboard{}, err
	}

	days := core.ByDay(expenses)
	d := Dashboard{
		Start:        from,
		End:          to,
		Totals:       core.Totals(expenses),
		ByCategory:   core.ByCategory(expenses),
		Recent:       core.Recent(expenses, recentLimit),
		ByDay:        days,
		ByMonth:      core.ByMonth(expenses),
		AverageDaily: core.AverageDaily(days),
	}

	if scope.All {
		dir, err := s.store.OwnerDirectory(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		d.ByUser = core.ByUser(expenses, func(id int64) (core.OwnerInfo, bool) {
			info, ok := dir[id]
			return info, ok
		})
	}

	return d, nil
}

// Graph derives the per-day series and its daily average over the
// normalized window.
func (s *DashboardService) Graph(ctx context.Context, actor core.Identity, start, end *time.Time) (Graph, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return Graph{}, err
	}

	from, to := core.NormalizeRange(start, end, time.Now().UTC())
	expenses, err := s.store.ListExpenses(ctx, scope, from, to)
	if err != nil {
		return Graph{}, err
	}

	days := core.ByDay(expenses)
	return Graph{
		Start:        from,
		End:          to,
		ByDay:        days,
		AverageDaily: core.AverageDaily(days),
	}, nil
}
