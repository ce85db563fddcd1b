// Package services holds the application layer: validation, scoping,
// and orchestration between storage and the event stream.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/policy"
	"tally/internal/storage"
)

// EventPublisher publishes expense mutation events. A nil publisher
// disables the audit stream without affecting expense operations.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
}

// ExpenseService runs every expense operation through the same pipeline:
// validate the input, derive the caller's scope, hit storage, then
// announce the mutation. Event publishing is best-effort and never fails
// the request.
type ExpenseService struct {
	store  *storage.SQLiteRepository
	events EventPublisher
}

func NewExpenseService(store *storage.SQLiteRepository, events EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, events: events}
}

// Create validates and persists a new expense. A plain user can only
// create expenses they own; privileged callers may set any owner.
func (s *ExpenseService) Create(ctx context.Context, actor core.Identity, draft core.Expense) (core.Expense, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return core.Expense{}, err
	}
	if draft.UserID == 0 {
		draft.UserID = actor.UserID
	}
	if !scope.Allows(draft.UserID) {
		return core.Expense{}, core.ErrAccessDenied
	}
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, draft)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, created.ID, created.UserID, actor.UserID, amqp.ActionCreated)
	return created, nil
}

// Get loads one expense visible to the caller.
func (s *ExpenseService) Get(ctx context.Context, actor core.Identity, id int64) (core.Expense, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return core.Expense{}, err
	}
	return s.store.GetExpense(ctx, scope, id)
}

// Update rewrites an expense the caller can see. The stored owner is
// preserved regardless of what the input carries.
func (s *ExpenseService) Update(ctx context.Context, actor core.Identity, e core.Expense) (core.Expense, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.UpdateExpense(ctx, scope, e); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.GetExpense(ctx, scope, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("reload updated expense: %w", err)
	}

	s.publish(ctx, updated.ID, updated.UserID, actor.UserID, amqp.ActionUpdated)
	return updated, nil
}

// Delete removes an expense if the caller can see it. Deleting an
// expense that is already gone succeeds without an event: the desired
// end state holds and there is nothing to audit.
func (s *ExpenseService) Delete(ctx context.Context, actor core.Identity, id int64) error {
	scope, err := policy.For(actor)
	if err != nil {
		return err
	}

	existing, err := s.store.GetExpense(ctx, scope, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteExpense(ctx, scope, id); err != nil {
		return err
	}

	s.publish(ctx, existing.ID, existing.UserID, actor.UserID, amqp.ActionDeleted)
	return nil
}

// List returns the caller's visible expenses, newest first. Bounds are
// optional and each side is open when absent: the full result set loads
// by default, and only the dashboard views apply a default window.
func (s *ExpenseService) List(ctx context.Context, actor core.Identity, start, end *time.Time) ([]core.Expense, error) {
	scope, err := policy.For(actor)
	if err != nil {
		return nil, err
	}
	var from, to time.Time
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return s.store.ListExpenses(ctx, scope, from, to)
}

func (s *ExpenseService) publish(ctx context.Context, expenseID, ownerID, actorID int64, action string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewExpenseEventMessage(expenseID, ownerID, actorID, action)
	if err := s.events.PublishExpenseEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", expenseID, "action", action, "error", err)
	}
}
