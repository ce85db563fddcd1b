// Package worker turns the expense event stream into the persistent audit
// trail.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/storage"
)

// AuditWorker appends one audit row per expense mutation event. Entries are
// append-only and survive the deletion of both the expense and its owner.
type AuditWorker struct {
	store *storage.SQLiteRepository
}

func NewAuditWorker(store *storage.SQLiteRepository) *AuditWorker {
	return &AuditWorker{store: store}
}

// HandleEvent records a single expense event. A returned error requeues the
// delivery, so the insert must stay idempotent-friendly: the audit log has no
// unique constraints and duplicate rows from redelivery are acceptable.
func (w *AuditWorker) HandleEvent(msg *amqp.ExpenseEventMessage) error {
	return w.HandleEventContext(context.Background(), msg)
}

// HandleEventContext is HandleEvent with an explicit context, used directly
// by tests and by callers that carry deadlines.
func (w *AuditWorker) HandleEventContext(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	if !validAction(msg.Action) {
		// Unknown actions are a producer bug, not a transient fault. Log and
		// drop instead of requeuing forever.
		slog.WarnContext(ctx, "dropping event with unknown action",
			"action", msg.Action,
			"expense_id", msg.ExpenseID)
		return nil
	}

	entry := storage.AuditEntry{
		ExpenseID:  msg.ExpenseID,
		OwnerID:    msg.OwnerID,
		ActorID:    msg.ActorID,
		Action:     msg.Action,
		OccurredAt: msg.Timestamp,
	}
	if err := w.store.InsertAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	slog.InfoContext(ctx, "recorded audit entry",
		"expense_id", msg.ExpenseID,
		"owner_id", msg.OwnerID,
		"actor_id", msg.ActorID,
		"action", msg.Action)
	return nil
}

// Run consumes expense events until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeExpenseEvents(ctx, w.HandleEvent)
}

func validAction(action string) bool {
	switch action {
	case amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted:
		return true
	}
	return false
}
