package storage

import (
	"context"
	"time"

	"tally/internal/core"
)

// AuditEntry records one expense mutation as observed by the audit
// worker. Entries outlive the expenses they describe.
type AuditEntry struct {
	ID         int64
	ExpenseID  int64
	OwnerID    int64
	ActorID    int64
	Action     string
	OccurredAt time.Time
}

// InsertAuditEntry appends one entry to the audit log.
func (r *SQLiteRepository) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (expense_id, owner_id, actor_id, action, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ExpenseID, e.OwnerID, e.ActorID, e.Action, e.OccurredAt)
	if err != nil {
		return &core.StorageError{Op: "insert audit entry", Err: err}
	}
	return nil
}

// RecentAuditEntries returns the newest entries, most recent first.
func (r *SQLiteRepository) RecentAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_id, owner_id, actor_id, action, occurred_at
		FROM audit_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &core.StorageError{Op: "recent audit entries", Err: err}
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ExpenseID, &e.OwnerID, &e.ActorID, &e.Action, &e.OccurredAt); err != nil {
			return nil, &core.StorageError{Op: "recent audit entries", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "recent audit entries", Err: err}
	}
	return entries, nil
}
