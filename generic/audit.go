/*
audit.go - Who changed which balance, when

PURPOSE:
  Balance records are mutable, so every change is mirrored into an
  append-only audit trail: one entry per field update (old and new value)
  and one summary entry per rollover run.

SEE ALSO:
  - leave/service.go: field updates from approvals, cancellations, adjustments
  - leave/rollover.go: rollover summary entries
*/
package generic

import (
	"context"
	"time"
)

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string // who performed the action
	Action    AuditAction
	Subject   string // employee email, or "*" for bulk operations
	Year      int
	Payload   map[string]any // action-specific data
}

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditRequestCanceled  AuditAction = "request_canceled"
	AuditBalanceUpdated   AuditAction = "balance_field_updated"
	AuditRollover         AuditAction = "year_end_rollover"
)

// FieldChange builds the payload of an AuditBalanceUpdated entry.
func FieldChange(field string, oldValue, newValue any) map[string]any {
	return map[string]any{
		"field":     field,
		"old_value": oldValue,
		"new_value": newValue,
	}
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	Subject *string
	Actions []AuditAction
	Year    *int
}

// Matches reports whether e passes every set filter field.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.Subject != nil && *f.Subject != e.Subject {
		return false
	}
	if f.Year != nil && *f.Year != e.Year {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if a == e.Action {
			return true
		}
	}
	return false
}
