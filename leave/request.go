package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// =============================================================================
// REQUEST SERVICE - Request lifecycle with a guarded balance effect
// =============================================================================

var validate = validator.New()

// SubmitInput is what a collaborator hands over when an employee applies.
type SubmitInput struct {
	Title          string `validate:"required,max=200"`
	Detail         string `validate:"max=2000"`
	StartDate      string `validate:"required,datetime=2006-01-02"`
	EndDate        string `validate:"required,datetime=2006-01-02"`
	LeaveType      string `validate:"required,oneof=annual sick maternity parental family adoption study wellness"`
	RequesterEmail string `validate:"required,email"`
	ApproverEmail  string `validate:"required,email"`
	IsHalfDay      bool
}

type RequestService struct {
	Store    Store
	Clock    generic.Clock
	Mode     ModeSource
	Notifier Notifier
	Log      *log.Logger
}

func NewRequestService(store Store, clock generic.Clock, mode ModeSource, notifier Notifier, logger *log.Logger) *RequestService {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if mode == nil {
		mode = normalMode{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RequestService{Store: store, Clock: clock, Mode: mode, Notifier: notifier, Log: logger}
}

// Submit validates the input, freezes the unit count against the holiday
// calendar and stores a pending request.
func (rs *RequestService) Submit(ctx context.Context, in SubmitInput) (*LeaveRequest, error) {
	if rs.Mode.MaintenanceMode() {
		return nil, generic.ErrMaintenanceMode
	}
	if err := validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}
	t, err := ParseLeaveType(in.LeaveType)
	if err != nil {
		return nil, err
	}
	start, err := generic.ParseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := generic.ParseDate(in.EndDate)
	if err != nil {
		return nil, err
	}
	period, err := generic.NewPeriod(start, end)
	if err != nil {
		return nil, err
	}

	cal, err := ResolverFor(ctx, rs.Store, period)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	units, err := RequestUnits(t, start, end, cal, in.IsHalfDay)
	if err != nil {
		return nil, err
	}
	if units.IsZero() {
		return nil, generic.NewValidationError("dates", "range contains no working days")
	}

	now := rs.Clock.Now()
	req := LeaveRequest{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Detail:         in.Detail,
		Start:          start,
		End:            end,
		Type:           t,
		RequesterEmail: in.RequesterEmail,
		ApproverEmail:  in.ApproverEmail,
		Status:         RequestPending,
		IsHalfDay:      in.IsHalfDay,
		Units:          units,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := rs.Store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	rs.audit(ctx, req.RequesterEmail, generic.AuditRequestSubmitted, req)
	rs.notify(ctx, Notification{
		To:      []string{req.ApproverEmail},
		Subject: fmt.Sprintf("Leave request from %s", req.RequesterEmail),
		Body: fmt.Sprintf("%s requested %s %s leave from %s to %s.",
			req.RequesterEmail, req.Units, req.Type.Unit(), req.Start, req.End),
	})
	return &req, nil
}

// Approve moves a pending request to approved and charges the balance. An
// approved request whose balance effect is missing is repaired instead.
// The effect is claimed in the same write that changes the status, so
// only one caller ever charges it.
func (rs *RequestService) Approve(ctx context.Context, id, approverID string) (*LeaveRequest, error) {
	if rs.Mode.MaintenanceMode() {
		return nil, generic.ErrMaintenanceMode
	}
	req, err := rs.Store.UpdateRequest(ctx, id, func(r *LeaveRequest) error {
		switch {
		case r.Status == RequestPending:
			r.Status = RequestApproved
		case r.Status == RequestApproved && !r.BalanceUpdated:
		default:
			return fmt.Errorf("approve %s request %s: %w", r.Status, r.ID, generic.ErrInvalidTransition)
		}
		r.BalanceUpdated = true
		r.UpdatedAt = rs.Clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	rs.audit(ctx, approverID, generic.AuditRequestApproved, *req)

	if err := rs.applyClaimed(ctx, req, ActionApprove, approverID); err != nil {
		return req, err
	}
	rs.notify(ctx, Notification{
		To:      []string{req.RequesterEmail},
		Subject: "Leave request approved",
		Body:    fmt.Sprintf("Your %s leave from %s to %s was approved.", req.Type, req.Start, req.End),
	})
	return req, nil
}

// Reject closes a pending request. No balance effect.
func (rs *RequestService) Reject(ctx context.Context, id, approverID string) (*LeaveRequest, error) {
	if rs.Mode.MaintenanceMode() {
		return nil, generic.ErrMaintenanceMode
	}
	req, err := rs.Store.UpdateRequest(ctx, id, func(r *LeaveRequest) error {
		if r.Status != RequestPending {
			return fmt.Errorf("reject %s request %s: %w", r.Status, r.ID, generic.ErrInvalidTransition)
		}
		r.Status = RequestRejected
		r.UpdatedAt = rs.Clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	rs.audit(ctx, approverID, generic.AuditRequestRejected, *req)
	rs.notify(ctx, Notification{
		To:      []string{req.RequesterEmail},
		Subject: "Leave request rejected",
		Body:    fmt.Sprintf("Your %s leave from %s to %s was rejected.", req.Type, req.Start, req.End),
	})
	return req, nil
}

// Cancel moves an approved request to cancelled and restores the balance.
// A cancelled request still holding its charge is repaired instead.
func (rs *RequestService) Cancel(ctx context.Context, id, actorID string) (*LeaveRequest, error) {
	if rs.Mode.MaintenanceMode() {
		return nil, generic.ErrMaintenanceMode
	}
	charged := false
	req, err := rs.Store.UpdateRequest(ctx, id, func(r *LeaveRequest) error {
		charged = r.BalanceUpdated
		switch {
		case r.Status == RequestApproved:
			r.Status = RequestCancelled
		case r.Status == RequestCancelled && r.BalanceUpdated:
		default:
			return fmt.Errorf("cancel %s request %s: %w", r.Status, r.ID, generic.ErrInvalidTransition)
		}
		r.BalanceUpdated = false
		r.UpdatedAt = rs.Clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	rs.audit(ctx, actorID, generic.AuditRequestCanceled, *req)

	if charged {
		if err := rs.applyClaimed(ctx, req, ActionCancel, actorID); err != nil {
			return req, err
		}
	}
	rs.notify(ctx, Notification{
		To:      []string{req.RequesterEmail, req.ApproverEmail},
		Subject: "Leave request cancelled",
		Body:    fmt.Sprintf("The %s leave from %s to %s was cancelled and the balance restored.", req.Type, req.Start, req.End),
	})
	return req, nil
}

// applyClaimed writes the balance effect the caller has already claimed by
// flipping req.BalanceUpdated. When the balance write fails the claim is
// released so the same call can be retried as a repair.
func (rs *RequestService) applyClaimed(ctx context.Context, req *LeaveRequest, action Action, actorID string) error {
	claimed := req.BalanceUpdated
	logger := rs.Log.WithContext(ctx).WithFields(log.Fields{
		"request": req.ID,
		"record":  RecordKey(req.RequesterEmail, req.BalanceYear()),
		"action":  action,
	})

	var change FieldUpdate
	_, err := rs.Store.UpdateBalance(ctx, req.RequesterEmail, req.BalanceYear(), func(r *BalanceRecord) error {
		c, err := ApplyLeaveEffect(r, req.Type, req.Units, action)
		if err != nil {
			return err
		}
		change = c
		r.UpdatedAt = rs.Clock.Now()
		return nil
	})
	if err != nil {
		logger.WithError(err).Error("request status changed but balance was not updated")
		released, relErr := rs.Store.UpdateRequest(ctx, req.ID, func(r *LeaveRequest) error {
			if r.BalanceUpdated == claimed {
				r.BalanceUpdated = !claimed
				r.UpdatedAt = rs.Clock.Now()
			}
			return nil
		})
		if relErr != nil {
			logger.WithError(relErr).Error("balance flag could not be released")
			return fmt.Errorf("apply %s to balance: %w", action, errors.Join(generic.ErrTransactionFailed, err, relErr))
		}
		*req = *released
		return fmt.Errorf("apply %s to balance: %w", action, err)
	}
	if change.New.IsNegative() {
		logger.WithField("value", change.New.String()).Warn("used counter went negative")
	}
	appendAudit(ctx, rs.Store, rs.Clock, rs.Log, generic.AuditEntry{
		ActorID: actorID,
		Action:  generic.AuditBalanceUpdated,
		Subject: req.RequesterEmail,
		Year:    req.BalanceYear(),
		Payload: generic.FieldChange(change.Field, change.Old.String(), change.New.String()),
	})
	return nil
}

func (rs *RequestService) audit(ctx context.Context, actorID string, action generic.AuditAction, req LeaveRequest) {
	appendAudit(ctx, rs.Store, rs.Clock, rs.Log, generic.AuditEntry{
		ActorID: actorID,
		Action:  action,
		Subject: req.RequesterEmail,
		Year:    req.BalanceYear(),
		Payload: map[string]any{
			"request_id": req.ID,
			"leave_type": req.Type.String(),
			"units":      req.Units.String(),
			"status":     string(req.Status),
		},
	})
}

func (rs *RequestService) notify(ctx context.Context, n Notification) {
	if err := rs.Notifier.Notify(ctx, n); err != nil {
		rs.Log.WithContext(ctx).WithError(err).WithField("subject", n.Subject).Warn("notification not sent")
	}
}

// toValidationError turns validator output into the first offending field.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return generic.NewValidationError(strings.ToLower(fe.Field()), reason)
	}
	return generic.NewValidationError("input", err.Error())
}
