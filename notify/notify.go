/*
notify.go - Notification sinks for leave events

PURPOSE:
  Implements leave.Notifier. LogNotifier writes a structured log line,
  MailNotifier sends the message over SMTP, Multi fans out to several sinks.

SEE ALSO:
  leave/request.go, leave/rollover.go: where notifications are raised
*/
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// =============================================================================
// LOG
// =============================================================================

type LogNotifier struct {
	Log *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg leave.Notification) error {
	n.Log.WithContext(ctx).WithFields(log.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"attachments": len(msg.Attachments),
	}).Info("notification")
	return nil
}

// =============================================================================
// MAIL
// =============================================================================

type MailNotifier struct {
	From string
	send func(...*gomail.Message) error
}

// NewMailNotifier dials the configured relay for every message.
func NewMailNotifier(cfg config.MailConfig) *MailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &MailNotifier{From: cfg.From, send: d.DialAndSend}
}

// NewMailNotifierWithSender sends through s instead of dialing.
func NewMailNotifierWithSender(from string, s gomail.Sender) *MailNotifier {
	return &MailNotifier{From: from, send: func(m ...*gomail.Message) error { return gomail.Send(s, m...) }}
}

func (n *MailNotifier) Notify(_ context.Context, msg leave.Notification) error {
	if len(msg.To) == 0 {
		return errors.New("notify: no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	for _, path := range msg.Attachments {
		m.Attach(path)
	}

	if err := n.send(m); err != nil {
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}
	return nil
}

// =============================================================================
// FAN-OUT
// =============================================================================

// Multi delivers to every sink and joins their errors.
type Multi []leave.Notifier

func (m Multi) Notify(ctx context.Context, msg leave.Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig returns a log sink, plus SMTP when a relay is configured.
func FromConfig(cfg config.MailConfig, logger *log.Logger) leave.Notifier {
	sinks := Multi{LogNotifier{Log: logger}}
	if cfg.Enabled() {
		sinks = append(sinks, NewMailNotifier(cfg))
	}
	return sinks
}
