// README: SMTP notifier rendering embedded HTML templates per notification kind.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
	mail "gopkg.in/mail.v2"

	"pickmeup/internal/config"
	"pickmeup/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrNoRecipient = errors.New("notify: recipient has no email address")

const (
	subjectReceived  = "New pick-up request - PickMeUp"
	subjectAccepted  = "Request accepted - PickMeUp"
	subjectRejected  = "Request rejected - PickMeUp"
	subjectCancelled = "Request cancelled - PickMeUp"
)

// mailSender is satisfied by *mail.Dialer.
type mailSender interface {
	DialAndSend(m ...*mail.Message) error
}

type Email struct {
	sender    mailSender
	fromEmail string
	fromName  string
	templates *template.Template
	log       logrus.FieldLogger
}

func NewEmail(cfg config.SMTPConfig, log logrus.FieldLogger) (*Email, error) {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = cfg.Timeout
	return newEmail(d, cfg.FromEmail, cfg.FromName, log)
}

func newEmail(sender mailSender, fromEmail, fromName string, log logrus.FieldLogger) (*Email, error) {
	tpl, err := template.New("mail").Funcs(template.FuncMap{"when": formatWhen}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Email{
		sender:    sender,
		fromEmail: fromEmail,
		fromName:  fromName,
		templates: tpl,
		log:       log.WithField("notifier", "email"),
	}, nil
}

func (e *Email) NotifyRequestReceived(ctx context.Context, m RequestReceived) error {
	return e.send(ctx, m.Owner, subjectReceived, "request_received.html", m)
}

func (e *Email) NotifyRequestStatusChanged(ctx context.Context, m StatusChanged) error {
	subject := subjectRejected
	if m.Status == types.RequestAccepted {
		subject = subjectAccepted
	}
	return e.send(ctx, m.Requester, subject, "status_changed.html", m)
}

func (e *Email) NotifyRequestCancelled(ctx context.Context, m RequestCancelled) error {
	return e.send(ctx, m.Owner, subjectCancelled, "request_cancelled.html", m)
}

func (e *Email) send(ctx context.Context, to types.Contact, subject, tpl string, data any) error {
	if to.Email == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := e.templates.ExecuteTemplate(&body, tpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tpl, err)
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", e.fromEmail, e.fromName)
	msg.SetAddressHeader("To", to.Email, to.FirstName)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	// DialAndSend takes no context; the dialer timeout ends the goroutine.
	done := make(chan error, 1)
	go func() { done <- e.sender.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to user %s: %w", to.UserID, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send mail to user %s: %w", to.UserID, ctx.Err())
	}
	e.log.WithFields(logrus.Fields{"user_id": to.UserID, "subject": subject}).Info("email sent")
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "an unknown date"
	}
	return t.UTC().Format("Mon 2 Jan 2006 15:04 UTC")
}
