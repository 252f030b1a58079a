package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/fault"
)

// Sender delivers one email. *sendgrid.Client satisfies it.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends notifications by email through SendGrid.
type Mailer struct {
	sender  Sender
	from    *mail.Email
	to      *mail.Email
	retries uint64
	delay   time.Duration
	logger  *slog.Logger
}

// MailerOption configures a Mailer.
type MailerOption func(*Mailer)

// WithSender replaces the SendGrid client.
func WithSender(sender Sender) MailerOption {
	return func(m *Mailer) {
		m.sender = sender
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) MailerOption {
	return func(m *Mailer) {
		m.logger = logger
	}
}

// NewMailer creates a mailer from the notify configuration.
func NewMailer(cfg config.NotifyConfig, opts ...MailerOption) *Mailer {
	m := &Mailer{
		sender:  sendgrid.NewSendClient(cfg.APIKey),
		from:    mail.NewEmail(AppName, cfg.From),
		to:      mail.NewEmail("", cfg.To),
		retries: uint64(max(cfg.Retries, 0)),
		delay:   time.Duration(cfg.RetryDelaySec) * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New returns a Mailer when notifications are enabled and Disabled otherwise.
func New(cfg config.NotifyConfig, opts ...MailerOption) Notifier {
	if !cfg.Enabled {
		return Disabled{}
	}
	return NewMailer(cfg, opts...)
}

// SendFailure emails the full error detail.
func (m *Mailer) SendFailure(ctx context.Context, err error) (Delivery, error) {
	detail := err.Error()
	if fe, ok := fault.As(err); ok {
		detail = fe.Detail()
	}

	subject := fmt.Sprintf("%s: Critical Error", AppName)
	body := fmt.Sprintf("The registration run stopped.\n\n%s", detail)
	markup := fmt.Sprintf("<p>The registration run stopped.</p><pre>%s</pre>", html.EscapeString(detail))

	return m.send(ctx, subject, body, markup)
}

// SendSuccess emails the registered course.
func (m *Mailer) SendSuccess(ctx context.Context, courseID string) (Delivery, error) {
	subject := fmt.Sprintf("%s: Registration Success", AppName)
	body := fmt.Sprintf("Successfully registered to course %s.", courseID)
	markup := fmt.Sprintf("<strong>Successfully registered to course %s.</strong>", html.EscapeString(courseID))

	return m.send(ctx, subject, body, markup)
}

func (m *Mailer) send(ctx context.Context, subject, plain, markup string) (Delivery, error) {
	message := mail.NewSingleEmail(m.from, subject, m.to, plain, markup)

	attempt := 0
	operation := func() error {
		attempt++
		resp, err := m.sender.SendWithContext(ctx, message)
		if err != nil {
			m.logger.Warn("email send failed", "subject", subject, "attempt", attempt, "error", err)
			return err
		}
		if resp.StatusCode == http.StatusAccepted {
			return nil
		}

		statusErr := fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, resp.Body)
		if resp.StatusCode >= 500 {
			m.logger.Warn("email provider unavailable", "subject", subject, "attempt", attempt, "status", resp.StatusCode)
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.delay), m.retries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return Skipped, fmt.Errorf("failed to send %q: %w", subject, err)
	}

	m.logger.Info("email sent", "subject", subject, "attempts", attempt)
	return Delivered, nil
}
