// Package mailer sends plain-text notification email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventcal/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/wneessen/go-mail"
)

// SMTPSender delivers mail through one SMTP relay. STARTTLS is required
// before authentication. Send never reports failure to the caller; every
// error is logged.
type SMTPSender struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg config.EmailConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers one message, retrying transient failures.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) {
	if !s.cfg.Enabled() {
		s.logger.Debug("Email disabled, skipping send.", "to", to, "subject", subject)
		return
	}

	msg, err := newMessage(s.cfg.From, to, subject, body)
	if err != nil {
		s.logger.Error("Email send failed", "to", to, "error", err)
		return
	}
	client, err := s.newClient()
	if err != nil {
		s.logger.Error("Email send failed", "to", to, "error", err)
		return
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.Retries)), ctx)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := client.DialAndSendWithContext(ctx, msg); err != nil {
			s.logger.Debug("Email attempt failed", "to", to, "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, retry)
	if err != nil {
		s.logger.Error("Email send failed", "to", to, "attempts", attempt, "error", err)
		return
	}
	s.logger.Info("Email sent", "to", to, "subject", subject)
}

func (s *SMTPSender) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Pass),
		)
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

func newMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
