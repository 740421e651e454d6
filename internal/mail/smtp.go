// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

// DefaultSMTPTimeout bounds dialing and each SMTP exchange.
const DefaultSMTPTimeout = 10 * time.Second

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages through an SMTP relay. STARTTLS is used
// when the server offers it; PLAIN auth is used when a username is set.
type SMTPSender struct {
	cfg     SMTPConfig
	now     func() time.Time
	timeout time.Duration
}

// NewSMTPSender validates cfg and creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if err := gomail.NewMsg().From(cfg.From); err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("from", cfg.From).Wrap(err)
	}

	s := &SMTPSender{cfg: cfg, now: time.Now, timeout: DefaultSMTPTimeout}
	if _, err := s.client(s.timeout); err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("addr", s.addr()).Wrap(err)
	}
	return s, nil
}

func (s *SMTPSender) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// client builds a go-mail client for one delivery. Clients hold the
// connection, so each Send gets its own.
func (s *SMTPSender) client(timeout time.Duration) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return gomail.NewClient(s.cfg.Host, opts...)
}

// message builds the RFC 5322 message for msg with a UTF-8 text body.
func (s *SMTPSender) message(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("from", s.cfg.From).Wrap(err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, oops.Code("MAIL_INVALID_MESSAGE").With("to", msg.To).Wrap(err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now().UTC())
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

// Send delivers msg. A deadline on ctx shortens the per-exchange timeout.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.message(msg)
	if err != nil {
		return err
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return oops.Code("SMTP_DIAL_FAILED").With("addr", s.addr()).Wrap(context.DeadlineExceeded)
	}

	client, err := s.client(timeout)
	if err != nil {
		return oops.Code("MAIL_CONFIG_INVALID").With("addr", s.addr()).Wrap(err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return oops.Code("SMTP_DIAL_FAILED").With("addr", s.addr()).Wrap(err)
	}

	if err := client.Send(m); err != nil {
		_ = client.Close()
		return sendFailure(err, msg)
	}
	if err := client.Close(); err != nil {
		return oops.Code("SMTP_QUIT_FAILED").Wrap(err)
	}
	return nil
}

// sendFailure maps a go-mail delivery error onto a stable code.
func sendFailure(err error, msg Message) error {
	var sendErr *gomail.SendError
	if !errors.As(err, &sendErr) {
		return oops.Code("SMTP_SEND_FAILED").Wrap(err)
	}

	b := oops.With("temporary", sendErr.IsTemp())
	switch sendErr.Reason {
	case gomail.ErrSMTPMailFrom:
		return b.Code("SMTP_SENDER_REJECTED").Wrap(err)
	case gomail.ErrSMTPRcptTo:
		return b.Code("SMTP_RECIPIENT_REJECTED").With("to", msg.To).Wrap(err)
	case gomail.ErrSMTPData, gomail.ErrSMTPDataClose, gomail.ErrWriteContent:
		return b.Code("SMTP_DATA_FAILED").Wrap(err)
	default:
		return b.Code("SMTP_SEND_FAILED").Wrap(err)
	}
}
