// Package email implements the outbound mail collaborator: verification and
// password-reset messages delivered over SMTP. Send failures surface to the
// caller; nothing here retries.
package email

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrSendFailed   = errors.New("email: send failed")
	ErrInvalidInput = errors.New("email: invalid input")
)

// Sender delivers a single message.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Service renders and sends the identity-core messages. It implements
// auth.Mailer.
type Service struct {
	sender  Sender
	baseURL string
}

// NewService builds the mail service. baseURL is the public address of this
// service, used to build confirmation links.
func NewService(sender Sender, baseURL string) (*Service, error) {
	if sender == nil {
		return nil, ErrInvalidInput
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrInvalidInput
	}
	return &Service{sender: sender, baseURL: baseURL}, nil
}

func (s *Service) link(path, rawToken string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(rawToken)
}

// SendVerification mails the account-verification link.
func (s *Service) SendVerification(ctx context.Context, to, rawToken string) error {
	if to == "" || rawToken == "" {
		return ErrInvalidInput
	}
	link := s.link("/v1/auth/verify", rawToken)
	html, text, err := renderVerification(to, link)
	if err != nil {
		return err
	}
	if err := s.sender.Send(to, "Verify your account", html, text); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// SendPasswordReset mails the password-reset link. The link points at the
// redirect endpoint, which validates the token before forwarding to the
// frontend form.
func (s *Service) SendPasswordReset(ctx context.Context, to, rawToken string) error {
	if to == "" || rawToken == "" {
		return ErrInvalidInput
	}
	link := s.link("/v1/auth/reset-password", rawToken)
	html, text, err := renderReset(to, link)
	if err != nil {
		return err
	}
	if err := s.sender.Send(to, "Reset your password", html, text); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
