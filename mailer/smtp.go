package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TLSMode is "auto", "starttls", "ssl" or "none". Default "auto".
	TLSMode string

	// InsecureSkipVerify disables certificate checks. Development only.
	InsecureSkipVerify bool

	// BaseURL prefixes the activation and reset paths in the emails.
	BaseURL string
}

// SMTP sends the verification emails through an SMTP server.
type SMTP struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTP(cfg SMTPConfig, logger *zap.Logger) *SMTP {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTP{cfg: cfg, logger: logger}
}

func (s *SMTP) SendActivationEmail(ctx context.Context, p *polyauth.Profile, tokenUUID string) error {
	link := s.cfg.BaseURL + "/signup/" + tokenUUID
	html := fmt.Sprintf("<p>Hi %s,</p><p>Follow <a href=%q>this link</a> to activate your account.</p>", p.DisplayName, link)
	text := fmt.Sprintf("Hi %s,\n\nVisit %s to activate your account.\n", p.DisplayName, link)
	return s.send(p.Email, "Activate your account", html, text)
}

func (s *SMTP) SendPasswordResetEmail(ctx context.Context, p *polyauth.Profile, tokenUUID string) error {
	link := s.cfg.BaseURL + "/reset/" + tokenUUID
	html := fmt.Sprintf("<p>Hi %s,</p><p>Follow <a href=%q>this link</a> to reset your password. The link is valid for one hour.</p>", p.DisplayName, link)
	text := fmt.Sprintf("Hi %s,\n\nVisit %s to reset your password. The link is valid for one hour.\n", p.DisplayName, link)
	return s.send(p.Email, "Reset your password", html, text)
}

func (s *SMTP) send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	}

	if err := d.DialAndSend(m); err != nil {
		s.logger.Error("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
