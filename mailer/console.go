// Package mailer delivers the activation and password reset emails of the
// sign-up flows. Console logs the links for development; SMTP sends real
// mail through go-mail.
package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

// Console writes the verification links to the log instead of sending
// mail. Meant for development setups without an SMTP server.
type Console struct {
	// BaseURL prefixes the activation and reset paths, e.g.
	// "http://localhost:8080".
	BaseURL string
	Logger  *zap.Logger
}

func NewConsole(baseURL string, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{BaseURL: baseURL, Logger: logger}
}

func (c *Console) SendActivationEmail(ctx context.Context, p *polyauth.Profile, tokenUUID string) error {
	c.Logger.Info("activation email",
		zap.String("to", p.Email),
		zap.String("link", c.BaseURL+"/signup/"+tokenUUID))
	return nil
}

func (c *Console) SendPasswordResetEmail(ctx context.Context, p *polyauth.Profile, tokenUUID string) error {
	c.Logger.Info("password reset email",
		zap.String("to", p.Email),
		zap.String("link", c.BaseURL+"/reset/"+tokenUUID))
	return nil
}
