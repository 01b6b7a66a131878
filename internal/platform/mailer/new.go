package mailer

import (
	"fmt"

	"github.com/diagnosis/tunisia-tours/pkg/config"
)

// New picks the transport named by EMAIL_PROVIDER.
func New(cfg config.EmailConfig) (Transport, error) {
	switch cfg.Provider {
	case "", "dev":
		return NewDevMailer(nil), nil
	case "smtp":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail, cfg.FromName, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS), nil
	case "mailersend":
		m := NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail)
		if !m.Enabled {
			return nil, fmt.Errorf("mailersend selected but MAILERSEND_API_KEY or MAIL_FROM is empty")
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}
}
