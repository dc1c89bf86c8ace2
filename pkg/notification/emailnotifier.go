package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection settings for the email notifier
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	// SecurityMailbox receives a notice for every impersonation grant
	SecurityMailbox string
}

const impersonationNoticeSubject = "Impersonation grant issued"

const impersonationNoticeText = `An administrator started impersonating a client account.

Admin:      {{.AdminID}}
Target:     {{.TargetUserID}} ({{.TargetEmail}})
Issued at:  {{.IssuedAt}}
Expires at: {{.ExpiresAt}}

This notice is informational. The grant is recorded in the impersonation audit log.
`

// EmailNotifier sends impersonation notices to the security mailbox over SMTP
type EmailNotifier struct {
	config SMTPConfig
	client *mail.Client
	tmpl   *template.Template
}

// NewEmailNotifier creates a new SMTP-backed security notifier
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30),
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	tmpl, err := template.New("impersonation_notice").Parse(impersonationNoticeText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notice template: %w", err)
	}

	return &EmailNotifier{config: config, client: client, tmpl: tmpl}, nil
}

// NotifyImpersonation sends a grant notice to the security mailbox
func (e *EmailNotifier) NotifyImpersonation(ctx context.Context, notice GrantNotice) error {
	if e.config.SecurityMailbox == "" {
		return fmt.Errorf("security mailbox not configured")
	}

	var body bytes.Buffer
	if err := e.tmpl.Execute(&body, notice); err != nil {
		slog.Error("Failed to execute notice template", "err", err)
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.config.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := msg.To(e.config.SecurityMailbox); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	msg.Subject(impersonationNoticeSubject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send impersonation notice", "err", err)
		return err
	}

	return nil
}
