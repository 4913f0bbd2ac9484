package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
)

// Config wires a Mailer. Credentials come from the environment via the
// config layer, never from YAML.
type Config struct {
	Host          string
	Port          int
	Sender        string
	Password      string
	Recipient     string
	SubjectPrefix string
}

// Mailer sends the digest email. One Send per run.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewMailer validates the delivery configuration.
func NewMailer(cfg Config, logger *slog.Logger) (*Mailer, error) {
	if cfg.Sender == "" || cfg.Password == "" {
		return nil, errors.New("email credentials not configured, set GMAIL_ADDRESS and GMAIL_APP_PASSWORD")
	}
	if cfg.Recipient == "" {
		return nil, errors.New("recipient email not configured, set RECIPIENT_EMAIL")
	}
	if cfg.Host == "" {
		return nil, errors.New("smtp host not configured")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}, nil
}

// Send renders the digest and delivers it over STARTTLS SMTP.
// Screenshots ride along twice, embedded inline for the HTML body and
// attached for download.
func (m *Mailer) Send(ctx context.Context, d *digest.Digest) error {
	html, images, err := Render(d)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.cfg.Recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(Subject(m.cfg.SubjectPrefix, d.TotalPosts(), time.Now()))
	msg.SetBodyString(mail.TypeTextHTML, html)

	// Render only returns paths that exist on disk; a file that
	// disappears before delivery surfaces as a send error.
	for _, img := range images {
		msg.EmbedFile(img.Path, mail.WithFileContentID(img.CID))
	}
	for _, img := range images {
		msg.AttachFile(img.Path)
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Sender),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	m.logger.Info("sending digest email", "to", m.cfg.Recipient, "posts", d.TotalPosts(), "images", len(images))

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("smtp authentication failed, Gmail requires an app password from https://myaccount.google.com/apppasswords: %w", err)
		}
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	m.logger.Info("digest email sent", "to", m.cfg.Recipient)
	return nil
}

// isAuthError recognizes SMTP authentication rejections. The server
// reply survives as a textproto error inside the dial failure: 535 is
// the generic credential rejection, 534 is Gmail asking for an app
// password.
func isAuthError(err error) bool {
	var tp *textproto.Error
	if !errors.As(err, &tp) {
		return false
	}
	return tp.Code == 534 || tp.Code == 535
}
