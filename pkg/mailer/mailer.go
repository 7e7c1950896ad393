package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	texttemplate "text/template"
)

var (
	ErrNoRecipient        = errors.New("mailer: no recipient")
	ErrTemplateNotFound   = errors.New("mailer: template not found")
	ErrLayoutNotFound     = errors.New("mailer: layout not found")
	ErrRenderFailed       = errors.New("mailer: render failed")
	ErrSendFailed         = errors.New("mailer: send failed")
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")
)

// Config holds template defaults.
type Config struct {
	FallbackSubject string `env:"MAILER_FALLBACK_SUBJECT" envDefault:"Notification"`
	DefaultLayout   string `env:"MAILER_DEFAULT_LAYOUT" envDefault:"base.html"`
}

// Email is a rendered message ready for delivery.
type Email struct {
	To          []string
	From        string // empty uses the sender's default
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Tags        map[string]string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email *Email) error

func (f SenderFunc) Send(ctx context.Context, email *Email) error { return f(ctx, email) }

// Mailer renders templates and sends the result.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	cfg      Config
}

func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, cfg: cfg}
}

// SendParams describes one templated email.
type SendParams struct {
	To       string
	Template string // file name, e.g. "reset_password.md"
	Data     any

	Subject string // overrides the frontmatter subject
	Layout  string // overrides Config.DefaultLayout
	ReplyTo string
	Tags    map[string]string
}

// Send renders params.Template and delivers it. Rendering errors wrap
// ErrRenderFailed and delivery errors wrap ErrSendFailed.
func (m *Mailer) Send(ctx context.Context, params SendParams) error {
	if params.To == "" {
		return ErrNoRecipient
	}

	layout := params.Layout
	if layout == "" {
		layout = m.cfg.DefaultLayout
	}

	res, err := m.renderer.Render(layout, params.Template, params.Data)
	if err != nil {
		return err
	}

	subject := params.Subject
	if subject == "" {
		subject, _ = res.Metadata["Subject"].(string)
	}
	if subject == "" {
		subject = m.cfg.FallbackSubject
	}
	if subject, err = executeString("subject", subject, params.Data); err != nil {
		return fmt.Errorf("%w: subject: %v", ErrRenderFailed, err)
	}

	email := &Email{
		To:      []string{params.To},
		ReplyTo: params.ReplyTo,
		Subject: subject,
		HTML:    res.HTML,
		Text:    res.Text,
		Tags:    params.Tags,
	}
	if err := m.sender.Send(ctx, email); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func executeString(name, src string, data any) (string, error) {
	tmpl, err := texttemplate.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogSender writes emails to the log instead of delivering them.
// Used when no provider is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, email *Email) error {
	s.log.InfoContext(ctx, "email not delivered, no provider configured",
		slog.Any("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("text", email.Text),
	)
	return nil
}

// Address formats "Name <email>", or just email when name is empty.
func Address(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
