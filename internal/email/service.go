// Package email delivers transactional mail for account flows: invitations,
// password resets, and setup confirmations. When delivery is disabled the
// service logs the would-be message and reports success, so account flows
// behave identically in environments without a mail provider.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/campus-life-events/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service sends transactional email via SMTP or the Resend API depending on
// configuration.
type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	logger       zerolog.Logger
	resendClient *resend.Client
}

type inviteData struct {
	RecipientName string
	SetupLink     string
	ExpiresIn     string
	CurrentYear   int
}

type resetData struct {
	ResetLink   string
	ExpiresIn   string
	CurrentYear int
}

type welcomeData struct {
	RecipientName string
	CurrentYear   int
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	s := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled && cfg.Provider == "resend" {
		s.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return s, nil
}

// SendOrganizerInvite mails the setup link for a freshly created organizer
// account.
func (s *Service) SendOrganizerInvite(ctx context.Context, to, organizerName, setupToken string, validity time.Duration) error {
	link, err := s.tokenLink(s.config.RegistrationBaseURL, setupToken)
	if err != nil {
		return fmt.Errorf("invalid setup link: %w", err)
	}
	data := inviteData{
		RecipientName: organizerName,
		SetupLink:     link,
		ExpiresIn:     formatValidity(validity),
		CurrentYear:   time.Now().Year(),
	}
	return s.deliver(ctx, to, "Your Campus Life Events account", "organizer_invite.html", data)
}

// SendAdminInvite mails the setup link for a new administrator account.
func (s *Service) SendAdminInvite(ctx context.Context, to, displayName, setupToken string, validity time.Duration) error {
	link, err := s.tokenLink(s.config.RegistrationBaseURL, setupToken)
	if err != nil {
		return fmt.Errorf("invalid setup link: %w", err)
	}
	data := inviteData{
		RecipientName: displayName,
		SetupLink:     link,
		ExpiresIn:     formatValidity(validity),
		CurrentYear:   time.Now().Year(),
	}
	return s.deliver(ctx, to, "You have been invited as a Campus Life Events administrator", "admin_invite.html", data)
}

// SendWelcome confirms a completed account setup.
func (s *Service) SendWelcome(ctx context.Context, to, displayName string) error {
	data := welcomeData{
		RecipientName: displayName,
		CurrentYear:   time.Now().Year(),
	}
	return s.deliver(ctx, to, "Welcome to Campus Life Events", "welcome.html", data)
}

// SendPasswordReset mails a reset link for an existing account.
func (s *Service) SendPasswordReset(ctx context.Context, to, resetToken string, validity time.Duration) error {
	link, err := s.tokenLink(s.config.ResetBaseURL, resetToken)
	if err != nil {
		return fmt.Errorf("invalid reset link: %w", err)
	}
	data := resetData{
		ResetLink:   link,
		ExpiresIn:   formatValidity(validity),
		CurrentYear: time.Now().Year(),
	}
	return s.deliver(ctx, to, "Reset your Campus Life Events password", "password_reset.html", data)
}

func (s *Service) deliver(ctx context.Context, to, subject, templateName string, data any) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("template", templateName).
			Msg("email delivery disabled, skipping")
		return nil
	}

	htmlBody, err := s.renderTemplate(templateName, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}

	switch s.config.Provider {
	case "resend":
		err = s.sendViaResend(ctx, to, subject, htmlBody)
	default:
		err = s.sendViaSMTP(to, subject, htmlBody)
	}
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("to", to).
		Str("template", templateName).
		Msg("email sent")
	return nil
}

// tokenLink appends the token as a query parameter to the configured base
// URL, rejecting anything that is not a plain http(s) URL.
func (s *Service) tokenLink(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL scheme: %s (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must have a host")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// validateEmailAddress checks format and rejects header injection attempts.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

func formatValidity(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	hours := int(d.Hours())
	if hours%24 == 0 {
		days := hours / 24
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d hours", hours)
}

// sendViaSMTP sends over a STARTTLS connection, as required by common
// providers on port 587.
func (s *Service) sendViaSMTP(to, subject, htmlBody string) error {
	from := s.config.From
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var msg bytes.Buffer
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("start TLS: %w", err)
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit SMTP connection: %w", err)
	}
	return nil
}

func (s *Service) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
