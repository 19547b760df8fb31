package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/campus-life-events/server/internal/config"
	"github.com/rs/zerolog"
)

func disabledService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.EmailConfig{
		Enabled:             false,
		From:                "noreply@campus-life.example",
		RegistrationBaseURL: "https://campus-life.example/register",
		ResetBaseURL:        "https://campus-life.example/reset-password",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSendSkipsWhenDisabled(t *testing.T) {
	svc := disabledService(t)
	ctx := context.Background()

	if err := svc.SendOrganizerInvite(ctx, "chess-club@uni.example", "Chess Club", "tok", 7*24*time.Hour); err != nil {
		t.Errorf("SendOrganizerInvite: %v", err)
	}
	if err := svc.SendAdminInvite(ctx, "admin@uni.example", "Second Admin", "tok", 7*24*time.Hour); err != nil {
		t.Errorf("SendAdminInvite: %v", err)
	}
	if err := svc.SendWelcome(ctx, "chess-club@uni.example", "Chess Club"); err != nil {
		t.Errorf("SendWelcome: %v", err)
	}
	if err := svc.SendPasswordReset(ctx, "chess-club@uni.example", "tok", 10*time.Minute); err != nil {
		t.Errorf("SendPasswordReset: %v", err)
	}
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	svc := disabledService(t)

	err := svc.SendWelcome(context.Background(), "not-an-address", "Chess Club")
	if err == nil {
		t.Fatal("expected error for invalid recipient")
	}

	err = svc.SendWelcome(context.Background(), "victim@example.com\r\nBcc: attacker@evil.com", "Chess Club")
	if err == nil {
		t.Fatal("expected error for header injection attempt")
	}
}

func TestTokenLink(t *testing.T) {
	svc := disabledService(t)

	link, err := svc.tokenLink("https://campus-life.example/register", "abc_-123")
	if err != nil {
		t.Fatalf("tokenLink: %v", err)
	}
	if link != "https://campus-life.example/register?token=abc_-123" {
		t.Errorf("unexpected link: %s", link)
	}

	link, err = svc.tokenLink("https://campus-life.example/register?lang=de", "tok")
	if err != nil {
		t.Fatalf("tokenLink with existing query: %v", err)
	}
	if !strings.Contains(link, "lang=de") || !strings.Contains(link, "token=tok") {
		t.Errorf("link lost a query parameter: %s", link)
	}
}

func TestTokenLinkRejectsUnsafeSchemes(t *testing.T) {
	svc := disabledService(t)

	for _, base := range []string{
		"javascript:alert(1)",
		"data:text/html,payload",
		"ftp://example.com/register",
		"/register",
	} {
		if _, err := svc.tokenLink(base, "tok"); err == nil {
			t.Errorf("expected error for base URL %q", base)
		}
	}
}

func TestNewServiceRejectsBadSender(t *testing.T) {
	_, err := NewService(config.EmailConfig{
		Enabled:  true,
		Provider: "smtp",
		SMTPHost: "smtp.example.com",
		From:     "broken sender",
	}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for invalid sender address")
	}
}

func TestFormatValidity(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Minute, "10 minutes"},
		{6 * time.Hour, "6 hours"},
		{24 * time.Hour, "1 day"},
		{7 * 24 * time.Hour, "7 days"},
	}
	for _, tt := range tests {
		if got := formatValidity(tt.d); got != tt.want {
			t.Errorf("formatValidity(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
