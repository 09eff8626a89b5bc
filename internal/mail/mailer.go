package mail

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// Mailer is the app-facing sender. Sends run off the request path; failures
// are logged, never surfaced to the caller.
type Mailer interface {
	SendWelcome(ctx context.Context, u *types.User)
	SendCompletionReceipt(ctx context.Context, u *types.User, c *types.Case, a *types.CaseAttempt)
}

// NewFromEnv returns the SendGrid mailer when SENDGRID_API_KEY is set and a
// logging no-op otherwise, so mail stays optional in dev.
func NewFromEnv(log *logger.Logger) (Mailer, error) {
	cfg := ConfigFromEnv()
	if cfg.APIKey == "" {
		log.Info("SENDGRID_API_KEY not set, mail disabled")
		return &noopMailer{log: log.With("mailer", "noop")}, nil
	}
	cl, err := NewClient(log, cfg)
	if err != nil {
		return nil, err
	}
	return &mailer{log: log.With("mailer", "sendgrid"), client: cl}, nil
}

type mailer struct {
	log    *logger.Logger
	client Client
}

func (m *mailer) SendWelcome(ctx context.Context, u *types.User) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return
	}
	msg := Message{
		To:      []Address{{Email: u.Email, Name: displayName(u)}},
		Subject: "Welcome to OptoCase",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour OptoCase account is ready. Browse the case catalog and start your first attempt whenever you like.\n",
			greetingName(u)),
	}
	m.send(ctx, "welcome", u.Email, msg)
}

func (m *mailer) SendCompletionReceipt(ctx context.Context, u *types.User, c *types.Case, a *types.CaseAttempt) {
	if u == nil || strings.TrimSpace(u.Email) == "" || c == nil || a == nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYou completed the case %q", greetingName(u), c.Title)
	if a.CompletedAt != nil {
		body += fmt.Sprintf(" on %s", a.CompletedAt.Format("Jan 2, 2006 15:04 MST"))
	}
	body += ".\n"
	if pdf := strings.TrimSpace(a.PDFURL); pdf != "" {
		body += fmt.Sprintf("\nYour write-up: %s\n", pdf)
	}
	msg := Message{
		To:      []Address{{Email: u.Email, Name: displayName(u)}},
		Subject: fmt.Sprintf("Case completed: %s", c.Title),
		Text:    body,
	}
	m.send(ctx, "completion_receipt", u.Email, msg)
}

// send runs the API call on its own goroutine with a fresh context, so a
// finished request cannot cancel it mid-flight.
func (m *mailer) send(ctx context.Context, kind, to string, msg Message) {
	go func() {
		res, err := m.client.Send(context.Background(), msg)
		if err != nil {
			m.log.Warn("mail send failed", "kind", kind, "to", to, "error", err)
			return
		}
		m.log.Info("mail sent", "kind", kind, "to", to, "status", res.StatusCode, "message_id", res.MessageID)
	}()
}

type noopMailer struct {
	log *logger.Logger
}

func (m *noopMailer) SendWelcome(ctx context.Context, u *types.User) {
	if u != nil {
		m.log.Debug("mail suppressed", "kind", "welcome", "to", u.Email)
	}
}

func (m *noopMailer) SendCompletionReceipt(ctx context.Context, u *types.User, c *types.Case, a *types.CaseAttempt) {
	if u != nil {
		m.log.Debug("mail suppressed", "kind", "completion_receipt", "to", u.Email)
	}
}

func displayName(u *types.User) string {
	n := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if n == "" {
		return u.Username
	}
	return n
}

func greetingName(u *types.User) string {
	if f := strings.TrimSpace(u.FirstName); f != "" {
		return f
	}
	return u.Username
}
