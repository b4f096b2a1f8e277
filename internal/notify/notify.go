// Package notify sends transactional email about tracked jobs.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Noop is used when SMTP is not configured.
type Noop struct{}

func (Noop) Send(context.Context, string, string, string) error { return nil }

type SMTPSender struct {
	from string
	send func(m ...*gomail.Message) error
}

// NewSender returns an SMTP sender, or Noop when no host is configured.
func NewSender(cfg config.Config) Sender {
	if strings.TrimSpace(cfg.SMTP.Host) == "" {
		return Noop{}
	}
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTP.Host}
	from := cfg.SMTP.From
	if from == "" {
		from = cfg.SMTP.Username
	}
	return &SMTPSender{from: from, send: d.DialAndSend}
}

// NewSMTPSenderWith delivers through s instead of dialing a server.
func NewSMTPSenderWith(from string, s gomail.Sender) *SMTPSender {
	return &SMTPSender{from: from, send: func(m ...*gomail.Message) error { return gomail.Send(s, m...) }}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := s.send(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Alerts turns job events into messages. Delivery failures are logged only.
type Alerts struct {
	Sender       Sender
	DefaultTo    string
	DashboardURL string
}

func (a Alerts) recipient(j domain.Job) string {
	if j.UserEmail != "" {
		return j.UserEmail
	}
	return a.DefaultTo
}

func (a Alerts) deliver(ctx context.Context, to, subject, body string) {
	if a.Sender == nil || to == "" {
		return
	}
	if err := a.Sender.Send(ctx, to, subject, body); err != nil {
		log.Printf("[notify] %v", err)
	}
}

// JobFlagged warns about a listing analyzed as FAKE or SUSPICIOUS.
func (a Alerts) JobFlagged(ctx context.Context, j domain.Job) {
	if j.Analysis == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The listing \"%s\" at %s was analyzed as %s (risk %d/100).\n\n",
		j.Title, j.Company, j.Analysis.Verdict, j.Analysis.RiskScore)
	if j.Analysis.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", j.Analysis.Summary)
	}
	if len(j.Analysis.RedFlags) > 0 {
		b.WriteString("Red flags:\n")
		for _, f := range j.Analysis.RedFlags {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		b.WriteString("\n")
	}
	if j.Analysis.Recommendation != "" {
		fmt.Fprintf(&b, "Recommendation: %s\n", j.Analysis.Recommendation)
	}
	fmt.Fprintf(&b, "\nListing: %s\n", j.URL)
	a.footer(&b)

	subject := fmt.Sprintf("[JobSentry] %s listing: %s", strings.ToLower(string(j.Analysis.Verdict)), j.Company)
	a.deliver(ctx, a.recipient(j), subject, b.String())
}

// StatusChanged tells the user a tracked application moved on.
func (a Alerts) StatusChanged(ctx context.Context, j domain.Job, from domain.Status) {
	var b strings.Builder
	fmt.Fprintf(&b, "Your application for \"%s\" at %s moved from %s to %s.\n", j.Title, j.Company, from, j.Status)
	if n := len(j.StatusHistory); n > 0 && j.StatusHistory[n-1].Note != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", j.StatusHistory[n-1].Note)
	}
	a.footer(&b)

	subject := fmt.Sprintf("[JobSentry] %s: %s", j.Company, j.Status)
	a.deliver(ctx, a.recipient(j), subject, b.String())
}

func (a Alerts) footer(b *strings.Builder) {
	if a.DashboardURL != "" {
		fmt.Fprintf(b, "\nOpen your dashboard: %s\n", a.DashboardURL)
	}
}
