package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xavierca1/pmp-enrollment/internal/config"
	"github.com/xavierca1/pmp-enrollment/internal/infra/queue"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templateFS, "templates/confirmation.html"))

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(cfg config.MailConfig) *EmailSender {
	return &EmailSender{
		From:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// SendEnrollmentConfirmation emails the customer once their payment has been reconciled.
func (s *EmailSender) SendEnrollmentConfirmation(ctx context.Context, event queue.PaymentCompletedEvent) error {
	if event.Email == "" {
		return fmt.Errorf("payment %s has no recipient", event.PaymentID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := event.FullName
	if name == "" {
		name = "there"
	}
	plan := event.Plan
	if plan == "" {
		plan = "your program"
	}

	var body bytes.Buffer
	err := confirmationTmpl.Execute(&body, ConfirmationEmailData{
		Name:      name,
		Plan:      plan,
		Amount:    FormatAmount(event.Amount, event.Currency),
		PaymentID: event.PaymentID,
	})
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", event.Email)
	m.SetHeader("Subject", fmt.Sprintf("You're enrolled in %s", plan))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp email: %w", err)
	}
	return nil
}

// FormatAmount renders minor units as a two-decimal amount, e.g. 1999900 inr -> "INR 19999.00".
func FormatAmount(minor int64, currency string) string {
	amount := decimal.New(minor, -2).StringFixed(2)
	if currency == "" {
		return amount
	}
	return strings.ToUpper(currency) + " " + amount
}
