package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodEmbedded       = "embedded"
	PaymentMethodHostedRedirect = "hosted-redirect"

	PaymentStatusCompleted = "completed"
)

// ErrLeadAlreadyPaid is returned when a lead addressed by id has already been completed.
var ErrLeadAlreadyPaid = errors.New("lead payment already completed")

// Lead is a prospective customer's submitted registration data.
type Lead struct {
	ID            string    `json:"id"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Country       string    `json:"country"`
	State         string    `json:"state"`
	City          string    `json:"city"`
	IPInfo        GeoInfo   `json:"ipInfo"`
	PaymentMethod string    `json:"paymentMethod"`
	Timestamp     time.Time `json:"timestamp"`
	IP            string    `json:"ip"`

	// Empty until a succeeded payment is reconciled against this lead.
	PaymentStatus string `json:"paymentStatus,omitempty"`
	PaymentID     string `json:"paymentId,omitempty"`
}

// NewLead stamps id and creation time on a lead built from form data.
func NewLead(fullName, email, phone, country, state, city, paymentMethod, ip string, geo GeoInfo) *Lead {
	return &Lead{
		ID:            uuid.New().String(),
		FullName:      fullName,
		Email:         email,
		Phone:         phone,
		Country:       country,
		State:         state,
		City:          city,
		IPInfo:        geo,
		PaymentMethod: NormalizePaymentMethod(paymentMethod),
		Timestamp:     time.Now().UTC(),
		IP:            ip,
	}
}

func (l *Lead) IsPaid() bool {
	return l.PaymentStatus == PaymentStatusCompleted
}

// CompletePayment applies the only allowed status transition: absent -> completed.
// It reports whether the lead changed.
func (l *Lead) CompletePayment(paymentID string) bool {
	if l.IsPaid() {
		return false
	}
	l.PaymentStatus = PaymentStatusCompleted
	l.PaymentID = paymentID
	return true
}

// NormalizePaymentMethod maps form values onto the two supported payment paths.
// Anything that is not the hosted redirect is treated as the embedded card flow.
func NormalizePaymentMethod(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case PaymentMethodHostedRedirect, "checkout", "redirect":
		return PaymentMethodHostedRedirect
	default:
		return PaymentMethodEmbedded
	}
}

type LeadRepository interface {
	Append(ctx context.Context, lead *Lead) (string, error)
	List(ctx context.Context) ([]*Lead, error)
	// MarkPaymentCompleted updates the first lead, in insertion order, with the given email
	// and returns a copy of it. A nil lead means nothing changed; no match is not an error.
	MarkPaymentCompleted(ctx context.Context, email, paymentID string) (*Lead, error)
	// MarkPaymentCompletedByID updates the lead with the id, only when its email equals
	// the given one. An empty email skips that check. A matching lead that is already
	// paid yields ErrLeadAlreadyPaid.
	MarkPaymentCompletedByID(ctx context.Context, leadID, email, paymentID string) (*Lead, error)
}
