package stripe

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// UpstreamPaymentError is returned for any failure talking to Stripe.
// Message is safe to hand back to the caller.
type UpstreamPaymentError struct {
	Op      string
	Message string
	Err     error
}

func (e *UpstreamPaymentError) Error() string {
	return fmt.Sprintf("stripe %s: %s", e.Op, e.Message)
}

func (e *UpstreamPaymentError) Unwrap() error {
	return e.Err
}

func IsUpstreamPaymentError(err error) bool {
	var upstream *UpstreamPaymentError
	return errors.As(err, &upstream)
}

func upstreamError(op string, err error) error {
	msg := err.Error()
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		msg = se.Msg
	}
	return &UpstreamPaymentError{Op: op, Message: msg, Err: err}
}
