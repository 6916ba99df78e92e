package usecase

import "errors"

const (
	CodeLeadSaveFailed  = "LEAD_SAVE_FAILED"
	CodeLeadListFailed  = "LEAD_LIST_FAILED"
	CodeInvalidEvent    = "INVALID_EVENT"
	CodeReconcileFailed = "RECONCILE_FAILED"
)

// DomainError is a failure caused by the input; handlers map it to 4xx.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is an infrastructure failure; Message is safe to return to clients.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}
