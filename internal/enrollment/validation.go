package enrollment

import (
	"fmt"
	"strings"
)

const (
	FieldFullName = "fullName"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldCountry  = "country"
	FieldState    = "state"
	FieldCity     = "city"
)

// Form is the registration form. Every field is required.
type Form struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate returns one error per required field that is blank after trimming,
// in form order.
func Validate(form Form) []ValidationError {
	var errors []ValidationError

	fields := []struct {
		name  string
		value string
	}{
		{FieldFullName, form.FullName},
		{FieldEmail, form.Email},
		{FieldPhone, form.Phone},
		{FieldCountry, form.Country},
		{FieldState, form.State},
		{FieldCity, form.City},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			errors = append(errors, ValidationError{f.name, "is required"})
		}
	}

	return errors
}

// FormReady drives the enroll button: enabled only when every required field is filled.
func FormReady(form Form) bool {
	return len(Validate(form)) == 0
}
