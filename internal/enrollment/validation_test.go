package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeForm() Form {
	return Form{
		FullName: "A B",
		Email:    "a@b.com",
		Phone:    "123",
		Country:  "IN",
		State:    "MH",
		City:     "Pune",
	}
}

func TestValidateCompleteForm(t *testing.T) {
	assert.Empty(t, Validate(completeForm()))
	assert.True(t, FormReady(completeForm()))
}

func TestValidateReportsEachBlankField(t *testing.T) {
	form := completeForm()
	form.Email = "   "
	form.City = ""

	errs := Validate(form)

	assert.Equal(t, []ValidationError{
		{Field: FieldEmail, Message: "is required"},
		{Field: FieldCity, Message: "is required"},
	}, errs)
	assert.False(t, FormReady(form))
	assert.Equal(t, "email: is required", errs[0].Error())
}

func TestValidateEmptyForm(t *testing.T) {
	assert.Len(t, Validate(Form{}), 6)
}

func TestStateBusy(t *testing.T) {
	for _, s := range []State{StateValidating, StateAwaitingLeadSave, StateAwaitingIntent, StateConfirming} {
		assert.True(t, s.Busy(), s.String())
	}
	for _, s := range []State{StateIdle, StateSuccess, StateError} {
		assert.False(t, s.Busy(), s.String())
	}
	assert.Equal(t, "awaiting_intent", StateAwaitingIntent.String())
}
