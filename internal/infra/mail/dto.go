package mail

type ConfirmationEmailData struct {
	Name      string
	Plan      string
	Amount    string
	PaymentID string
}

type EmailSender struct {
	From   string
	dialer dialer
}
