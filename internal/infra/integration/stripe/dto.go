package stripe

type PaymentIntentInput struct {
	Amount        int64
	Currency      string
	PlanName      string
	CustomerEmail string
	CustomerName  string
	LeadID        string
}

type PaymentIntentOutput struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type SubscriptionInput struct {
	PriceID       string
	CustomerEmail string
	CustomerName  string
}

type SubscriptionOutput struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
	CustomerID     string `json:"-"`
}

type SubscriptionStatusOutput struct {
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// CheckoutSessionInput drives the hosted-redirect path.
type CheckoutSessionInput struct {
	Amount        int64
	Currency      string
	PlanName      string
	CustomerEmail string
	CustomerName  string
	LeadID        string
}

type CheckoutSessionOutput struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Metadata keys written on payment intents and read back by the webhook.
const (
	MetadataPlan   = "plan"
	MetadataEmail  = "email"
	MetadataName   = "name"
	MetadataLeadID = "lead_id"
)
