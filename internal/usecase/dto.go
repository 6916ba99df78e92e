package usecase

import "github.com/xavierca1/pmp-enrollment/internal/entity"

// SaveLeadInput is the /api/save-user body. IP is filled from the request, not the body.
type SaveLeadInput struct {
	FullName      string         `json:"fullName"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Country       string         `json:"country"`
	State         string         `json:"state"`
	City          string         `json:"city"`
	IPInfo        entity.GeoInfo `json:"ipInfo"`
	PaymentMethod string         `json:"paymentMethod"`
	IP            string         `json:"-"`
}

type SaveLeadOutput struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// ReconcileResult reports what a webhook event did, mostly for logs and tests.
type ReconcileResult struct {
	EventType string
	Handled   bool
	Lead      *entity.Lead
}
