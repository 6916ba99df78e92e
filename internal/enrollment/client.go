package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

// LeadSubmission is the /api/save-user body.
type LeadSubmission struct {
	Form
	IPInfo        entity.GeoInfo `json:"ipInfo"`
	PaymentMethod string         `json:"paymentMethod"`
}

type PaymentRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	PlanName      string `json:"planName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	LeadID        string `json:"leadId,omitempty"`
}

type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type SubscriptionStatus struct {
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// APIClient talks to the enrollment server over HTTP.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) GeoInfo(ctx context.Context) (entity.GeoInfo, error) {
	var geo entity.GeoInfo
	err := c.do(ctx, http.MethodGet, "/api/ip-info", nil, &geo)
	return geo, err
}

func (c *APIClient) SaveLead(ctx context.Context, lead LeadSubmission) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/save-user", lead, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *APIClient) CreatePaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/create-payment-intent", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) CreateCheckoutSession(ctx context.Context, req PaymentRequest) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/create-checkout-session", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) SubscriptionStatus(ctx context.Context, subscriptionID string) (*SubscriptionStatus, error) {
	var out SubscriptionStatus
	path := "/subscription-status/" + url.PathEscape(subscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
