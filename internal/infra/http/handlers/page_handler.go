package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/xavierca1/pmp-enrollment/internal/infra/mail"
)

// PageData is rendered into the landing page once at startup.
type PageData struct {
	PlanName       string
	Amount         int64
	Currency       string
	PublishableKey string
}

type PageHandler struct {
	body []byte
}

// NewPageHandler renders the page template eagerly so a broken template fails at boot.
func NewPageHandler(page string, data PageData) (*PageHandler, error) {
	tmpl, err := template.New("index").Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		PageData
		PriceLabel string
	}{data, mail.FormatAmount(data.Amount, data.Currency)}); err != nil {
		return nil, fmt.Errorf("render landing page: %w", err)
	}
	return &PageHandler{body: buf.Bytes()}, nil
}

func (h *PageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}
