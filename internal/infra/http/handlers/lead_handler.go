package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
	"github.com/xavierca1/pmp-enrollment/internal/usecase"
)

const (
	msgSaveFailed = "Failed to save user data"
	msgListFailed = "Failed to load user data"
)

type LeadSaver interface {
	Execute(ctx context.Context, input usecase.SaveLeadInput) (*usecase.SaveLeadOutput, error)
}

type LeadLister interface {
	Execute(ctx context.Context) ([]*entity.Lead, error)
}

type LeadHandler struct {
	saver  LeadSaver
	lister LeadLister
	logg   *logger.Logger
}

func NewLeadHandler(saver LeadSaver, lister LeadLister, logg *logger.Logger) *LeadHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LeadHandler{saver: saver, lister: lister, logg: logg}
}

// SaveUser records the submitted form together with the caller's address.
func (h *LeadHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input usecase.SaveLeadInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input.IP = middleware.ClientIP(r)

	out, err := h.saver.Execute(ctx, input)
	if err != nil {
		h.logg.Error(ctx, "save lead failed", err)
		writeError(w, http.StatusInternalServerError, technicalMessage(err, msgSaveFailed))
		return
	}

	middleware.RecordLeadCaptured(entity.NormalizePaymentMethod(input.PaymentMethod))
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	leads, err := h.lister.Execute(ctx)
	if err != nil {
		h.logg.Error(ctx, "list leads failed", err)
		writeError(w, http.StatusInternalServerError, technicalMessage(err, msgListFailed))
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func technicalMessage(err error, fallback string) string {
	var te *usecase.TechnicalError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return fallback
}
