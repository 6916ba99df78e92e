package usecase

import (
	"context"
	"strings"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

type SaveLeadUseCase struct {
	Repo entity.LeadRepository
	logg *logger.Logger
}

func NewSaveLeadUseCase(repo entity.LeadRepository, logg *logger.Logger) *SaveLeadUseCase {
	if logg == nil {
		logg = logger.Nop()
	}
	return &SaveLeadUseCase{Repo: repo, logg: logg}
}

// Execute stores the submitted form as-is. Field validation happens in the
// enrollment workflow, so an incomplete lead is still recorded.
func (uc *SaveLeadUseCase) Execute(ctx context.Context, input SaveLeadInput) (*SaveLeadOutput, error) {
	lead := entity.NewLead(
		strings.TrimSpace(input.FullName),
		strings.TrimSpace(input.Email),
		strings.TrimSpace(input.Phone),
		input.Country,
		input.State,
		input.City,
		input.PaymentMethod,
		input.IP,
		input.IPInfo,
	)

	id, err := uc.Repo.Append(ctx, lead)
	if err != nil {
		return nil, &TechnicalError{
			Code:    CodeLeadSaveFailed,
			Message: "Failed to save user data",
			Err:     err,
		}
	}

	uc.logg.Info(uc.logg.WithFields(ctx, map[string]any{
		"lead_id":        id,
		"payment_method": lead.PaymentMethod,
		"country":        lead.Country,
	}), "lead saved")

	return &SaveLeadOutput{Success: true, UserID: id}, nil
}
