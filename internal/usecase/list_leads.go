package usecase

import (
	"context"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

type ListLeadsUseCase struct {
	Repo entity.LeadRepository
}

func NewListLeadsUseCase(repo entity.LeadRepository) *ListLeadsUseCase {
	return &ListLeadsUseCase{Repo: repo}
}

// Execute returns every stored lead in insertion order, unpaginated.
func (uc *ListLeadsUseCase) Execute(ctx context.Context) ([]*entity.Lead, error) {
	leads, err := uc.Repo.List(ctx)
	if err != nil {
		return nil, &TechnicalError{
			Code:    CodeLeadListFailed,
			Message: "Failed to load user data",
			Err:     err,
		}
	}
	return leads, nil
}
