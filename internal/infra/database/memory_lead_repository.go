package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

// MemoryLeadRepository keeps leads for the lifetime of the process.
// All writes go through one lock, so concurrent submissions and webhook
// reconciliations never interleave.
type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads []*entity.Lead
}

func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{}
}

func (r *MemoryLeadRepository) Append(ctx context.Context, lead *entity.Lead) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := *lead
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.leads = append(r.leads, &stored)
	r.mu.Unlock()

	lead.ID = stored.ID
	lead.Timestamp = stored.Timestamp
	return stored.ID, nil
}

// List returns copies so callers cannot mutate stored leads.
func (r *MemoryLeadRepository) List(ctx context.Context) ([]*entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryLeadRepository) MarkPaymentCompleted(ctx context.Context, email, paymentID string) (*entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.leads {
		if l.Email == email {
			return completed(l, paymentID), nil
		}
	}
	return nil, nil
}

func (r *MemoryLeadRepository) MarkPaymentCompletedByID(ctx context.Context, leadID, email, paymentID string) (*entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.leads {
		if l.ID == leadID {
			if email != "" && l.Email != email {
				return nil, nil
			}
			if l.IsPaid() {
				return nil, entity.ErrLeadAlreadyPaid
			}
			return completed(l, paymentID), nil
		}
	}
	return nil, nil
}

// completed applies the transition under the caller's lock and returns a copy,
// or nil when the lead was already paid.
func completed(l *entity.Lead, paymentID string) *entity.Lead {
	if !l.CompletePayment(paymentID) {
		return nil
	}
	cp := *l
	return &cp
}
