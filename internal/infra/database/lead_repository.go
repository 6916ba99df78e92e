package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

// LeadRepository stores leads in Postgres. seq carries insertion order.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Append(ctx context.Context, lead *entity.Lead) (string, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Timestamp.IsZero() {
		lead.Timestamp = time.Now().UTC()
	}

	ipInfo, err := json.Marshal(lead.IPInfo)
	if err != nil {
		return "", fmt.Errorf("encode ip info: %w", err)
	}

	query := `
		INSERT INTO leads (id, full_name, email, phone, country, state, city, ip_info, payment_method, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.FullName,
		lead.Email,
		lead.Phone,
		lead.Country,
		lead.State,
		lead.City,
		ipInfo,
		lead.PaymentMethod,
		lead.IP,
		lead.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", fmt.Errorf("lead %s already stored: %w", lead.ID, err)
		}
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return lead.ID, nil
}

const leadColumns = `id, full_name, email, phone, country, state, city, ip_info, payment_method, ip, created_at,
	COALESCE(payment_status, ''), COALESCE(payment_id, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l      entity.Lead
		ipInfo []byte
	)
	if err := row.Scan(
		&l.ID, &l.FullName, &l.Email, &l.Phone, &l.Country, &l.State, &l.City,
		&ipInfo, &l.PaymentMethod, &l.IP, &l.Timestamp,
		&l.PaymentStatus, &l.PaymentID,
	); err != nil {
		return nil, err
	}
	if len(ipInfo) > 0 {
		if err := json.Unmarshal(ipInfo, &l.IPInfo); err != nil {
			return nil, fmt.Errorf("decode ip info for lead %s: %w", l.ID, err)
		}
	}
	return &l, nil
}

func (r *LeadRepository) List(ctx context.Context) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := []*entity.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// MarkPaymentCompleted targets the earliest lead for the email. A lead that is
// already completed is left alone.
func (r *LeadRepository) MarkPaymentCompleted(ctx context.Context, email, paymentID string) (*entity.Lead, error) {
	query := `
		UPDATE leads
		SET payment_status = $3, payment_id = $2
		WHERE seq = (SELECT seq FROM leads WHERE email = $1 ORDER BY seq ASC LIMIT 1)
		  AND payment_status IS NULL
		RETURNING ` + leadColumns
	return r.markCompleted(ctx, query, email, paymentID, entity.PaymentStatusCompleted)
}

func (r *LeadRepository) MarkPaymentCompletedByID(ctx context.Context, leadID, email, paymentID string) (*entity.Lead, error) {
	if _, err := uuid.Parse(leadID); err != nil {
		return nil, nil
	}
	query := `
		UPDATE leads
		SET payment_status = $3, payment_id = $2
		WHERE id = $1 AND ($4::text = '' OR email = $4) AND payment_status IS NULL
		RETURNING ` + leadColumns
	lead, err := r.markCompleted(ctx, query, leadID, paymentID, entity.PaymentStatusCompleted, email)
	if err != nil || lead != nil {
		return lead, err
	}

	var paid bool
	err = r.DB.QueryRowContext(ctx,
		`SELECT payment_status IS NOT NULL FROM leads WHERE id = $1 AND ($2::text = '' OR email = $2)`,
		leadID, email,
	).Scan(&paid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("check lead payment: %w", err)
	case paid:
		return nil, entity.ErrLeadAlreadyPaid
	}
	return nil, nil
}

func (r *LeadRepository) markCompleted(ctx context.Context, query string, args ...any) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, query, args...)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark payment completed: %w", err)
	}
	return lead, nil
}
