// Package vendors handles supplier onboarding: open registration, then an
// explicit reviewed transition before a vendor becomes usable.
package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"peopleops/internal/tenant"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	ErrRegistrationNotFound = errors.New("vendor registration not found")
	ErrAlreadyReviewed      = errors.New("vendor registration already reviewed")
	ErrInvalidDecision      = errors.New("review decision must be approved or rejected")
)

type Registration struct {
	ID           string     `json:"id"`
	CompanyName  string     `json:"companyName"`
	ContactName  string     `json:"contactName"`
	ContactEmail string     `json:"contactEmail"`
	Phone        string     `json:"phone,omitempty"`
	Services     string     `json:"services,omitempty"`
	BankName     string     `json:"bankName,omitempty"`
	BankAccount  string     `json:"bankAccount,omitempty"`
	Status       string     `json:"status"`
	ReviewedBy   *string    `json:"reviewedBy,omitempty"`
	ReviewNote   string     `json:"reviewNote,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Submit(ctx context.Context, h *tenant.Handle, r Registration) (Registration, error) {
	r.Status = StatusPending
	err := h.DB.QueryRow(ctx, `
    INSERT INTO vendor_registrations
      (company_name, contact_name, contact_email, phone, services, bank_name, bank_account, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id, created_at
  `, r.CompanyName, r.ContactName, r.ContactEmail, r.Phone, r.Services,
		r.BankName, r.BankAccount, StatusPending).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return Registration{}, err
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, h *tenant.Handle, status string) ([]Registration, error) {
	query := `
    SELECT id, company_name, contact_name, contact_email, phone, services,
           bank_name, bank_account, status, reviewed_by, review_note, reviewed_at, created_at
    FROM vendor_registrations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var registrations []Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ID, &r.CompanyName, &r.ContactName, &r.ContactEmail,
			&r.Phone, &r.Services, &r.BankName, &r.BankAccount, &r.Status,
			&r.ReviewedBy, &r.ReviewNote, &r.ReviewedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		registrations = append(registrations, r)
	}
	return registrations, rows.Err()
}

func (s *Service) Get(ctx context.Context, h *tenant.Handle, id string) (Registration, error) {
	var r Registration
	err := h.DB.QueryRow(ctx, `
    SELECT id, company_name, contact_name, contact_email, phone, services,
           bank_name, bank_account, status, reviewed_by, review_note, reviewed_at, created_at
    FROM vendor_registrations
    WHERE id = $1
  `, id).Scan(&r.ID, &r.CompanyName, &r.ContactName, &r.ContactEmail,
		&r.Phone, &r.Services, &r.BankName, &r.BankAccount, &r.Status,
		&r.ReviewedBy, &r.ReviewNote, &r.ReviewedAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Registration{}, ErrRegistrationNotFound
	}
	return r, err
}

// Review settles a pending registration. The status guard is in the WHERE
// clause so a registration is only ever reviewed once.
func (s *Service) Review(ctx context.Context, h *tenant.Handle, id, decision, reviewerID, note string) (Registration, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Registration{}, ErrInvalidDecision
	}

	tag, err := h.DB.Exec(ctx, `
    UPDATE vendor_registrations
    SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = now()
    WHERE id = $1 AND status = $5
  `, id, decision, reviewerID, note, StatusPending)
	if err != nil {
		return Registration{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, h, id); err != nil {
			return Registration{}, err
		}
		return Registration{}, ErrAlreadyReviewed
	}
	return s.Get(ctx, h, id)
}
