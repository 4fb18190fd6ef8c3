package letters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"peopleops/internal/domain/payroll"
	"peopleops/internal/tenant"
)

type Store struct {
	H *tenant.Handle
}

func NewStore(h *tenant.Handle) *Store {
	return &Store{H: h}
}

func (s *Store) Target(ctx context.Context, targetType, targetID string) (Target, error) {
	switch targetType {
	case payroll.TargetEmployee:
		var first, last, email string
		err := s.H.DB.QueryRow(ctx,
			"SELECT first_name, last_name, email FROM employees WHERE id = $1",
			targetID).Scan(&first, &last, &email)
		if errors.Is(err, pgx.ErrNoRows) {
			return Target{}, ErrTargetNotFound
		}
		if err != nil {
			return Target{}, err
		}
		return Target{Type: targetType, ID: targetID, Name: first + " " + last, Email: email}, nil

	case payroll.TargetApplicant:
		var name, email string
		var salaryCopy []byte
		err := s.H.DB.QueryRow(ctx,
			"SELECT name, email, salary_copy FROM applicants WHERE id = $1",
			targetID).Scan(&name, &email, &salaryCopy)
		if errors.Is(err, pgx.ErrNoRows) {
			return Target{}, ErrTargetNotFound
		}
		if err != nil {
			return Target{}, err
		}
		target := Target{Type: targetType, ID: targetID, Name: name, Email: email}
		if len(salaryCopy) > 0 {
			var embedded payroll.Breakdown
			if err := json.Unmarshal(salaryCopy, &embedded); err != nil {
				return Target{}, err
			}
			target.Embedded = &embedded
		}
		return target, nil

	default:
		return Target{}, fmt.Errorf("unknown letter target: %s", targetType)
	}
}

func (s *Store) CompanyName(ctx context.Context) (string, error) {
	var name string
	err := s.H.DB.QueryRow(ctx,
		"SELECT name FROM shared.tenants WHERE id = $1", s.H.TenantID).Scan(&name)
	return name, err
}

func (s *Store) RecordLetter(ctx context.Context, letter GeneratedLetter) (GeneratedLetter, error) {
	err := s.H.DB.QueryRow(ctx, `
    INSERT INTO generated_letters (kind, target_type, target_id, sha256, file_path)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, letter.Kind, letter.TargetType, letter.TargetID, letter.SHA256, letter.FilePath).
		Scan(&letter.ID, &letter.CreatedAt)
	if err != nil {
		return GeneratedLetter{}, err
	}
	return letter, nil
}

func (s *Store) ListLetters(ctx context.Context, targetType, targetID string) ([]GeneratedLetter, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT id, kind, target_type, target_id, sha256, file_path, created_at
    FROM generated_letters
    WHERE target_type = $1 AND target_id = $2
    ORDER BY created_at DESC
  `, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []GeneratedLetter
	for rows.Next() {
		var l GeneratedLetter
		if err := rows.Scan(&l.ID, &l.Kind, &l.TargetType, &l.TargetID, &l.SHA256, &l.FilePath, &l.CreatedAt); err != nil {
			return nil, err
		}
		letters = append(letters, l)
	}
	return letters, rows.Err()
}
