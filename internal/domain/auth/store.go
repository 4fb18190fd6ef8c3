package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"peopleops/internal/tenant"
)

var ErrUserNotFound = errors.New("user not found")

type AuthUser struct {
	ID           string
	TenantID     string
	EmployeeID   *string
	Email        string
	PasswordHash string
	Role         string
	Status       string
}

// Store reads the shared users and sessions tables. Users live in the shared
// partition because login happens before a tenant is resolved.
type Store struct {
	DB tenant.Querier
}

func NewStore(db tenant.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var u AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, employee_id, email, password_hash, role, status
    FROM shared.users
    WHERE lower(email) = lower($1) AND status = 'active'
  `, email).Scan(&u.ID, &u.TenantID, &u.EmployeeID, &u.Email, &u.PasswordHash, &u.Role, &u.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, ErrUserNotFound
	}
	if err != nil {
		return AuthUser{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, tenantID string, employeeID *string, email, passwordHash, role string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO shared.users (tenant_id, employee_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, $5, 'active')
    RETURNING id
  `, tenantID, employeeID, email, passwordHash, role).Scan(&id)
	return id, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE shared.users SET last_login_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO shared.sessions (user_id, token_hash, expires_at)
    VALUES ($1, $2, $3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE shared.sessions SET revoked_at = now()
    WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL
  `, userID, tokenHash)
	return err
}

func (s *Store) UserCountForTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM shared.users WHERE tenant_id = $1", tenantID).Scan(&count)
	return count, err
}
