package authhandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"golang.org/x/crypto/bcrypt"

	"peopleops/internal/domain/auth"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
)

const testSecret = "test-secret"

func loginRouter(t *testing.T) (*chi.Mux, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	r := chi.NewRouter()
	r.Use(middleware.Auth(testSecret))
	NewHandler(auth.NewStore(mock), testSecret).RegisterRoutes(r)
	return r, mock
}

func userRow(t *testing.T, password string) *pgxmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return pgxmock.NewRows([]string{
		"id", "tenant_id", "employee_id", "email", "password_hash", "role", "status",
	}).AddRow("u1", "t1", nil, "admin@acme.test", string(hash), auth.RoleAdmin, "active")
}

func TestLoginUnknownEmail(t *testing.T) {
	r, mock := loginRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.users")).
		WithArgs("ghost@acme.test").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ghost@acme.test","password":"whatever"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var envelope api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %+v", envelope.Error)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r, mock := loginRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.users")).
		WithArgs("admin@acme.test").
		WillReturnRows(userRow(t, "correct-horse"))

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@acme.test","password":"wrong"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	r, mock := loginRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.users")).
		WithArgs("admin@acme.test").
		WillReturnRows(userRow(t, "correct-horse"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shared.sessions")).
		WithArgs("u1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shared.users")).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@acme.test","password":"correct-horse"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Token == "" {
		t.Fatal("expected a token in the response")
	}
	claims, err := auth.ParseToken(testSecret, envelope.Data.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != "u1" || claims.TenantID != "t1" || claims.Role != auth.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMeRequiresAuth(t *testing.T) {
	r, _ := loginRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}
