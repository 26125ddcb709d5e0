package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

type userServiceStub struct {
	registerFn func(ctx context.Context, input usecase.RegisterUserInput) (*usecase.Registration, error)
	getFn      func(ctx context.Context, id string) (*domain.User, error)
}

func (s *userServiceStub) RegisterUser(ctx context.Context, input usecase.RegisterUserInput) (*usecase.Registration, error) {
	return s.registerFn(ctx, input)
}

func (s *userServiceStub) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

type entryServiceStub struct {
	listFn     func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
	byRefFn    func(ctx context.Context, referenceID string) ([]*domain.Entry, error)
	transferFn func(ctx context.Context, id string) (*domain.Transfer, error)
	balanceFn  func(ctx context.Context, number string, at time.Time) (decimal.Decimal, error)
}

func (s *entryServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
	return s.listFn(ctx, input)
}

func (s *entryServiceStub) ListEntriesByReference(ctx context.Context, referenceID string) ([]*domain.Entry, error) {
	return s.byRefFn(ctx, referenceID)
}

func (s *entryServiceStub) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	return s.transferFn(ctx, id)
}

func (s *entryServiceStub) GetHistoricalBalance(ctx context.Context, number string, at time.Time) (decimal.Decimal, error) {
	return s.balanceFn(ctx, number, at)
}

type reconciliationServiceStub struct {
	reconcileFn   func(ctx context.Context, number string) (*usecase.ReconciliationResult, error)
	consistencyFn func(ctx context.Context) (*usecase.ConsistencyReport, error)
}

func (s *reconciliationServiceStub) ReconcileAccount(ctx context.Context, number string) (*usecase.ReconciliationResult, error) {
	return s.reconcileFn(ctx, number)
}

func (s *reconciliationServiceStub) CheckLedgerConsistency(ctx context.Context) (*usecase.ConsistencyReport, error) {
	return s.consistencyFn(ctx)
}

func TestUserHandler_Register(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		registerFn: func(ctx context.Context, input usecase.RegisterUserInput) (*usecase.Registration, error) {
			if input.Email == "taken@example.com" {
				return nil, domain.ErrDuplicateKey
			}
			return &usecase.Registration{
				User:    &domain.User{ID: "u1", Email: input.Email, Name: input.Name},
				Account: testAccount(),
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"email":"ada@example.com","name":"Ada"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp dto.RegistrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.User.Email != "ada@example.com" || resp.Account.AccountNumber != "NEX172720185" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"email":"taken@example.com","name":"Ada"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestEntryHandler_ListByAccount_ClampsPagination(t *testing.T) {
	var captured usecase.ListEntriesInput
	handler := NewEntryHandler(&entryServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{{ID: "e1", Amount: decimal.NewFromInt(5)}}, nil
		},
	})

	r := chi.NewRouter()
	r.Get("/accounts/{number}/entries", handler.ListByAccount)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/NEX1/entries?limit=500&offset=-3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.AccountNumber != "NEX1" || captured.Limit != 100 || captured.Offset != 0 {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestEntryHandler_HistoricalBalance(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var gotAt time.Time
	handler := NewEntryHandler(&entryServiceStub{
		balanceFn: func(ctx context.Context, number string, t time.Time) (decimal.Decimal, error) {
			gotAt = t
			return decimal.RequireFromString("42.1"), nil
		},
	})

	r := chi.NewRouter()
	r.Get("/accounts/{number}/balance/history", handler.HistoricalBalance)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/NEX1/balance/history?at="+at.Format(time.RFC3339), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotAt.Equal(at) {
		t.Fatalf("expected at %s, got %s", at, gotAt)
	}
	var resp dto.HistoricalBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != "42.10" {
		t.Fatalf("expected 42.10, got %s", resp.Balance)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/NEX1/balance/history?at=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad time, got %d", rec.Code)
	}
}

func TestEntryHandler_ListByTransfer_NotFound(t *testing.T) {
	handler := NewEntryHandler(&entryServiceStub{
		transferFn: func(ctx context.Context, id string) (*domain.Transfer, error) {
			return nil, domain.ErrTransferNotFound
		},
	})

	r := chi.NewRouter()
	r.Get("/transfers/{id}/entries", handler.ListByTransfer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transfers/missing/entries", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	report := &usecase.ConsistencyReport{TotalBalance: decimal.NewFromInt(10), TotalEntries: decimal.NewFromInt(10), Consistent: true}
	handler := NewLedgerHandler(&reconciliationServiceStub{
		consistencyFn: func(ctx context.Context) (*usecase.ConsistencyReport, error) { return report, nil },
	})

	rec := httptest.NewRecorder()
	handler.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	bad := &usecase.ConsistencyReport{TotalBalance: decimal.NewFromInt(10), TotalEntries: decimal.NewFromInt(9)}
	handler = NewLedgerHandler(&reconciliationServiceStub{
		consistencyFn: func(ctx context.Context) (*usecase.ConsistencyReport, error) {
			return bad, fmt.Errorf("%w: off by 1", usecase.ErrInconsistentLedger)
		},
	})

	rec = httptest.NewRecorder()
	handler.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp dto.ConsistencyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "inconsistent" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestLedgerHandler_ReconcileAccount(t *testing.T) {
	handler := NewLedgerHandler(&reconciliationServiceStub{
		reconcileFn: func(ctx context.Context, number string) (*usecase.ReconciliationResult, error) {
			return &usecase.ReconciliationResult{
				AccountNumber:     number,
				RecordedBalance:   decimal.NewFromInt(5),
				CalculatedBalance: decimal.NewFromInt(5),
				IsReconciled:      true,
			}, nil
		},
	})

	r := chi.NewRouter()
	r.Get("/accounts/{number}/reconciliation", handler.ReconcileAccount)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/NEX1/reconciliation", nil))

	var resp dto.ReconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Reconciled || resp.AccountNumber != "NEX1" || resp.RecordedBalance != "5.00" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIBANHandler(t *testing.T) {
	handler := NewIBANHandler()
	r := chi.NewRouter()
	r.Get("/ibans/{iban}", handler.Validate)
	r.Post("/ibans", handler.Generate)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ibans/DE54500202220172720185", nil))
	var resp dto.IBANResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Valid || resp.Formatted != "DE54 5002 0222 0172 7201 85" {
		t.Fatalf("unexpected validation response %+v", resp)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ibans/DE55500202220172720185", nil))
	resp = dto.IBANResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Valid {
		t.Fatalf("expected 200 with valid=false, got %d %+v", rec.Code, resp)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ibans", strings.NewReader(`{"account_number":"NEX123456789"}`)))
	resp = dto.IBANResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.IBAN != "DE22500202220123456789" {
		t.Fatalf("unexpected generated IBAN %q", resp.IBAN)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ibans", strings.NewReader(`{"account_number":"NEX"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for account number without digits, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Check{"postgres": ok}).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Check{"postgres": ok, "redis": down}).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
