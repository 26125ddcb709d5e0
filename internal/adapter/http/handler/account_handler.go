package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetAccountByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]*domain.Account, error)
}

// BalanceService defines the single-account mutations used by AccountHandler.
type BalanceService interface {
	DepositFunds(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error)
	WithdrawFunds(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	balanceUC BalanceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, balanceUC BalanceService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, balanceUC: balanceUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by account number.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.GetAccount(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// GetByIBAN retrieves an account by IBAN.
func (h *AccountHandler) GetByIBAN(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.GetAccountByIBAN(r.Context(), chi.URLParam(r, "iban"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListByUser lists the accounts of a user.
func (h *AccountHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountUC.ListAccountsByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    len(accounts),
	})
}

// Deposit credits the account.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(w, r, h.balanceUC.DepositFunds)
}

// Withdraw debits the account.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(w, r, h.balanceUC.WithdrawFunds)
}

type balanceFunc func(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error)

func (h *AccountHandler) balanceOperation(w http.ResponseWriter, r *http.Request, op balanceFunc) {
	var req dto.AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := op(r.Context(), chi.URLParam(r, "number"), req.Amount)
	if err != nil {
		kind := domain.KindOf(err)
		writeJSON(w, statusForKind(kind), dto.BalanceOperationResponse{
			Success: false,
			Error:   string(kind),
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceOperationResponse{
		Success: true,
		Account: dto.AccountFromDomain(account),
	})
}
