package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// money renders an amount with exactly two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// RegistrationResponse is a new user with its default account.
type RegistrationResponse struct {
	User    *UserResponse    `json:"user"`
	Account *AccountResponse `json:"account"`
}

// RegistrationFromUseCase converts a registration to response.
func RegistrationFromUseCase(r *usecase.Registration) *RegistrationResponse {
	return &RegistrationResponse{
		User:    UserFromDomain(r.User),
		Account: AccountFromDomain(r.Account),
	}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	IBAN          string    `json:"iban"`
	IBANFormatted string    `json:"iban_formatted"`
	UserID        string    `json:"user_id"`
	Currency      string    `json:"currency"`
	Balance       string    `json:"balance"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		IBAN:          a.IBAN,
		IBANFormatted: domain.FormatIBAN(a.IBAN),
		UserID:        a.UserID,
		Currency:      a.Currency,
		Balance:       money(a.Balance),
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// BalanceOperationResponse answers deposit and withdraw calls. Success
// mirrors the boolean result of the operation.
type BalanceOperationResponse struct {
	Success bool             `json:"success"`
	Account *AccountResponse `json:"account,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

// TransferResponse represents a transfer or conversion in API responses.
type TransferResponse struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	FromAccountID  string          `json:"from_account_id"`
	ToAccountID    string          `json:"to_account_id"`
	FromIBAN       string          `json:"from_iban"`
	ToIBAN         string          `json:"to_iban"`
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency"`
	CreditAmount   string          `json:"credit_amount"`
	CreditCurrency string          `json:"credit_currency"`
	Rate           decimal.Decimal `json:"rate"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TransferFromDomain converts domain transfer to response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:             t.ID,
		Kind:           string(t.Kind),
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		FromIBAN:       t.FromIBAN,
		ToIBAN:         t.ToIBAN,
		Amount:         money(t.Amount),
		Currency:       t.Currency,
		CreditAmount:   money(t.CreditAmount),
		CreditCurrency: t.CreditCurrency,
		Rate:           t.Rate,
		CreatedAt:      t.CreatedAt,
	}
}

// TransferResultResponse is a committed transfer with both account states.
type TransferResultResponse struct {
	Transfer *TransferResponse `json:"transfer"`
	From     *AccountResponse  `json:"from"`
	To       *AccountResponse  `json:"to"`
}

// TransferResultFromUseCase converts a transfer result to response.
func TransferResultFromUseCase(r *usecase.TransferResult) *TransferResultResponse {
	return &TransferResultResponse{
		Transfer: TransferFromDomain(r.Transfer),
		From:     AccountFromDomain(r.From),
		To:       AccountFromDomain(r.To),
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID                     string    `json:"id"`
	AccountID              string    `json:"account_id"`
	ReferenceID            string    `json:"reference_id"`
	Kind                   string    `json:"kind"`
	Amount                 string    `json:"amount"`
	AccountPreviousBalance string    `json:"account_previous_balance"`
	AccountCurrentBalance  string    `json:"account_current_balance"`
	AccountVersion         int64     `json:"account_version"`
	CreatedAt              time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                     e.ID,
		AccountID:              e.AccountID,
		ReferenceID:            e.ReferenceID,
		Kind:                   string(e.Kind),
		Amount:                 money(e.Amount),
		AccountPreviousBalance: money(e.AccountPreviousBalance),
		AccountCurrentBalance:  money(e.AccountCurrentBalance),
		AccountVersion:         e.AccountVersion,
		CreatedAt:              e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is one page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// HistoricalBalanceResponse is the balance of an account at a point in time.
type HistoricalBalanceResponse struct {
	AccountNumber string    `json:"account_number"`
	At            time.Time `json:"at"`
	Balance       string    `json:"balance"`
}

// ReconciliationResponse compares a recorded balance with its entries.
type ReconciliationResponse struct {
	AccountNumber     string    `json:"account_number"`
	RecordedBalance   string    `json:"recorded_balance"`
	CalculatedBalance string    `json:"calculated_balance"`
	Difference        string    `json:"difference"`
	Reconciled        bool      `json:"reconciled"`
	CheckedAt         time.Time `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountNumber:     r.AccountNumber,
		RecordedBalance:   money(r.RecordedBalance),
		CalculatedBalance: money(r.CalculatedBalance),
		Difference:        money(r.Difference),
		Reconciled:        r.IsReconciled,
		CheckedAt:         r.LastChecked,
	}
}

// ConsistencyResponse is the ledger-wide balance check.
type ConsistencyResponse struct {
	Status       string    `json:"status"`
	Consistent   bool      `json:"consistent"`
	TotalBalance string    `json:"total_balance"`
	TotalEntries string    `json:"total_entries"`
	CheckedAt    time.Time `json:"checked_at"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	status := "consistent"
	if !r.Consistent {
		status = "inconsistent"
	}
	return &ConsistencyResponse{
		Status:       status,
		Consistent:   r.Consistent,
		TotalBalance: money(r.TotalBalance),
		TotalEntries: money(r.TotalEntries),
		CheckedAt:    r.CheckedAt,
	}
}

// IBANResponse describes an IBAN and, for generation, its account number.
type IBANResponse struct {
	AccountNumber string `json:"account_number,omitempty"`
	IBAN          string `json:"iban"`
	Formatted     string `json:"formatted,omitempty"`
	Valid         bool   `json:"valid"`
	Error         string `json:"error,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
