package dto

import (
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/usecase"
)

// RegisterUserRequest represents a request to register a user.
type RegisterUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterUserRequest) ToUseCaseInput() usecase.RegisterUserInput {
	return usecase.RegisterUserInput{Email: r.Email, Name: r.Name}
}

// CreateAccountRequest represents a request to create an account. An empty
// account_number asks for a generated one.
type CreateAccountRequest struct {
	UserID         string          `json:"user_id"`
	AccountNumber  string          `json:"account_number,omitempty"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		UserID:         r.UserID,
		AccountNumber:  r.AccountNumber,
		InitialBalance: r.InitialBalance,
		Currency:       r.Currency,
	}
}

// AmountRequest is the body of deposit and withdraw calls.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateTransferRequest represents a request to move money between IBANs.
type CreateTransferRequest struct {
	FromIBAN string          `json:"from_iban"`
	ToIBAN   string          `json:"to_iban"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromIBAN: r.FromIBAN,
		ToIBAN:   r.ToIBAN,
		Amount:   r.Amount,
		Currency: r.Currency,
	}
}

// ConversionRequest represents a request to convert part of a balance.
type ConversionRequest struct {
	AccountNumber string          `json:"account_number"`
	ToCurrency    string          `json:"to_currency"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *ConversionRequest) ToUseCaseInput() usecase.ConvertInput {
	return usecase.ConvertInput{
		AccountNumber: r.AccountNumber,
		ToCurrency:    r.ToCurrency,
		Amount:        r.Amount,
	}
}

// GenerateIBANRequest asks for the IBAN of an account number.
type GenerateIBANRequest struct {
	AccountNumber string `json:"account_number"`
}
