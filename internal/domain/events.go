package domain

// Event channels
const (
	EventTypeBalanceChanged = "balance.changed"
	EventTypeWithdrawal     = "withdrawal"
)

// BalanceChangedEvent is pushed to subscribers of an account after every
// committed balance mutation.
type BalanceChangedEvent struct {
	AccountID     string `json:"account_id"`
	AccountNumber string `json:"account_number"`
	NewBalance    string `json:"new_balance"`
	Currency      string `json:"currency"`
}

// WithdrawalEvent asks for an email to the account owner.
type WithdrawalEvent struct {
	UserEmail     string `json:"user_email"`
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// NewBalanceChangedEvent builds the event from the committed account state.
func NewBalanceChangedEvent(a *Account) BalanceChangedEvent {
	return BalanceChangedEvent{
		AccountID:     a.ID,
		AccountNumber: a.AccountNumber,
		NewBalance:    a.Balance.StringFixed(AmountScale),
		Currency:      a.Currency,
	}
}
