package postgres

import (
	"context"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/infrastructure/postgres/generated"
	"github.com/nexgen/bankledger/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	queries *generated.Queries
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(db generated.DBTX) *TransferRepository {
	return &TransferRepository{queries: generated.New(db)}
}

// Create creates a new transfer.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	err := queriesFor(tx).CreateTransfer(ctx, generated.CreateTransferParams{
		ID:             transfer.ID,
		Kind:           string(transfer.Kind),
		FromAccountID:  transfer.FromAccountID,
		ToAccountID:    transfer.ToAccountID,
		FromIban:       transfer.FromIBAN,
		ToIban:         transfer.ToIBAN,
		Amount:         decimalToNumeric(transfer.Amount),
		Currency:       transfer.Currency,
		CreditAmount:   decimalToNumeric(transfer.CreditAmount),
		CreditCurrency: transfer.CreditCurrency,
		Rate:           decimalToNumeric(transfer.Rate),
		CreatedAt:      timeToPgTimestamptz(transfer.CreatedAt),
	})

	return mapError(err, nil)
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	row, err := r.queries.GetTransferByID(ctx, id)
	if err != nil {
		return nil, mapError(err, domain.ErrTransferNotFound)
	}

	return rowToTransfer(row), nil
}
