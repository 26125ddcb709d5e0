package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
	ListEntriesByReference(ctx context.Context, referenceID string) ([]*domain.Entry, error)
	GetTransfer(ctx context.Context, id string) (*domain.Transfer, error)
	GetHistoricalBalance(ctx context.Context, accountNumber string, at time.Time) (decimal.Decimal, error)
}

// EntryHandler exposes entry history and transfer lookups.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// ListByAccount lists entries of an account, newest first.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	limit, offset := domain.ValidatePagination(parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))

	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		AccountNumber: chi.URLParam(r, "number"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}

// ListByTransfer lists the entries written by a transfer.
func (h *EntryHandler) ListByTransfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.entryUC.GetTransfer(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	entries, err := h.entryUC.ListEntriesByReference(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// GetTransfer retrieves a transfer by ID.
func (h *EntryHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.entryUC.GetTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(transfer))
}

// HistoricalBalance returns the balance of an account at the time given by
// the RFC3339 "at" query parameter, or now when it is absent.
func (h *EntryHandler) HistoricalBalance(w http.ResponseWriter, r *http.Request) {
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(domain.KindInvalidArgument), "at must be RFC3339")
			return
		}
		at = parsed
	}

	number := chi.URLParam(r, "number")
	balance, err := h.entryUC.GetHistoricalBalance(r.Context(), number, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoricalBalanceResponse{
		AccountNumber: number,
		At:            at,
		Balance:       balance.StringFixed(domain.AmountScale),
	})
}
