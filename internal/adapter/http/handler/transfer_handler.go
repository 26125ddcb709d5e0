package handler

import (
	"context"
	"net/http"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
}

// ConversionService defines the behavior needed by TransferHandler for
// currency conversions.
type ConversionService interface {
	ConvertCurrency(ctx context.Context, input usecase.ConvertInput) (*usecase.TransferResult, error)
}

// TransferHandler handles transfers and conversions.
type TransferHandler struct {
	transferUC   TransferService
	conversionUC ConversionService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService, conversionUC ConversionService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, conversionUC: conversionUC}
}

// Create transfers money between two IBANs.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transferUC.Transfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferResultFromUseCase(result))
}

// Convert converts part of an account balance into another currency.
func (h *TransferHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.conversionUC.ConvertCurrency(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferResultFromUseCase(result))
}
