package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
)

// IBANHandler exposes the IBAN codec without touching storage.
type IBANHandler struct{}

// NewIBANHandler creates a new IBANHandler.
func NewIBANHandler() *IBANHandler {
	return &IBANHandler{}
}

// Validate reports whether the IBAN in the path is well formed.
// An invalid IBAN is not a request error, so it answers 200 with valid=false.
func (h *IBANHandler) Validate(w http.ResponseWriter, r *http.Request) {
	iban := domain.CompactIBAN(chi.URLParam(r, "iban"))

	resp := dto.IBANResponse{IBAN: iban}
	if err := domain.ValidateIBAN(iban); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Valid = true
		resp.Formatted = domain.FormatIBAN(iban)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Generate previews the IBAN an account number maps to.
func (h *IBANHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateIBANRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	iban, err := domain.GenerateIBAN(req.AccountNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IBANResponse{
		AccountNumber: req.AccountNumber,
		IBAN:          iban,
		Formatted:     domain.FormatIBAN(iban),
		Valid:         true,
	})
}
