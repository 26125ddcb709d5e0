package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	RegisterUser(ctx context.Context, input usecase.RegisterUserInput) (*usecase.Registration, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UserHandler handles user registration and lookup.
type UserHandler struct {
	userUC UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Register creates a user together with its default account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.userUC.RegisterUser(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegistrationFromUseCase(reg))
}

// Get retrieves a user by ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUC.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
