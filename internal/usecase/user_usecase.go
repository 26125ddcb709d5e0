package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexgen/bankledger/internal/domain"
)

// AccountOpener opens the account a new user starts with.
type AccountOpener interface {
	OpenDefaultAccount(ctx context.Context, userID string) (*domain.Account, error)
}

// UserUseCase handles user registration and lookup.
type UserUseCase struct {
	userRepo UserRepository
	accounts AccountOpener
	idGen    IDGenerator
	logger   zerolog.Logger
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(userRepo UserRepository, accounts AccountOpener, idGen IDGenerator, logger zerolog.Logger) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		accounts: accounts,
		idGen:    idGen,
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

// RegisterUserInput represents input for registering a user
type RegisterUserInput struct {
	Email string
	Name  string
}

// Registration is a new user with its default account.
type Registration struct {
	User    *domain.User
	Account *domain.Account
}

// RegisterUser saves the user and opens its default account. When the
// account cannot be opened the user is removed again.
func (uc *UserUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*Registration, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateKey
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, persistenceErr("get user by email", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uc.idGen.Generate(),
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, persistenceErr("create user", err)
	}

	account, err := uc.accounts.OpenDefaultAccount(ctx, user.ID)
	if err != nil {
		if delErr := uc.userRepo.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			uc.logger.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to remove user after account open failure")
		}
		return nil, err
	}

	uc.logger.Info().
		Str("user_id", user.ID).
		Str("account_number", account.AccountNumber).
		Msg("user registered")

	return &Registration{User: user, Account: account}, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

// GetUserByEmail retrieves a user by email
func (uc *UserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
