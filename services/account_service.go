package services

import (
	"context"
	"log/slog"
	"time"

	"courier/auth"
	"courier/domain"
	"courier/errors"
	"courier/notify"
	"courier/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultSearchLimit bounds directory search results.
const DefaultSearchLimit = 10

type IAccountService interface {
	Register(name, email, password string) (domain.Profile, error)
	Login(email, password string) (domain.Profile, string, error)
	VerifyEmail(token string) (domain.Profile, error)
	UpdateProfile(accountID uuid.UUID, name, avatar *string) (domain.Profile, error)
	Search(ctx context.Context, query string, excluding uuid.UUID) ([]domain.Profile, error)
	Deactivate(accountID uuid.UUID) error
}

type AccountService struct {
	accounts    repositories.IAccountRepository
	tokens      *auth.TokenManager
	notifier    notify.INotifier
	log         *slog.Logger
	searchLimit int
}

func NewAccountService(accounts repositories.IAccountRepository, tokens *auth.TokenManager,
	notifier notify.INotifier, log *slog.Logger) *AccountService {
	return &AccountService{
		accounts:    accounts,
		tokens:      tokens,
		notifier:    notifier,
		log:         log,
		searchLimit: DefaultSearchLimit,
	}
}

// Register creates an unverified account and emits the verification
// notification. The password is hashed before anything touches storage;
// the returned profile never carries credential or verification fields.
func (s *AccountService) Register(name, email, password string) (domain.Profile, error) {
	request := auth.RegisterRequest{Name: name, Email: email, Password: password}
	if err := auth.ValidateRegister(request); err != nil {
		return domain.Profile{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Profile{}, err
	}
	verificationToken, err := auth.NewVerificationToken()
	if err != nil {
		return domain.Profile{}, err
	}

	account := domain.Account{
		ID:                uuid.New(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: verificationToken,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.accounts.Create(account); err != nil {
		return domain.Profile{}, err
	}

	// Delivery failure never fails registration; verification can be
	// retried out of band.
	if err := s.notifier.SendVerification(account.Email, verificationToken); err != nil {
		s.log.Warn("verification notification failed", "email", account.Email, "error", err)
	}

	return account.Profile(), nil
}

// Login checks the credential and, for verified accounts, issues a session
// token.
func (s *AccountService) Login(email, password string) (domain.Profile, string, error) {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		return domain.Profile{}, "", err
	}

	match, err := auth.ComparePassword(password, account.PasswordHash)
	if err != nil {
		return domain.Profile{}, "", err
	}
	if !match {
		return domain.Profile{}, "", errors.Unauthorized("incorrect password")
	}
	if !account.Verified {
		return domain.Profile{}, "", errors.Unauthorized("account not verified")
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return domain.Profile{}, "", err
	}
	return account.Profile(), token, nil
}

// VerifyEmail consumes a one-time token and flips the account to verified.
// The transition is one-way; a second call with the same token fails with
// NotFound because the token index entry is gone.
func (s *AccountService) VerifyEmail(token string) (domain.Profile, error) {
	account, err := s.accounts.GetByVerificationToken(token)
	if err != nil {
		return domain.Profile{}, err
	}
	if !account.Active {
		return domain.Profile{}, errors.NotFound("account not found")
	}

	account.Verified = true
	account.VerificationToken = ""
	if err := s.accounts.Update(account); err != nil {
		return domain.Profile{}, err
	}
	return account.Profile(), nil
}

// UpdateProfile applies a partial update of name and/or avatar. Credential
// and verification fields are out of reach here.
func (s *AccountService) UpdateProfile(accountID uuid.UUID, name, avatar *string) (domain.Profile, error) {
	if name == nil && avatar == nil {
		return domain.Profile{}, errors.BadRequest("nothing to update")
	}
	if name != nil && *name == "" {
		return domain.Profile{}, errors.BadRequest("name cannot be empty")
	}

	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return domain.Profile{}, err
	}
	if !account.Active {
		return domain.Profile{}, errors.NotFound("account not found")
	}

	if name != nil {
		account.Name = *name
	}
	if avatar != nil {
		account.Avatar = *avatar
	}
	if err := s.accounts.Update(account); err != nil {
		return domain.Profile{}, err
	}
	return account.Profile(), nil
}

// Search looks up verified accounts by name or email substring, excluding
// the caller, capped at the configured limit.
func (s *AccountService) Search(ctx context.Context, query string, excluding uuid.UUID) ([]domain.Profile, error) {
	accounts, err := s.accounts.Search(ctx, query, excluding, s.searchLimit)
	if err != nil {
		return nil, err
	}
	return lo.Map(accounts, func(account domain.Account, _ int) domain.Profile {
		return account.Profile()
	}), nil
}

func (s *AccountService) Deactivate(accountID uuid.UUID) error {
	return s.accounts.Deactivate(accountID)
}
