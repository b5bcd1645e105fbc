// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/character"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// TokenIssuer mints login tokens for a character name.
type TokenIssuer interface {
	Issue(name string) gametoken.Token
}

// ServiceDeps holds the collaborators of a Service.
type ServiceDeps struct {
	Accounts   AccountRepository
	Characters character.Repository
	Transactor Transactor
	Hasher     PasswordHasher
	Tokens     TokenIssuer
	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// Service implements the account and character workflows.
type Service struct {
	accounts   AccountRepository
	characters character.Repository
	tx         Transactor
	hasher     PasswordHasher
	tokens     TokenIssuer
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if deps.Characters == nil {
		return nil, oops.Errorf("character repository is required")
	}
	if deps.Transactor == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:   deps.Accounts,
		characters: deps.Characters,
		tx:         deps.Transactor,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		logger:     logger,
	}, nil
}

// CharacterRequest carries the character fields of a creation request.
type CharacterRequest struct {
	Name string
	Sex  string
}

// parse normalizes and validates the request.
func (r CharacterRequest) parse() (string, character.Sex, error) {
	name := character.NormalizeName(r.Name)
	if err := character.ValidateName(name); err != nil {
		return "", "", err
	}
	sex, err := character.ParseSex(r.Sex)
	if err != nil {
		return "", "", err
	}
	return name, sex, nil
}

// CreateAccount registers accountID with password and creates its primary
// character in the same transaction.
//
// Error codes: AUTH_INVALID_INPUT, CHARACTER_INVALID_NAME,
// CHARACTER_INVALID_SEX, AUTH_ACCOUNT_EXISTS, CHARACTER_NAME_TAKEN,
// AUTH_HASH_FAILED, AUTH_CREATE_FAILED.
func (s *Service) CreateAccount(ctx context.Context, accountID, password string, req CharacterRequest) (*character.Character, error) {
	if err := ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	name, sex, err := req.parse()
	if err != nil {
		return nil, err
	}

	_, err = s.accounts.Get(ctx, accountID)
	switch {
	case err == nil:
		return nil, oops.Code("AUTH_ACCOUNT_EXISTS").
			With("account_id", accountID).
			Errorf("account already exists")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_CREATE_FAILED").
			With("operation", "get account").
			Wrap(err)
	}

	taken, err := s.characters.ExistsByName(ctx, name)
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_FAILED").
			With("operation", "check character name").
			Wrap(err)
	}
	if taken {
		return nil, nameTaken(name)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	doc, err := character.NewDocument(name, sex)
	if err != nil {
		return nil, err
	}

	account, err := NewAccount(accountID, hash, name)
	if err != nil {
		return nil, err
	}
	char := &character.Character{
		Name:      name,
		AccountID: accountID,
		Document:  doc,
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return oops.Code("AUTH_ACCOUNT_EXISTS").
					With("account_id", accountID).
					Wrap(err)
			}
			return oops.Code("AUTH_CREATE_FAILED").
				With("operation", "create account").
				Wrap(err)
		}
		if err := s.characters.Create(ctx, char); err != nil {
			if errors.Is(err, character.ErrDuplicateKey) {
				return oops.Code("CHARACTER_NAME_TAKEN").
					With("name", name).
					Wrap(err)
			}
			return oops.Code("AUTH_CREATE_FAILED").
				With("operation", "create primary character").
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account created",
		"account_id", accountID,
		"character", name,
	)
	return char, nil
}

// CreateCharacter authenticates the account and creates another character
// owned by it. Credentials are checked before the character fields, so a bad
// password is reported as such whatever the request carries.
func (s *Service) CreateCharacter(ctx context.Context, accountID, password string, req CharacterRequest) (*character.Character, error) {
	if _, err := s.Authenticate(ctx, accountID, password); err != nil {
		return nil, err
	}
	name, sex, err := req.parse()
	if err != nil {
		return nil, err
	}

	taken, err := s.characters.ExistsByName(ctx, name)
	if err != nil {
		return nil, oops.Code("CHARACTER_CREATE_FAILED").
			With("operation", "check character name").
			Wrap(err)
	}
	if taken {
		return nil, nameTaken(name)
	}

	doc, err := character.NewDocument(name, sex)
	if err != nil {
		return nil, err
	}
	char := &character.Character{
		Name:      name,
		AccountID: accountID,
		Document:  doc,
	}
	if err := s.characters.Create(ctx, char); err != nil {
		if errors.Is(err, character.ErrDuplicateKey) {
			return nil, oops.Code("CHARACTER_NAME_TAKEN").
				With("name", name).
				Wrap(err)
		}
		return nil, oops.Code("CHARACTER_CREATE_FAILED").
			With("operation", "create character").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "character created",
		"account_id", accountID,
		"character", name,
	)
	return char, nil
}

// Authenticate looks up accountID and verifies password against its hash.
//
// A missing account still pays for one hash verification. The returned codes
// are AUTH_ACCOUNT_NOT_FOUND, AUTH_INVALID_PASSWORD or AUTH_HASH_FAILED; the
// first two must be reported identically to clients.
func (s *Service) Authenticate(ctx context.Context, accountID, password string) (*Account, error) {
	account, lookupErr := s.accounts.Get(ctx, accountID)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.hasher.DummyHash()
	default:
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get account").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(ctx, password, targetHash)
	if lookupErr != nil {
		return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").
			With("account_id", accountID).
			Errorf("invalid account or password")
	}
	if verifyErr != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !valid {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").
			With("account_id", accountID).
			Errorf("invalid account or password")
	}
	return account, nil
}

// IssueAccountToken authenticates and mints a token for the account's primary
// character.
func (s *Service) IssueAccountToken(ctx context.Context, accountID, password string) (gametoken.Token, error) {
	account, err := s.Authenticate(ctx, accountID, password)
	if err != nil {
		return gametoken.Token{}, err
	}
	return s.tokens.Issue(character.NormalizeName(account.PrimaryCharacter)), nil
}

// IssueCharacterToken authenticates and mints a token for name, which must be
// owned by the account (compared case-insensitively).
func (s *Service) IssueCharacterToken(ctx context.Context, accountID, password, name string) (gametoken.Token, error) {
	wanted := character.NormalizeName(name)
	if wanted == "" {
		return gametoken.Token{}, oops.Code("AUTH_INVALID_INPUT").
			With("field", "characterName").
			Errorf("character name cannot be empty")
	}

	owned, err := s.ListCharacters(ctx, accountID, password)
	if err != nil {
		return gametoken.Token{}, err
	}
	for _, summary := range owned {
		if character.NormalizeName(summary.Name) == wanted {
			return s.tokens.Issue(wanted), nil
		}
	}
	return gametoken.Token{}, oops.Code("CHARACTER_NOT_OWNED").
		With("account_id", accountID).
		With("name", wanted).
		Errorf("character is not owned by account")
}

// ListCharacters authenticates and returns the characters owned by the account.
func (s *Service) ListCharacters(ctx context.Context, accountID, password string) ([]character.Summary, error) {
	if _, err := s.Authenticate(ctx, accountID, password); err != nil {
		return nil, err
	}
	owned, err := s.characters.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code("CHARACTER_LIST_FAILED").
			With("operation", "list characters").
			With("account_id", accountID).
			Wrap(err)
	}
	return owned, nil
}

func nameTaken(name string) error {
	return oops.Code("CHARACTER_NAME_TAKEN").
		With("name", name).
		Errorf("character name is already taken")
}
