// Package auth signs users up and in with email and password and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
)

const minPasswordLength = 6

type Session struct {
	Token    string           `json:"token"`
	Identity *domain.Identity `json:"identity"`
	Expires  time.Time        `json:"expires_at"`
}

type Service struct {
	accounts AccountStore
	hasher   Hasher
	issuer   *Issuer
	revoker  Revoker
	log      *zap.Logger
}

func NewService(accounts AccountStore, hasher Hasher, issuer *Issuer, revoker Revoker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{accounts: accounts, hasher: hasher, issuer: issuer, revoker: revoker, log: log}
}

func (s *Service) Signup(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account created", zap.String("user_id", account.UserID))
	return s.issue(account)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(account)
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Authenticate resolves a bearer token into the signed-in identity.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

func (s *Service) issue(account *Account) (*Session, error) {
	identity := domain.Identity{UserID: account.UserID, Email: account.Email}
	token, claims, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Identity: &identity, Expires: claims.ExpiresAt.Time}, nil
}
