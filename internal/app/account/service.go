// Package account covers registration, password and Google login, logout
// and wallet linking on top of the token service.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/demeet/internal/app/token"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/rs/zerolog/log"
)

const MinPasswordLen = 6

type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// GoogleProfile is the verified subset of a Google ID token.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type Service struct {
	identities core.IdentityStore
	tokens     *token.Service
}

func NewService(identities core.IdentityStore, tokens *token.Service) *Service {
	return &Service{identities: identities, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, r Registration) (*domain.Identity, error) {
	identity, err := domain.NewIdentity(r.Name, r.Email)
	if err != nil {
		return nil, err
	}
	if len(r.Password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password too short", domain.ErrInvalidInput)
	}
	identity.PhoneNumber = strings.TrimSpace(r.PhoneNumber)

	exists, err := s.identities.ExistsByEmailOrPhone(ctx, identity.Email, identity.PhoneNumber)
	if err != nil {
		return nil, errors.Join(domain.ErrInternal, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email or phone already registered", domain.ErrConflict)
	}
	hash, err := token.HashPassword(r.Password)
	if err != nil {
		return nil, errors.Join(domain.ErrInternal, err)
	}
	identity.PasswordHash = hash
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}
	log.Info().Str("module", "account").Str("sub", string(identity.ID)).Msg("registered identity")
	return identity, nil
}

// Login never tells the caller whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (domain.TokenPair, *domain.Identity, error) {
	identity, err := s.identities.IdentityByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.TokenPair{}, nil, domain.ErrUnauthorized
	case err != nil:
		return domain.TokenPair{}, nil, errors.Join(domain.ErrInternal, err)
	}
	if identity.PasswordHash == "" {
		return domain.TokenPair{}, nil, domain.ErrUnauthorized
	}
	if err := token.VerifyPassword(identity.PasswordHash, password); err != nil {
		log.Debug().Str("module", "account").Str("sub", string(identity.ID)).Msg("password mismatch")
		return domain.TokenPair{}, nil, domain.ErrUnauthorized
	}
	pair, err := s.tokens.Issue(ctx, identity)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	return pair, identity, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken)
}

// Logout revokes the refresh token of the access token's subject. An invalid
// access token leaves nothing to revoke.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil
	}
	err = s.tokens.Revoke(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) Me(ctx context.Context, id domain.IdentityID) (*domain.Identity, error) {
	return s.identities.Identity(ctx, id)
}

// GoogleLogin finds the identity by Google subject, creating it on first
// login. An email already registered with a password is a conflict.
func (s *Service) GoogleLogin(ctx context.Context, p GoogleProfile) (domain.TokenPair, *domain.Identity, error) {
	if p.Subject == "" || p.Email == "" {
		return domain.TokenPair{}, nil, domain.ErrInvalidInput
	}
	identity, err := s.identities.IdentityByGoogleID(ctx, p.Subject)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.TokenPair{}, nil, errors.Join(domain.ErrInternal, err)
	}
	if identity == nil {
		identity, err = s.createGoogleIdentity(ctx, p)
		if err != nil {
			return domain.TokenPair{}, nil, err
		}
	}
	pair, err := s.tokens.Issue(ctx, identity)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	return pair, identity, nil
}

func (s *Service) createGoogleIdentity(ctx context.Context, p GoogleProfile) (*domain.Identity, error) {
	existing, err := s.identities.IdentityByEmail(ctx, p.Email)
	switch {
	case err == nil:
		log.Warn().Str("module", "account").Str("sub", string(existing.ID)).Msg("google login for email registered with password")
		return nil, fmt.Errorf("%w: email registered with password", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, errors.Join(domain.ErrInternal, err)
	}
	name := p.Name
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}
	if len(name) > domain.MaxNameLen {
		name = name[:domain.MaxNameLen]
	}
	identity, err := domain.NewIdentity(name, p.Email)
	if err != nil {
		return nil, err
	}
	identity.GoogleID = p.Subject
	identity.Avatar = p.Picture
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}
	log.Info().Str("module", "account").Str("sub", string(identity.ID)).Msg("created google identity")
	return identity, nil
}

func (s *Service) LinkWallet(ctx context.Context, id domain.IdentityID, walletID string) (*domain.Identity, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := s.identities.LinkWallet(ctx, id, walletID); err != nil {
		return nil, err
	}
	log.Info().Str("module", "account").Str("sub", string(id)).Msg("linked wallet")
	return s.identities.Identity(ctx, id)
}
