// Package token issues, verifies, rotates and revokes access/refresh token
// pairs. At most one refresh token per identity is valid at any time.
package token

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/dkeye/demeet/internal/obs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 15 * 24 * time.Hour

	issuer = "demeet"
)

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

type Service struct {
	store         core.IdentityStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type accessClaims struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Wallet string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

func NewService(store core.IdentityStore, cfg Config, opts ...Option) (*Service, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	s := &Service{
		store:         store,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Digest is the form in which refresh tokens are stored.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue mints a new pair and makes its refresh token the only valid one.
func (s *Service) Issue(ctx context.Context, identity *domain.Identity) (domain.TokenPair, error) {
	pair, digest, err := s.mint(identity)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.store.SetRefreshToken(ctx, identity.ID, digest); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TokenPair{}, err
		}
		return domain.TokenPair{}, fmt.Errorf("%w: store refresh token: %v", domain.ErrInternal, err)
	}
	obs.TokensIssued.Inc()
	log.Info().Str("module", "token").Str("sub", string(identity.ID)).Msg("issued token pair")
	return pair, nil
}

// VerifyAccess checks signature, algorithm and expiry. It never touches the store.
func (s *Service) VerifyAccess(_ context.Context, raw string) (domain.Claims, error) {
	claims := &accessClaims{}
	if err := s.parse(raw, s.accessSecret, claims); err != nil {
		log.Debug().Str("module", "token").Str("reason", reason(err)).Msg("access token rejected")
		return domain.Claims{}, domain.ErrUnauthorized
	}
	sub, err := domain.ParseIdentityID(claims.Subject)
	if err != nil {
		log.Debug().Str("module", "token").Str("reason", "bad subject").Msg("access token rejected")
		return domain.Claims{}, domain.ErrUnauthorized
	}
	return domain.Claims{
		Subject:  sub,
		Name:     claims.Name,
		Email:    claims.Email,
		WalletID: claims.Wallet,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// match the stored digest and is invalid afterwards.
func (s *Service) Rotate(ctx context.Context, presented string) (domain.TokenPair, error) {
	claims := &jwt.RegisteredClaims{}
	if err := s.parse(presented, s.refreshSecret, claims); err != nil {
		return domain.TokenPair{}, s.rejectRotation(reason(err))
	}
	identity, err := s.store.IdentityBySubject(ctx, claims.Subject)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput):
		return domain.TokenPair{}, s.rejectRotation("unknown subject")
	case err != nil:
		obs.TokenRotations.WithLabelValues("error").Inc()
		return domain.TokenPair{}, fmt.Errorf("%w: load identity: %v", domain.ErrInternal, err)
	}

	digest := Digest(presented)
	if identity.RefreshDigest == "" || subtle.ConstantTimeCompare([]byte(identity.RefreshDigest), []byte(digest)) != 1 {
		return domain.TokenPair{}, s.rejectRotation("stale token")
	}

	pair, next, err := s.mint(identity)
	if err != nil {
		return domain.TokenPair{}, err
	}
	swapped, err := s.store.SwapRefreshToken(ctx, identity.ID, digest, next)
	if err != nil {
		obs.TokenRotations.WithLabelValues("error").Inc()
		return domain.TokenPair{}, fmt.Errorf("%w: swap refresh token: %v", domain.ErrInternal, err)
	}
	if !swapped {
		return domain.TokenPair{}, s.rejectRotation("concurrent rotation")
	}
	obs.TokenRotations.WithLabelValues("ok").Inc()
	obs.TokensIssued.Inc()
	log.Info().Str("module", "token").Str("sub", string(identity.ID)).Msg("rotated refresh token")
	return pair, nil
}

// Revoke clears the stored refresh token.
func (s *Service) Revoke(ctx context.Context, id domain.IdentityID) error {
	if err := s.store.ClearRefreshToken(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: clear refresh token: %v", domain.ErrInternal, err)
	}
	log.Info().Str("module", "token").Str("sub", string(id)).Msg("revoked refresh token")
	return nil
}

func (s *Service) mint(identity *domain.Identity) (domain.TokenPair, string, error) {
	now := s.now().UTC()
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Name:   identity.Name,
		Email:  identity.Email,
		Wallet: identity.WalletID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   string(identity.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("%w: sign access token: %v", domain.ErrInternal, err)
	}
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   string(identity.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		ID:        uuid.NewString(),
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("%w: sign refresh token: %v", domain.ErrInternal, err)
	}
	return domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, Digest(refreshToken), nil
}

func (s *Service) parse(raw string, secret []byte, claims jwt.Claims) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return jwt.ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenUnverifiable
	}
	return nil
}

func (s *Service) rejectRotation(why string) error {
	obs.TokenRotations.WithLabelValues("rejected").Inc()
	log.Debug().Str("module", "token").Str("reason", why).Msg("refresh token rejected")
	return domain.ErrUnauthorized
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	default:
		return "invalid"
	}
}
