// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxNameLen  = 64
	MaxEmailLen = 254
)

type IdentityID string

// ParseIdentityID accepts only canonical uuid strings, so a forged subject
// claim never reaches the store as an arbitrary key.
func ParseIdentityID(raw string) (IdentityID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidInput
	}
	return IdentityID(id.String()), nil
}

type Identity struct {
	ID            IdentityID `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phoneNumber,omitempty"`
	WalletID      string     `json:"walletId,omitempty"`
	GoogleID      string     `json:"-"`
	Avatar        string     `json:"avatar,omitempty"`
	PasswordHash  string     `json:"-"`
	// RefreshDigest is the digest of the single active refresh token, "" if none.
	RefreshDigest string     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsGoogleUser reports whether the identity was created by an OAuth login
// and therefore has no password.
func (i *Identity) IsGoogleUser() bool { return i.GoogleID != "" }

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(name, email string) (*Identity, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || len(name) > MaxNameLen {
		return nil, ErrInvalidInput
	}
	if email == "" || len(email) > MaxEmailLen || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	now := time.Now().UTC()
	return &Identity{
		ID:        IdentityID(uuid.NewString()),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Claims is what an access token proves about its bearer.
type Claims struct {
	Subject  IdentityID `json:"sub"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	WalletID string     `json:"wallet,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
