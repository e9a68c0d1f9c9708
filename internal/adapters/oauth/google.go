// Package oauth logs users in with Google OpenID Connect.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dkeye/demeet/internal/app/account"
	"golang.org/x/oauth2"
)

const GoogleIssuer = "https://accounts.google.com"

var ErrEmailNotVerified = errors.New("oauth: email not verified")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

type Google struct {
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle runs OIDC discovery against the issuer.
func NewGoogle(ctx context.Context, cfg Config) (*Google, error) {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = GoogleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return newGoogle(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newGoogle(cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *Google {
	return &Google{oauth2: cfg, verifier: verifier}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth2.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for a verified profile.
func (g *Google) Exchange(ctx context.Context, code string) (account.GoogleProfile, error) {
	tok, err := g.oauth2.Exchange(ctx, code)
	if err != nil {
		return account.GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		return account.GoogleProfile{}, errors.New("oauth: no id_token in token response")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return account.GoogleProfile{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return account.GoogleProfile{}, fmt.Errorf("decode claims: %w", err)
	}
	if !claims.EmailVerified {
		return account.GoogleProfile{}, ErrEmailNotVerified
	}
	return account.GoogleProfile{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
