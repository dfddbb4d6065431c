package mockapi

import (
	"context"

	"kycportal/internal/domain"
	"kycportal/internal/services"
	id "kycportal/pkg/domain"
)

// TokenSource yields the bearer token of the session being served.
type TokenSource interface {
	Token() string
}

// LocalAuthenticator authenticates against the mock backend in process,
// without an HTTP round trip. Tokens it issues are accepted by the mock API.
type LocalAuthenticator struct {
	backend *Backend
	tokens  *TokenIssuer
	source  TokenSource
}

func NewLocalAuthenticator(backend *Backend, tokens *TokenIssuer, source TokenSource) *LocalAuthenticator {
	return &LocalAuthenticator{backend: backend, tokens: tokens, source: source}
}

func (a *LocalAuthenticator) Login(_ context.Context, email, password string) (*services.AuthResponse, error) {
	identity, err := a.backend.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	token, refresh, err := a.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &services.AuthResponse{User: identity, Token: token, RefreshToken: refresh}, nil
}

// Logout revokes the current token. An already invalid token is not an
// error.
func (a *LocalAuthenticator) Logout(_ context.Context) error {
	claims, err := a.tokens.Validate(a.source.Token())
	if err != nil {
		return nil
	}
	a.tokens.Revoke(claims)
	return nil
}

func (a *LocalAuthenticator) CurrentUser(_ context.Context) (*domain.Identity, error) {
	claims, err := a.tokens.Validate(a.source.Token())
	if err != nil {
		return nil, err
	}
	identity, err := a.backend.Identity(id.UserID(claims.UserID))
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (a *LocalAuthenticator) RefreshToken(_ context.Context) (string, error) {
	claims, err := a.tokens.Validate(a.source.Token())
	if err != nil {
		return "", err
	}
	return a.tokens.Rotate(claims)
}
