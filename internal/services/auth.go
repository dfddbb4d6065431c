package services

import (
	"context"
	"net/http"

	"kycportal/internal/domain"
	"kycportal/internal/transport/apiclient"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is what the upstream returns on login.
type AuthResponse struct {
	User         domain.Identity `json:"user"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

type Auth struct {
	api  Caller
	sess apiclient.Session
}

// Login is anonymous: a 401 here means bad credentials, not an expired
// session.
func (a *Auth) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := a.api.Do(ctx, nil, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   Credentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.api.Do(ctx, a.sess, apiclient.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
}

func (a *Auth) CurrentUser(ctx context.Context) (*domain.Identity, error) {
	var out domain.Identity
	if err := a.api.Do(ctx, a.sess, apiclient.Request{Method: http.MethodGet, Path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) RefreshToken(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := a.api.Do(ctx, a.sess, apiclient.Request{Method: http.MethodPost, Path: "/auth/refresh"}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
