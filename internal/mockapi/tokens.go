package mockapi

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

const tokenIssuer = "kycportal-mock"

// Claims are carried by mock access tokens.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 access tokens and tracks refresh tokens and
// revoked token ids in memory.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]id.UserID
	revoked map[string]time.Time
}

func NewTokenIssuer(signingKey string, ttl time.Duration, now func() time.Time) *TokenIssuer {
	return &TokenIssuer{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        now,
		refresh:    make(map[string]id.UserID),
		revoked:    make(map[string]time.Time),
	}
}

// Issue returns a signed access token and a fresh refresh token.
func (t *TokenIssuer) Issue(identity domain.Identity) (string, string, error) {
	access, err := t.sign(identity.ID, identity.Role)
	if err != nil {
		return "", "", err
	}
	refresh := "mock-refresh-token-" + uuid.NewString()
	t.mu.Lock()
	t.refresh[refresh] = identity.ID
	t.mu.Unlock()
	return access, refresh, nil
}

func (t *TokenIssuer) sign(userID id.UserID, role domain.Role) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: string(userID),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// Validate parses an access token. Expired, revoked or malformed tokens are
// CodeUnauthorized.
func (t *TokenIssuer) Validate(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	return claims, nil
}

// Revoke invalidates the access token identified by claims and every
// refresh token of its user.
func (t *TokenIssuer) Revoke(claims *Claims) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if claims.ExpiresAt != nil {
		t.revoked[claims.ID] = claims.ExpiresAt.Time
	}
	for tok, userID := range t.refresh {
		if string(userID) == claims.UserID {
			delete(t.refresh, tok)
		}
	}
	now := t.now()
	for jti, exp := range t.revoked {
		if exp.Before(now) {
			delete(t.revoked, jti)
		}
	}
}

// Rotate revokes claims' token and signs a replacement for the same user.
func (t *TokenIssuer) Rotate(claims *Claims) (string, error) {
	token, err := t.sign(id.UserID(claims.UserID), claims.Role)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	if claims.ExpiresAt != nil {
		t.revoked[claims.ID] = claims.ExpiresAt.Time
	}
	t.mu.Unlock()
	return token, nil
}

// Exchange consumes a refresh token and returns the user it was issued to.
func (t *TokenIssuer) Exchange(refresh string) (id.UserID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.refresh[refresh]
	if ok {
		delete(t.refresh, refresh)
	}
	return userID, ok
}
