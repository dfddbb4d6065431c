// Package domain holds typed identifiers shared across packages. Parsing
// happens once at trust boundaries (route params, request bodies, persisted
// records) so the rest of the code never sees an unchecked id.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "kycportal/pkg/domain-errors"
)

const maxIDLength = 64

// UserID identifies an upstream user account. Upstream ids are opaque
// strings ("1", "usr_42").
type UserID string

// KYCID identifies a stored KYC submission.
type KYCID string

// ReviewID identifies a stored officer review.
type ReviewID string

// WorkspaceID identifies one browser's server-side state.
type WorkspaceID uuid.UUID

func (id UserID) String() string   { return string(id) }
func (id KYCID) String() string    { return string(id) }
func (id ReviewID) String() string { return string(id) }

func (id UserID) IsZero() bool { return id == "" }

func (id WorkspaceID) String() string { return uuid.UUID(id).String() }

func (id WorkspaceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewWorkspaceID returns a random workspace id.
func NewWorkspaceID() WorkspaceID {
	return WorkspaceID(uuid.New())
}

// ParseUserID validates an upstream user id.
func ParseUserID(s string) (UserID, error) {
	v, err := parseOpaque(s, "user id")
	return UserID(v), err
}

// ParseKYCID validates a KYC submission id.
func ParseKYCID(s string) (KYCID, error) {
	v, err := parseOpaque(s, "kyc id")
	return KYCID(v), err
}

// ParseReviewID validates a review id.
func ParseReviewID(s string) (ReviewID, error) {
	v, err := parseOpaque(s, "review id")
	return ReviewID(v), err
}

// ParseWorkspaceID validates a workspace cookie value.
func ParseWorkspaceID(s string) (WorkspaceID, error) {
	if s == "" {
		return WorkspaceID{}, dErrors.New(dErrors.CodeInvalidInput, "workspace id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return WorkspaceID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid workspace id")
	}
	if parsed == uuid.Nil {
		return WorkspaceID{}, dErrors.New(dErrors.CodeInvalidInput, "workspace id cannot be nil")
	}
	return WorkspaceID(parsed), nil
}

func parseOpaque(s, kind string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	for _, r := range s {
		if !isIDRune(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
		}
	}
	return s, nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
