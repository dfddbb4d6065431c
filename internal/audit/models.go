// Package audit records security- and compliance-relevant portal actions.
package audit

import (
	"time"

	id "kycportal/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance such as
	// KYC submissions and review decisions.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes and throttling.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Action names what happened.
type Action string

const (
	ActionLoginSucceeded  Action = "login_succeeded"
	ActionLoginFailed     Action = "login_failed"
	ActionLoginThrottled  Action = "login_throttled"
	ActionLoggedOut       Action = "logged_out"
	ActionSessionExpired  Action = "session_expired"
	ActionProfileUpdated  Action = "profile_updated"
	ActionKYCSubmitted    Action = "kyc_submitted"
	ActionReviewSubmitted Action = "review_submitted"
)

var actionCategories = map[Action]EventCategory{
	ActionLoginFailed:     CategorySecurity,
	ActionLoginThrottled:  CategorySecurity,
	ActionSessionExpired:  CategorySecurity,
	ActionKYCSubmitted:    CategoryCompliance,
	ActionReviewSubmitted: CategoryCompliance,
	ActionProfileUpdated:  CategoryCompliance,
}

// Category returns the category of a. Unknown actions are operational.
func (a Action) Category() EventCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic. UserID is the affected user; ActorID
// is who acted when that differs (an officer reviewing a client).
type Event struct {
	ID          string        `json:"id"`
	Category    EventCategory `json:"category"`
	Timestamp   time.Time     `json:"timestamp"`
	UserID      id.UserID     `json:"userId,omitempty"`
	ActorID     id.UserID     `json:"actorId,omitempty"`
	Action      Action        `json:"action"`
	Subject     string        `json:"subject,omitempty"`
	Decision    string        `json:"decision,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	RequestID   string        `json:"requestId,omitempty"`
	WorkspaceID string        `json:"workspaceId,omitempty"`
	IP          string        `json:"ip,omitempty"`
}
