package domain

import (
	"time"

	id "kycportal/pkg/domain"
)

type ReviewStatus string

const (
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) IsValid() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// KYCStatus is the client status a review decision moves the client to.
func (s ReviewStatus) KYCStatus() KYCStatus {
	if s == ReviewApproved {
		return KYCApproved
	}
	return KYCRejected
}

// Review is an officer decision on a KYC submission.
type Review struct {
	ID         id.ReviewID  `json:"id"`
	UserID     id.UserID    `json:"userId"`
	KYCID      id.KYCID     `json:"kycId"`
	ReviewerID id.UserID    `json:"reviewerId"`
	Status     ReviewStatus `json:"status"`
	Comments   string       `json:"comments"`
	ReviewedAt time.Time    `json:"reviewedAt"`
}

// ReviewRequest is the input to submitting a review.
type ReviewRequest struct {
	UserID     id.UserID    `json:"userId"`
	KYCID      id.KYCID     `json:"kycId"`
	ReviewerID id.UserID    `json:"reviewerId"`
	Status     ReviewStatus `json:"status"`
	Comments   string       `json:"comments"`
}

// KYCIDFor is the submission id convention used by the review queue.
func KYCIDFor(userID id.UserID) id.KYCID {
	return id.KYCID("kyc-" + string(userID))
}
