package domain

import (
	"time"

	id "kycportal/pkg/domain"
)

type KYCStatus string

const (
	KYCPending      KYCStatus = "pending"
	KYCApproved     KYCStatus = "approved"
	KYCRejected     KYCStatus = "rejected"
	KYCNotSubmitted KYCStatus = "not_submitted"
)

// Client is the officer-facing projection of a user.
type Client struct {
	ID          id.UserID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	KYCStatus   KYCStatus `json:"kycStatus"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FilterByStatus keeps clients whose KYC status matches.
func FilterByStatus(clients []Client, status KYCStatus) []Client {
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if c.KYCStatus == status {
			out = append(out, c)
		}
	}
	return out
}
