package domain

import (
	"time"

	"github.com/shopspring/decimal"

	id "kycportal/pkg/domain"
)

// FinancialRow is one typed amount inside a bucket.
type FinancialRow struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// KYCSnapshot is the questionnaire as submitted, without server fields.
type KYCSnapshot struct {
	UserID         id.UserID      `json:"userId"`
	DocumentType   string         `json:"documentType"`
	DocumentNumber string         `json:"documentNumber"`
	IssueDate      string         `json:"issueDate"`
	ExpiryDate     string         `json:"expiryDate"`
	IssuingCountry string         `json:"issuingCountry"`
	ProofOfAddress string         `json:"proofOfAddress,omitempty"`
	Incomes        []FinancialRow `json:"incomes"`
	Assets         []FinancialRow `json:"assets"`
	Liabilities    []FinancialRow `json:"liabilities"`
	SourceOfWealth []FinancialRow `json:"sourceOfWealth"`
	Experience     string         `json:"experience"`
	RiskTolerance  string         `json:"riskTolerance"`
}

// NetWorth sums every row of the four buckets.
func (s KYCSnapshot) NetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, bucket := range [][]FinancialRow{s.Incomes, s.Assets, s.Liabilities, s.SourceOfWealth} {
		for _, r := range bucket {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// KYCData is a stored submission.
type KYCData struct {
	ID        id.KYCID  `json:"id"`
	Status    KYCStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	KYCSnapshot
}
