package kyc

import (
	"strings"

	"github.com/shopspring/decimal"

	"kycportal/internal/domain"
	"kycportal/internal/form"
	id "kycportal/pkg/domain"
)

// Defaults hydrates the form from a previous submission, or returns the
// blank questionnaire with one zero row per bucket.
func Defaults(existing *domain.KYCData) form.Defaults {
	if existing == nil {
		d := form.Defaults{
			Values: map[string]string{
				"documentType":  "Passport",
				"experience":    Experiences[0],
				"riskTolerance": RiskTolerances[0],
			},
			Groups: map[string][]form.Row{},
		}
		for _, b := range buckets {
			d.Groups[b.group] = []form.Row{{
				ID:     b.prefix + "-1",
				Values: map[string]string{"type": b.defaultType, "amount": "0"},
			}}
		}
		return d
	}

	d := form.Defaults{
		Values: map[string]string{
			"documentType":   existing.DocumentType,
			"documentNumber": existing.DocumentNumber,
			"issueDate":      existing.IssueDate,
			"expiryDate":     existing.ExpiryDate,
			"issuingCountry": existing.IssuingCountry,
			"proofOfAddress": existing.ProofOfAddress,
			"experience":     existing.Experience,
			"riskTolerance":  existing.RiskTolerance,
		},
		Groups: map[string][]form.Row{},
	}
	sources := map[string][]domain.FinancialRow{
		"incomes":        existing.Incomes,
		"assets":         existing.Assets,
		"liabilities":    existing.Liabilities,
		"sourceOfWealth": existing.SourceOfWealth,
	}
	for _, b := range buckets {
		rows := make([]form.Row, 0, len(sources[b.group]))
		for _, r := range sources[b.group] {
			rows = append(rows, form.Row{ID: r.ID, Values: map[string]string{
				"type": r.Type, "amount": r.Amount.String(),
			}})
		}
		d.Groups[b.group] = rows
	}
	return d
}

// Build turns a validated snapshot into the submission payload.
func Build(snap form.Snapshot, userID id.UserID) domain.KYCSnapshot {
	return domain.KYCSnapshot{
		UserID:         userID,
		DocumentType:   snap.String("documentType"),
		DocumentNumber: strings.TrimSpace(snap.String("documentNumber")),
		IssueDate:      snap.String("issueDate"),
		ExpiryDate:     snap.String("expiryDate"),
		IssuingCountry: strings.TrimSpace(snap.String("issuingCountry")),
		ProofOfAddress: snap.String("proofOfAddress"),
		Incomes:        rows(snap, "incomes"),
		Assets:         rows(snap, "assets"),
		Liabilities:    rows(snap, "liabilities"),
		SourceOfWealth: rows(snap, "sourceOfWealth"),
		Experience:     snap.String("experience"),
		RiskTolerance:  snap.String("riskTolerance"),
	}
}

func rows(snap form.Snapshot, group string) []domain.FinancialRow {
	out := make([]domain.FinancialRow, 0, len(snap.Rows(group)))
	for _, r := range snap.Rows(group) {
		amount, err := decimal.NewFromString(strings.TrimSpace(r.Values["amount"]))
		if err != nil {
			amount = decimal.Zero
		}
		out = append(out, domain.FinancialRow{ID: r.ID, Type: r.Values["type"], Amount: amount})
	}
	return out
}
