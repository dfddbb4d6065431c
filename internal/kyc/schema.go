// Package kyc binds the form engine to the identity and financial
// questionnaire and submits it upstream.
package kyc

import (
	"time"

	"github.com/shopspring/decimal"

	"kycportal/internal/form"
)

const FormName = "kyc"

var (
	DocumentTypes  = []string{"Passport", "National ID", "Driver License"}
	IncomeTypes    = []string{"Salary", "Investment", "Others"}
	AssetTypes     = []string{"Bond", "Liquidity", "Real Estate", "Others"}
	LiabilityTypes = []string{"Personal Loan", "Real Estate Loan", "Others"}
	WealthTypes    = []string{"Inheritance", "Donation", "Others"}
	Experiences    = []string{"< 5 years", "> 5 and < 10 years", "> 10 years"}
	RiskTolerances = []string{"10%", "30%", "All-in"}
)

// bucket describes one repeatable financial group.
type bucket struct {
	group       string
	prefix      string
	types       []string
	defaultType string
	total       string
}

var buckets = []bucket{
	{group: "incomes", prefix: "inc", types: IncomeTypes, defaultType: "Salary", total: "incomesTotal"},
	{group: "assets", prefix: "ass", types: AssetTypes, defaultType: "Liquidity", total: "assetsTotal"},
	{group: "liabilities", prefix: "lia", types: LiabilityTypes, defaultType: "Personal Loan", total: "liabilitiesTotal"},
	{group: "sourceOfWealth", prefix: "sw", types: WealthTypes, defaultType: "Inheritance", total: "sourceOfWealthTotal"},
}

func NewSchema() *form.Schema {
	s := &form.Schema{
		Name: FormName,
		Fields: []form.Field{
			{Name: "documentType", Rules: []form.Rule{
				form.Required("Document type is required"),
				form.OneOf(DocumentTypes, "Invalid document type"),
			}},
			{Name: "documentNumber", Rules: []form.Rule{
				form.Required("Document number is required"),
				form.MinLength(6, "At least 6 characters"),
			}},
			{Name: "issueDate", Kind: form.KindDate, Rules: []form.Rule{
				form.Required("Issue date is required"),
				form.Date("Invalid date"),
			}},
			{Name: "expiryDate", Kind: form.KindDate, Rules: []form.Rule{
				form.Required("Expiry date is required"),
				form.Date("Invalid date"),
			}},
			{Name: "issuingCountry", Rules: []form.Rule{form.Required("Country is required")}},
			{Name: "proofOfAddress"},
			{Name: "experience", Rules: []form.Rule{
				form.Required("Experience is required"),
				form.OneOf(Experiences, "Invalid experience"),
			}},
			{Name: "riskTolerance", Rules: []form.Rule{
				form.Required("Risk tolerance is required"),
				form.OneOf(RiskTolerances, "Invalid risk tolerance"),
			}},
		},
	}

	for _, b := range buckets {
		b := b
		s.Groups = append(s.Groups, form.Group{
			Name:     b.group,
			IDPrefix: b.prefix,
			Fields: []form.Field{
				{Name: "type", Rules: []form.Rule{form.OneOf(b.types, "Invalid type")}},
				{Name: "amount", Kind: form.KindNumber, Rules: []form.Rule{form.Min(0, "Must be >= 0")}},
			},
			NewRow: func() map[string]string {
				return map[string]string{"type": b.defaultType, "amount": "0"}
			},
		})
		s.Derived = append(s.Derived, form.Derived{
			Name: b.total,
			Compute: func(r form.Reader, _ time.Time) string {
				return form.SumDecimal(r, b.group, "amount").StringFixed(2)
			},
		})
	}

	s.Derived = append(s.Derived, form.Derived{
		Name: "netWorth",
		Compute: func(r form.Reader, _ time.Time) string {
			return NetWorth(r).StringFixed(2)
		},
	})
	return s
}

// NetWorth is the sum of the four bucket totals. Blank or non-numeric
// amounts count as zero.
func NetWorth(r form.Reader) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(form.SumDecimal(r, b.group, "amount"))
	}
	return total
}
