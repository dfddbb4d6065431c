package kyc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycportal/internal/domain"
	"kycportal/internal/form"
)

func TestBlankDefaults(t *testing.T) {
	engine := form.New(NewSchema(), Defaults(nil))
	snap := engine.Snapshot()

	assert.Equal(t, "Passport", snap.String("documentType"))
	assert.Equal(t, "< 5 years", snap.String("experience"))
	assert.Equal(t, "10%", snap.String("riskTolerance"))
	for group, id := range map[string]string{"incomes": "inc-1", "assets": "ass-1", "liabilities": "lia-1", "sourceOfWealth": "sw-1"} {
		rows := snap.Rows(group)
		require.Len(t, rows, 1, group)
		assert.Equal(t, id, rows[0].ID)
		assert.Equal(t, "0", rows[0].Values["amount"])
	}
	assert.Equal(t, "Liquidity", snap.Rows("assets")[0].Values["type"])
	assert.Equal(t, "0.00", snap.Derived["netWorth"])
}

func TestNetWorthSumsAllBuckets(t *testing.T) {
	engine := form.New(NewSchema(), Defaults(nil))
	require.NoError(t, engine.SetField("incomes[0].amount", float64(1000)))
	require.NoError(t, engine.SetField("assets[0].amount", float64(250.5)))
	require.NoError(t, engine.SetField("liabilities[0].amount", float64(100)))
	require.NoError(t, engine.SetField("sourceOfWealth[0].amount", float64(49.5)))
	_, err := engine.AppendRow("incomes", map[string]any{"amount": float64(500)})
	require.NoError(t, err)

	snap := engine.Snapshot()
	assert.Equal(t, "1500.00", snap.Derived["incomesTotal"])
	assert.Equal(t, "250.50", snap.Derived["assetsTotal"])
	assert.Equal(t, "100.00", snap.Derived["liabilitiesTotal"])
	assert.Equal(t, "49.50", snap.Derived["sourceOfWealthTotal"])
	assert.Equal(t, "1900.00", snap.Derived["netWorth"])

	require.NoError(t, engine.RemoveRow("incomes", 0))
	assert.Equal(t, "900.00", engine.Snapshot().Derived["netWorth"])

	require.NoError(t, engine.SetField("assets[0].amount", ""))
	assert.Equal(t, "649.50", engine.Snapshot().Derived["netWorth"])
}

func TestBucketsMayBeEmptied(t *testing.T) {
	engine := form.New(NewSchema(), Defaults(nil))
	require.NoError(t, engine.RemoveRow("liabilities", 0))
	assert.Empty(t, engine.Snapshot().Rows("liabilities"))
}

func TestValidationMessages(t *testing.T) {
	engine := form.New(NewSchema(), Defaults(nil))
	require.NoError(t, engine.SetField("documentNumber", "AB12"))
	require.NoError(t, engine.SetField("incomes[0].amount", float64(-5)))
	require.NoError(t, engine.SetField("experience", ""))

	res := engine.Validate()
	assert.False(t, res.Valid)
	assert.Equal(t, "At least 6 characters", res.Errors["documentNumber"])
	assert.Equal(t, "Issue date is required", res.Errors["issueDate"])
	assert.Equal(t, "Expiry date is required", res.Errors["expiryDate"])
	assert.Equal(t, "Country is required", res.Errors["issuingCountry"])
	assert.Equal(t, "Experience is required", res.Errors["experience"])
	assert.Equal(t, "Must be >= 0", res.Errors["incomes[0].amount"])
	assert.NotContains(t, res.Errors, "documentType")
}

func TestHydrateAndBuildRoundTrip(t *testing.T) {
	existing := &domain.KYCData{
		ID:     "kyc-1",
		Status: domain.KYCPending,
		KYCSnapshot: domain.KYCSnapshot{
			UserID:         "1",
			DocumentType:   "National ID",
			DocumentNumber: "X123456",
			IssueDate:      "2020-01-01",
			ExpiryDate:     "2030-01-01",
			IssuingCountry: "US",
			Incomes:        []domain.FinancialRow{{ID: "inc-9", Type: "Investment", Amount: decimal.RequireFromString("12.34")}},
			Assets:         []domain.FinancialRow{},
			Liabilities:    []domain.FinancialRow{},
			SourceOfWealth: []domain.FinancialRow{{ID: "sw-3", Type: "Donation", Amount: decimal.NewFromInt(7)}},
			Experience:     "> 10 years",
			RiskTolerance:  "All-in",
		},
	}
	engine := form.New(NewSchema(), Defaults(existing))
	require.True(t, engine.Validate().Valid)

	built := Build(engine.Snapshot(), "1")
	assert.Equal(t, existing.DocumentType, built.DocumentType)
	assert.Equal(t, "inc-9", built.Incomes[0].ID)
	assert.True(t, built.Incomes[0].Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Empty(t, built.Assets)
	assert.True(t, built.NetWorth().Equal(decimal.RequireFromString("19.34")))
}
