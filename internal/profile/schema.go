// Package profile binds the generic form engine to the personal-information
// record: schema, defaults, record building and the submit flow.
package profile

import (
	"strconv"
	"time"

	"kycportal/internal/domain"
	"kycportal/internal/form"
)

const FormName = "profile"

// NewSchema returns the profile schema. now seeds the fromYear of new
// occupation rows.
func NewSchema(now func() time.Time) *form.Schema {
	contactTypes := []string{string(domain.ContactPersonal), string(domain.ContactWork)}
	addressTypes := []string{string(domain.AddressMailing), string(domain.AddressWork)}

	return &form.Schema{
		Name:            FormName,
		RequireEditMode: true,
		Fields: []form.Field{
			{Name: "firstName", Rules: []form.Rule{form.Required("First name is required")}},
			{Name: "middleName"},
			{Name: "lastName", Rules: []form.Rule{form.Required("Last name is required")}},
			{Name: "dateOfBirth", Kind: form.KindDate, Rules: []form.Rule{
				form.Required("Date of birth is required"),
				form.Date("Invalid date"),
				form.PastDate("Date of birth cannot be in the future"),
			}},
			{Name: "passport"},
			{Name: "nationalId"},
			{Name: "driverLicense"},
		},
		Groups: []form.Group{
			{
				Name:           "emails",
				IDPrefix:       "email",
				MinRows:        1,
				MinRowsMessage: "At least one email is required",
				Exclusive:      []string{"preferred"},
				Fields: []form.Field{
					{Name: "email", Rules: []form.Rule{form.Required("Email is required"), form.Email("Invalid email format")}},
					{Name: "type", Rules: []form.Rule{form.OneOf(contactTypes, "Invalid email type")}},
					{Name: "preferred", Kind: form.KindBool},
				},
				NewRow: func() map[string]string {
					return map[string]string{"type": string(domain.ContactPersonal), "preferred": "false"}
				},
			},
			{
				Name:           "phones",
				IDPrefix:       "phone",
				MinRows:        1,
				MinRowsMessage: "At least one phone is required",
				Exclusive:      []string{"preferred"},
				Fields: []form.Field{
					{Name: "number", Rules: []form.Rule{form.Required("Phone number is required")}},
					{Name: "type", Rules: []form.Rule{form.OneOf(contactTypes, "Invalid phone type")}},
					{Name: "preferred", Kind: form.KindBool},
				},
				NewRow: func() map[string]string {
					return map[string]string{"type": string(domain.ContactPersonal), "preferred": "false"}
				},
			},
			{
				Name:           "addresses",
				IDPrefix:       "addr",
				MinRows:        1,
				MinRowsMessage: "At least one address is required",
				Fields: []form.Field{
					{Name: "country", Rules: []form.Rule{form.Required("Country is required")}},
					{Name: "city", Rules: []form.Rule{form.Required("City is required")}},
					{Name: "street", Rules: []form.Rule{form.Required("Street is required")}},
					{Name: "postalCode"},
					{Name: "type", Rules: []form.Rule{form.OneOf(addressTypes, "Invalid address type")}},
				},
				NewRow: func() map[string]string {
					return map[string]string{"type": string(domain.AddressMailing)}
				},
			},
			{
				Name:     "occupations",
				IDPrefix: "occ",
				Fields: []form.Field{
					{Name: "name", Rules: []form.Rule{form.Required("Occupation name is required")}},
					{Name: "fromYear", Kind: form.KindNumber, Rules: []form.Rule{
						form.Required("From year is required"),
						form.Min(1900, "Invalid year"),
						form.NotFutureYear("Year cannot be in the future"),
					}},
					{Name: "toYear", Kind: form.KindNumber, Rules: []form.Rule{
						form.GreaterThanField("fromYear", "To year must be greater than from year"),
					}},
				},
				NewRow: func() map[string]string {
					return map[string]string{"fromYear": strconv.Itoa(now().Year())}
				},
			},
		},
		Derived: []form.Derived{
			{Name: "age", Compute: func(r form.Reader, now time.Time) string {
				dob, ok := domain.ParseDate(r.String("dateOfBirth"))
				if !ok {
					return "0"
				}
				return strconv.Itoa(domain.AgeOn(dob, now))
			}},
		},
	}
}
