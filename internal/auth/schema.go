package auth

import "kycportal/internal/form"

const FormName = "login"

const (
	msgEmailRequired    = "Email is required"
	msgEmailLength      = "Email must be between 8-10 characters"
	msgPasswordRequired = "Password is required"
	msgPasswordLength   = "Password must be between 12-16 characters"
	msgPasswordStrength = "Password must contain uppercase, lowercase, number, and special character (@, #, &, !)"
)

// NewSchema is the login form. Both fields are checked locally before any
// authenticator call.
func NewSchema() *form.Schema {
	return &form.Schema{
		Name: FormName,
		Fields: []form.Field{
			{Name: "email", Kind: form.KindText, Rules: []form.Rule{
				form.Required(msgEmailRequired),
				form.MinLength(8, msgEmailLength),
				form.MaxLength(10, msgEmailLength),
			}},
			{Name: "password", Kind: form.KindText, Rules: []form.Rule{
				form.Required(msgPasswordRequired),
				form.MinLength(12, msgPasswordLength),
				form.MaxLength(16, msgPasswordLength),
				form.Password(msgPasswordStrength),
			}},
		},
	}
}
