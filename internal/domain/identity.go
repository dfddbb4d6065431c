package domain

import (
	"time"

	id "kycportal/pkg/domain"
)

// Role is assigned at login and never changes for the life of a session.
type Role string

const (
	RoleNormalUser Role = "NORMAL_USER"
	RoleOfficer    Role = "OFFICER"
)

func (r Role) IsValid() bool {
	return r == RoleNormalUser || r == RoleOfficer
}

// Identity is the authenticated user as returned by the auth backend.
type Identity struct {
	ID           id.UserID     `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Role         Role          `json:"role"`
	Avatar       string        `json:"avatar,omitempty"`
	PersonalInfo *PersonalInfo `json:"personalInfo,omitempty"`
}

func (i Identity) IsOfficer() bool {
	return i.Role == RoleOfficer
}

// Clone returns a deep copy so callers can never mutate a store's state.
func (i Identity) Clone() Identity {
	out := i
	if i.PersonalInfo != nil {
		pi := i.PersonalInfo.Clone()
		out.PersonalInfo = &pi
	}
	return out
}

type ContactType string

const (
	ContactWork     ContactType = "Work"
	ContactPersonal ContactType = "Personal"
)

type AddressType string

const (
	AddressMailing AddressType = "Mailing"
	AddressWork    AddressType = "Work"
)

type EmailInfo struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Type      ContactType `json:"type"`
	Preferred bool        `json:"preferred"`
}

type PhoneInfo struct {
	ID        string      `json:"id"`
	Number    string      `json:"number"`
	Type      ContactType `json:"type"`
	Preferred bool        `json:"preferred"`
}

type AddressInfo struct {
	ID         string      `json:"id"`
	Country    string      `json:"country"`
	City       string      `json:"city"`
	Street     string      `json:"street"`
	PostalCode string      `json:"postalCode,omitempty"`
	Type       AddressType `json:"type"`
}

type OccupationInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FromYear int    `json:"fromYear"`
	ToYear   *int   `json:"toYear,omitempty"`
}

// IdentificationDocuments holds stored-file references, never file content.
type IdentificationDocuments struct {
	Passport      string `json:"passport,omitempty"`
	NationalID    string `json:"nationalId,omitempty"`
	DriverLicense string `json:"driverLicense,omitempty"`
}

// PersonalInfo is the profile record. Age is derived from DateOfBirth and is
// recomputed whenever the record is built; it is never accepted as input.
type PersonalInfo struct {
	ID                      string                  `json:"id"`
	UserID                  id.UserID               `json:"userId"`
	FirstName               string                  `json:"firstName"`
	MiddleName              string                  `json:"middleName,omitempty"`
	LastName                string                  `json:"lastName"`
	DateOfBirth             string                  `json:"dateOfBirth"`
	Age                     int                     `json:"age"`
	Emails                  []EmailInfo             `json:"emails"`
	Phones                  []PhoneInfo             `json:"phones"`
	Addresses               []AddressInfo           `json:"addresses"`
	IdentificationDocuments IdentificationDocuments `json:"identificationDocuments"`
	Occupations             []OccupationInfo        `json:"occupations"`
	CreatedAt               time.Time               `json:"createdAt"`
	UpdatedAt               time.Time               `json:"updatedAt"`
}

func (p PersonalInfo) Clone() PersonalInfo {
	out := p
	out.Emails = append([]EmailInfo(nil), p.Emails...)
	out.Phones = append([]PhoneInfo(nil), p.Phones...)
	out.Addresses = append([]AddressInfo(nil), p.Addresses...)
	out.Occupations = make([]OccupationInfo, len(p.Occupations))
	for i, o := range p.Occupations {
		out.Occupations[i] = o
		if o.ToYear != nil {
			v := *o.ToYear
			out.Occupations[i].ToYear = &v
		}
	}
	return out
}

// FullName joins first and last name the way the session display name is built.
func (p PersonalInfo) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// AgeOn returns the number of full years elapsed between dob and now.
// The year difference is decremented when now falls before the birthday.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
