package profile

import (
	"strconv"
	"strings"
	"time"

	"kycportal/internal/domain"
	"kycportal/internal/form"
	id "kycportal/pkg/domain"
)

// Defaults hydrates the form from info, or builds an empty record whose
// single preferred email row carries email.
func Defaults(info *domain.PersonalInfo, email string, now time.Time) form.Defaults {
	if info == nil {
		return form.Defaults{
			Values: map[string]string{},
			Groups: map[string][]form.Row{
				"emails": {{Values: map[string]string{
					"email": email, "type": string(domain.ContactPersonal), "preferred": "true",
				}}},
				"phones": {{Values: map[string]string{
					"type": string(domain.ContactPersonal), "preferred": "true",
				}}},
				"addresses": {{Values: map[string]string{"type": string(domain.AddressMailing)}}},
				"occupations": {{Values: map[string]string{
					"fromYear": strconv.Itoa(now.Year()),
				}}},
			},
		}
	}

	d := form.Defaults{
		Values: map[string]string{
			"firstName":     info.FirstName,
			"middleName":    info.MiddleName,
			"lastName":      info.LastName,
			"dateOfBirth":   info.DateOfBirth,
			"passport":      info.IdentificationDocuments.Passport,
			"nationalId":    info.IdentificationDocuments.NationalID,
			"driverLicense": info.IdentificationDocuments.DriverLicense,
		},
		Groups: map[string][]form.Row{},
	}
	for _, e := range info.Emails {
		d.Groups["emails"] = append(d.Groups["emails"], form.Row{ID: e.ID, Values: map[string]string{
			"email": e.Email, "type": string(e.Type), "preferred": strconv.FormatBool(e.Preferred),
		}})
	}
	for _, p := range info.Phones {
		d.Groups["phones"] = append(d.Groups["phones"], form.Row{ID: p.ID, Values: map[string]string{
			"number": p.Number, "type": string(p.Type), "preferred": strconv.FormatBool(p.Preferred),
		}})
	}
	for _, a := range info.Addresses {
		d.Groups["addresses"] = append(d.Groups["addresses"], form.Row{ID: a.ID, Values: map[string]string{
			"country": a.Country, "city": a.City, "street": a.Street,
			"postalCode": a.PostalCode, "type": string(a.Type),
		}})
	}
	for _, o := range info.Occupations {
		vals := map[string]string{"name": o.Name, "fromYear": strconv.Itoa(o.FromYear)}
		if o.ToYear != nil {
			vals["toYear"] = strconv.Itoa(*o.ToYear)
		}
		d.Groups["occupations"] = append(d.Groups["occupations"], form.Row{ID: o.ID, Values: vals})
	}
	return d
}

// Build turns a validated snapshot into a PersonalInfo for userID. The
// record id and creation time are kept from previous when present. Age is
// always recomputed from the date of birth.
func Build(snap form.Snapshot, userID id.UserID, previous *domain.PersonalInfo, now time.Time) domain.PersonalInfo {
	info := domain.PersonalInfo{
		ID:          "p" + string(userID),
		UserID:      userID,
		FirstName:   strings.TrimSpace(snap.String("firstName")),
		MiddleName:  strings.TrimSpace(snap.String("middleName")),
		LastName:    strings.TrimSpace(snap.String("lastName")),
		DateOfBirth: snap.String("dateOfBirth"),
		IdentificationDocuments: domain.IdentificationDocuments{
			Passport:      snap.String("passport"),
			NationalID:    snap.String("nationalId"),
			DriverLicense: snap.String("driverLicense"),
		},
		Emails:      []domain.EmailInfo{},
		Phones:      []domain.PhoneInfo{},
		Addresses:   []domain.AddressInfo{},
		Occupations: []domain.OccupationInfo{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if previous != nil {
		if previous.ID != "" {
			info.ID = previous.ID
		}
		if !previous.CreatedAt.IsZero() {
			info.CreatedAt = previous.CreatedAt
		}
	}
	if dob, ok := domain.ParseDate(info.DateOfBirth); ok {
		info.Age = domain.AgeOn(dob, now)
	}

	for _, r := range snap.Rows("emails") {
		info.Emails = append(info.Emails, domain.EmailInfo{
			ID:        r.ID,
			Email:     strings.TrimSpace(r.Values["email"]),
			Type:      domain.ContactType(r.Values["type"]),
			Preferred: r.Values["preferred"] == "true",
		})
	}
	for _, r := range snap.Rows("phones") {
		info.Phones = append(info.Phones, domain.PhoneInfo{
			ID:        r.ID,
			Number:    strings.TrimSpace(r.Values["number"]),
			Type:      domain.ContactType(r.Values["type"]),
			Preferred: r.Values["preferred"] == "true",
		})
	}
	for _, r := range snap.Rows("addresses") {
		info.Addresses = append(info.Addresses, domain.AddressInfo{
			ID:         r.ID,
			Country:    r.Values["country"],
			City:       r.Values["city"],
			Street:     r.Values["street"],
			PostalCode: r.Values["postalCode"],
			Type:       domain.AddressType(r.Values["type"]),
		})
	}
	for _, r := range snap.Rows("occupations") {
		o := domain.OccupationInfo{ID: r.ID, Name: r.Values["name"]}
		o.FromYear, _ = strconv.Atoi(strings.TrimSpace(r.Values["fromYear"]))
		if to, err := strconv.Atoi(strings.TrimSpace(r.Values["toYear"])); err == nil {
			o.ToYear = &to
		}
		info.Occupations = append(info.Occupations, o)
	}
	return info
}
