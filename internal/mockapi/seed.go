package mockapi

import (
	_ "embed"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Users   []seedUser   `yaml:"users"`
	Clients []seedClient `yaml:"clients"`
}

type seedUser struct {
	ID       string      `yaml:"id"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     string      `yaml:"role"`
	Profile  seedProfile `yaml:"profile"`
}

type seedProfile struct {
	FirstName   string `yaml:"firstName"`
	MiddleName  string `yaml:"middleName"`
	LastName    string `yaml:"lastName"`
	DateOfBirth string `yaml:"dateOfBirth"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
	ContactType string `yaml:"contactType"`
	Address     struct {
		Country    string `yaml:"country"`
		City       string `yaml:"city"`
		Street     string `yaml:"street"`
		PostalCode string `yaml:"postalCode"`
		Type       string `yaml:"type"`
	} `yaml:"address"`
	Occupation struct {
		Name     string `yaml:"name"`
		FromYear int    `yaml:"fromYear"`
	} `yaml:"occupation"`
}

type seedClient struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	KYCStatus string `yaml:"kycStatus"`
}

// account is a stored user with its password hash.
type account struct {
	identity domain.Identity
	hash     []byte
}

func parseSeed(raw []byte, cost int, now time.Time) ([]account, []domain.Client, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("parse seed: %w", err)
	}

	accounts := make([]account, 0, len(f.Users))
	clients := make([]domain.Client, 0, len(f.Users)+len(f.Clients))
	for _, u := range f.Users {
		role := domain.Role(u.Role)
		if !role.IsValid() {
			return nil, nil, fmt.Errorf("seed user %s: unknown role %q", u.ID, u.Role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password for %s: %w", u.ID, err)
		}
		info := u.Profile.personalInfo(id.UserID(u.ID), now)
		identity := domain.Identity{
			ID:           id.UserID(u.ID),
			Email:        u.Email,
			Name:         info.FullName(),
			Role:         role,
			PersonalInfo: &info,
		}
		accounts = append(accounts, account{identity: identity, hash: hash})
		if role == domain.RoleNormalUser {
			clients = append(clients, domain.Client{
				ID:          identity.ID,
				Name:        identity.Name,
				Email:       identity.Email,
				KYCStatus:   domain.KYCNotSubmitted,
				LastUpdated: now,
			})
		}
	}
	for _, c := range f.Clients {
		clients = append(clients, domain.Client{
			ID:          id.UserID(c.ID),
			Name:        c.Name,
			Email:       c.Email,
			KYCStatus:   domain.KYCStatus(c.KYCStatus),
			LastUpdated: now,
		})
	}
	return accounts, clients, nil
}

func (p seedProfile) personalInfo(userID id.UserID, now time.Time) domain.PersonalInfo {
	suffix := string(userID)
	ct := domain.ContactType(p.ContactType)
	info := domain.PersonalInfo{
		ID:          "p" + suffix,
		UserID:      userID,
		FirstName:   p.FirstName,
		MiddleName:  p.MiddleName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
		Emails:      []domain.EmailInfo{{ID: "e" + suffix, Email: p.Email, Type: ct, Preferred: true}},
		Phones:      []domain.PhoneInfo{{ID: "ph" + suffix, Number: p.Phone, Type: ct, Preferred: true}},
		Addresses: []domain.AddressInfo{{
			ID:         "a" + suffix,
			Country:    p.Address.Country,
			City:       p.Address.City,
			Street:     p.Address.Street,
			PostalCode: p.Address.PostalCode,
			Type:       domain.AddressType(p.Address.Type),
		}},
		Occupations: []domain.OccupationInfo{{ID: "o" + suffix, Name: p.Occupation.Name, FromYear: p.Occupation.FromYear}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if dob, ok := domain.ParseDate(p.DateOfBirth); ok {
		info.Age = domain.AgeOn(dob, now)
	}
	return info
}
