package form

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"kycportal/internal/domain"
)

// RuleKind tags a Rule variant.
type RuleKind int

const (
	RuleRequired RuleKind = iota
	RuleMinLength
	RuleMaxLength
	RuleMin
	RuleMax
	RulePattern
	RuleEmail
	RulePassword
	RuleOneOf
	RuleGreaterThanField
	RuleNotFutureYear
	RulePastDate
	RuleDate
)

// Rule is a declarative check interpreted by the engine. Only the fields
// relevant to Kind are set.
type Rule struct {
	Kind    RuleKind
	Message string
	N       int
	Bound   decimal.Decimal
	Pattern *regexp.Regexp
	Options []string
	// Other names the sibling field of a cross-field rule.
	Other string
}

func Required(msg string) Rule { return Rule{Kind: RuleRequired, Message: msg} }

func MinLength(n int, msg string) Rule { return Rule{Kind: RuleMinLength, N: n, Message: msg} }

func MaxLength(n int, msg string) Rule { return Rule{Kind: RuleMaxLength, N: n, Message: msg} }

func Min(v int64, msg string) Rule {
	return Rule{Kind: RuleMin, Bound: decimal.NewFromInt(v), Message: msg}
}

func Max(v int64, msg string) Rule {
	return Rule{Kind: RuleMax, Bound: decimal.NewFromInt(v), Message: msg}
}

func Pattern(re *regexp.Regexp, msg string) Rule {
	return Rule{Kind: RulePattern, Pattern: re, Message: msg}
}

func Email(msg string) Rule { return Rule{Kind: RuleEmail, Message: msg} }

func Password(msg string) Rule { return Rule{Kind: RulePassword, Message: msg} }

func OneOf(options []string, msg string) Rule {
	return Rule{Kind: RuleOneOf, Options: options, Message: msg}
}

// GreaterThanField requires the value to exceed sibling field other when
// both are present.
func GreaterThanField(other, msg string) Rule {
	return Rule{Kind: RuleGreaterThanField, Other: other, Message: msg}
}

// NotFutureYear rejects years after the current one.
func NotFutureYear(msg string) Rule { return Rule{Kind: RuleNotFutureYear, Message: msg} }

// PastDate rejects YYYY-MM-DD dates after today.
func PastDate(msg string) Rule { return Rule{Kind: RulePastDate, Message: msg} }

// Date requires a YYYY-MM-DD value.
func Date(msg string) Rule { return Rule{Kind: RuleDate, Message: msg} }

var (
	emailPattern          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern          = regexp.MustCompile(`^[\d\s()+-]{10,}$`)
	documentNumberPattern = regexp.MustCompile(`(?i)^[A-Z0-9]{6,20}$`)
)

const dateLayout = "2006-01-02"

// check evaluates one rule against value. sibling resolves other fields of
// the same row (or top-level fields). Optional rules pass on empty input.
func (r Rule) check(value string, sibling func(string) string, now time.Time) bool {
	if r.Kind == RuleRequired {
		return strings.TrimSpace(value) != ""
	}
	if value == "" {
		return true
	}

	switch r.Kind {
	case RuleMinLength:
		return utf8.RuneCountInString(value) >= r.N
	case RuleMaxLength:
		return utf8.RuneCountInString(value) <= r.N
	case RuleMin:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		return err == nil && d.GreaterThanOrEqual(r.Bound)
	case RuleMax:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		return err == nil && d.LessThanOrEqual(r.Bound)
	case RulePattern:
		return r.Pattern.MatchString(value)
	case RuleEmail:
		return IsValidEmail(value)
	case RulePassword:
		return IsStrongPassword(value)
	case RuleOneOf:
		for _, o := range r.Options {
			if value == o {
				return true
			}
		}
		return false
	case RuleGreaterThanField:
		other := sibling(r.Other)
		if other == "" {
			return true
		}
		a, errA := decimal.NewFromString(strings.TrimSpace(value))
		b, errB := decimal.NewFromString(strings.TrimSpace(other))
		if errA != nil {
			return false
		}
		if errB != nil {
			return true
		}
		return a.GreaterThan(b)
	case RuleNotFutureYear:
		y, err := strconv.Atoi(strings.TrimSpace(value))
		return err == nil && y <= now.Year()
	case RulePastDate:
		t, err := time.Parse(dateLayout, value)
		return err == nil && !t.After(now)
	case RuleDate:
		_, err := time.Parse(dateLayout, value)
		return err == nil
	}
	return true
}

// IsValidEmail applies the local@domain.tld shape check.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsStrongPassword accepts 12 to 16 characters drawn from letters, digits
// and @#&!, with at least one upper, one lower, one digit and one of @#&!.
func IsStrongPassword(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 12 || n > 16 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@#&!", r):
			special = true
		default:
			return false
		}
	}
	return upper && lower && digit && special
}

// IsValidPhoneNumber accepts ten or more digits, spaces, parentheses, plus
// and dash characters.
func IsValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// IsValidDocumentNumber accepts 6 to 20 letters or digits.
func IsValidDocumentNumber(s string) bool {
	return documentNumberPattern.MatchString(s)
}

// IsAdult reports whether someone born on dob is at least 18 at now.
func IsAdult(dob, now time.Time) bool {
	return domain.AgeOn(dob, now) >= 18
}

// IsExpired reports whether a YYYY-MM-DD expiry date lies before now.
// Unparseable dates count as expired.
func IsExpired(expiry string, now time.Time) bool {
	t, err := time.Parse(dateLayout, expiry)
	if err != nil {
		return true
	}
	return t.Before(now.Truncate(24 * time.Hour))
}
