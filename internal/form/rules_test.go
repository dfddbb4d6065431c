package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"TestPassword1@":    true,
		"Abcdefgh12#!":      true,
		"testpassword1@":    false,
		"TESTPASSWORD1@":    false,
		"TestPassword@@":    false,
		"TestPassword12":    false,
		"Short1@a":          false,
		"TestPassword1@xyz": false,
		"TestPassword1$":    false,
		"TéstPassword1@":    false,
	}
	for pw, want := range cases {
		assert.Equal(t, want, IsStrongPassword(pw), pw)
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@test.io"))
	assert.False(t, IsValidEmail("user@test"))
	assert.False(t, IsValidEmail("us er@test.io"))
	assert.False(t, IsValidEmail("@test.io"))
}

func TestHelperValidators(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsValidPhoneNumber("+1 (234) 567-890"))
	assert.False(t, IsValidPhoneNumber("12345"))
	assert.False(t, IsValidPhoneNumber("+1234567890x"))

	assert.True(t, IsValidDocumentNumber("ab12cd"))
	assert.False(t, IsValidDocumentNumber("ab12"))
	assert.False(t, IsValidDocumentNumber("AB-123456"))

	assert.True(t, IsAdult(time.Date(2007, 6, 15, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsAdult(time.Date(2007, 6, 16, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsAdult(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), now))

	assert.True(t, IsExpired("2025-06-14", now))
	assert.False(t, IsExpired("2025-06-15", now))
	assert.True(t, IsExpired("garbage", now))
}

func TestOptionalRulesPassOnEmpty(t *testing.T) {
	for _, r := range []Rule{
		MinLength(8, "x"), MaxLength(2, "x"), Min(1, "x"), Email("x"),
		Password("x"), OneOf([]string{"a"}, "x"), NotFutureYear("x"), PastDate("x"),
	} {
		assert.True(t, r.check("", func(string) string { return "" }, time.Now()))
	}
	assert.False(t, Required("x").check(" \t", nil, time.Now()))
}

func TestLengthRulesCountRunes(t *testing.T) {
	assert.True(t, MaxLength(3, "x").check("äöü", nil, time.Now()))
	assert.False(t, MinLength(4, "x").check("äöü", nil, time.Now()))
}

func TestGreaterThanFieldNeedsNumericValue(t *testing.T) {
	rule := GreaterThanField("fromYear", "x")
	from := func(v string) func(string) string { return func(string) string { return v } }

	assert.True(t, rule.check("2021", from("2020"), time.Now()))
	assert.False(t, rule.check("2020", from("2020"), time.Now()))
	assert.False(t, rule.check("abc", from("2020"), time.Now()))
	assert.True(t, rule.check("2021", from(""), time.Now()))
	assert.True(t, rule.check("2021", from("soon"), time.Now()))
}
