package util

import (
	"regexp"
	"unicode/utf8"
)

const (
	ProfileNameMinLen = 1
	ProfileNameMaxLen = 30
)

var destinationRegex = regexp.MustCompile(`^[0-9]{6,15}$`)

// IsValidProfileName reports whether a display name is 1..30 characters.
func IsValidProfileName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= ProfileNameMinLen && n <= ProfileNameMaxLen
}

// IsValidDestination reports whether a recharge destination looks like a
// phone number (digits only, 6-15 long).
func IsValidDestination(number string) bool {
	return destinationRegex.MatchString(number)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
