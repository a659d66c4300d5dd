package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	phonePattern   = regexp.MustCompile(`^[1-9][0-9]{5,15}$`)
	groupIDPattern = regexp.MustCompile(`^[0-9]+(-[0-9]+)?(@g\.us)?$`)
)

// NormalizePhone strips formatting characters people paste along with a
// number: spaces, dashes, dots, parentheses and a leading "+".
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '+':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// ValidatePhone ensures international format (no leading 0, digits only, length 6-16).
func ValidatePhone(phone string) error {
	trimmed := NormalizePhone(phone)
	if trimmed == "" {
		return errors.New("phone number cannot be empty")
	}
	if strings.HasPrefix(trimmed, "0") {
		return errors.New("phone number must be in international format without leading 0")
	}
	if !phonePattern.MatchString(trimmed) {
		return errors.New("phone number must be digits only and at least 6 characters")
	}
	return nil
}

// ValidateGroupID rejects ids that cannot possibly name a group, before any
// client call is made.
func ValidateGroupID(groupID string) error {
	trimmed := strings.TrimSpace(groupID)
	if trimmed == "" {
		return errors.New("group id is required")
	}
	if !groupIDPattern.MatchString(trimmed) {
		return errors.New("group id must look like <digits>@g.us")
	}
	return nil
}
