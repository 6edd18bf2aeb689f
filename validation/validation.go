// Package validation holds the default form rules for the login, registration and
// chat flows. It satisfies sessionbridge.Validator.
package validation

import (
	"regexp"
	"unicode/utf8"
)

const (
	MinPasswordLen   = 8
	MaxPasswordLen   = 64
	MaxLoginPassword = 128
	MaxChatMessage   = 4000
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё\s'-]{2,60}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
)

const (
	reasonLoginRequired = "Enter email and password."
	reasonLoginTooLong  = "Password: at most 128 characters."
	reasonName          = "Name: 2–60 characters (letters, space, hyphen)."
	reasonEmail         = "Email: invalid format."
	reasonPassword      = "Password: 8–64 characters."
	reasonChatTooLong   = "Message: at most 4000 characters."
)

// Rules is the default validator. The zero value is ready to use.
type Rules struct{}

func Default() Rules { return Rules{} }

func (Rules) ValidateLogin(email, password string) []string {
	if email == "" || password == "" {
		return []string{reasonLoginRequired}
	}
	if utf8.RuneCountInString(password) > MaxLoginPassword {
		return []string{reasonLoginTooLong}
	}
	return nil
}

func (Rules) ValidateRegistration(name, email, password string) []string {
	var reasons []string
	if !nameRe.MatchString(name) {
		reasons = append(reasons, reasonName)
	}
	if !emailRe.MatchString(email) {
		reasons = append(reasons, reasonEmail)
	}
	if n := utf8.RuneCountInString(password); n < MinPasswordLen || n > MaxPasswordLen {
		reasons = append(reasons, reasonPassword)
	}
	return reasons
}

func (Rules) ValidateChatMessage(message string) []string {
	if utf8.RuneCountInString(message) > MaxChatMessage {
		return []string{reasonChatTooLong}
	}
	return nil
}
