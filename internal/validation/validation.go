// Package validation holds the pure input checks applied before an account is
// created or its credentials change.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password, counted in characters.
const MinPasswordLength = 8

// Password strength violation messages, reported in this order.
const (
	MsgPasswordLength    = "must be at least 8 characters long"
	MsgPasswordUppercase = "must contain at least one uppercase letter"
	MsgPasswordLowercase = "must contain at least one lowercase letter"
	MsgPasswordDigit     = "must contain at least one digit"
)

// Sign-up field keys.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPassword      = "password"
	FieldAcceptedTerms = "accepted_terms"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s\p{Z}@]+@[^\s\p{Z}@]+\.[^\s\p{Z}@]+$`)
	uppercasePattern = regexp.MustCompile(`[A-Z]`)
	lowercasePattern = regexp.MustCompile(`[a-z]`)
	digitPattern     = regexp.MustCompile(`[0-9]`)
)

// PasswordStrength is the outcome of ValidatePasswordStrength.
type PasswordStrength struct {
	Valid  bool
	Errors []string
}

// SignUpInput carries the raw sign-up form values.
type SignUpInput struct {
	Name          string
	Email         string
	Password      string
	AcceptedTerms bool
}

// FieldErrors maps a field key to its error message. Empty means valid.
type FieldErrors map[string]string

// Details converts the errors into the generic details map used by API errors.
func (f FieldErrors) Details() map[string]any {
	details := make(map[string]any, len(f))
	for field, msg := range f {
		details[field] = msg
	}
	return details
}

// ValidateEmail reports whether email has the local@domain.tld shape.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword reports whether password meets the minimum length.
func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// ValidatePasswordStrength evaluates every rule and reports all violations.
func ValidatePasswordStrength(password string) PasswordStrength {
	errs := []string{}
	if !ValidatePassword(password) {
		errs = append(errs, MsgPasswordLength)
	}
	if !uppercasePattern.MatchString(password) {
		errs = append(errs, MsgPasswordUppercase)
	}
	if !lowercasePattern.MatchString(password) {
		errs = append(errs, MsgPasswordLowercase)
	}
	if !digitPattern.MatchString(password) {
		errs = append(errs, MsgPasswordDigit)
	}
	return PasswordStrength{Valid: len(errs) == 0, Errors: errs}
}

// ValidateName reports whether the trimmed name is non-empty.
func ValidateName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// ValidateSignUp checks a sign-up form and returns one message per failing field.
func ValidateSignUp(input SignUpInput) FieldErrors {
	errs := FieldErrors{}

	if !ValidateName(input.Name) {
		errs[FieldName] = "name is required"
	}

	switch {
	case strings.TrimSpace(input.Email) == "":
		errs[FieldEmail] = "email is required"
	case !ValidateEmail(input.Email):
		errs[FieldEmail] = "email address is invalid"
	}

	switch {
	case input.Password == "":
		errs[FieldPassword] = "password is required"
	case !ValidatePassword(input.Password):
		errs[FieldPassword] = "password " + MsgPasswordLength
	}

	if !input.AcceptedTerms {
		errs[FieldAcceptedTerms] = "terms of service must be accepted"
	}

	return errs
}
