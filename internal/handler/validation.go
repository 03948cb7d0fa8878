package handler

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError names one failed validation check. Validation is a pure
// function composed explicitly before the handler body; the first error
// becomes the 400 response.
type FieldError struct {
	Field   string
	Message string
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateUsername(errs []FieldError, username string) []FieldError {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < 3 {
		errs = append(errs, FieldError{"username", "Username must be at least 3 characters."})
	}
	return errs
}

func validateEmail(errs []FieldError, email string) []FieldError {
	if !emailRe.MatchString(strings.TrimSpace(email)) {
		errs = append(errs, FieldError{"email", "A valid email is required."})
	}
	return errs
}

func validatePassword(errs []FieldError, password string) []FieldError {
	if len(password) < 8 {
		errs = append(errs, FieldError{"password", "Password must be at least 8 characters."})
	}
	return errs
}

func requireField(errs []FieldError, field, value string) []FieldError {
	if strings.TrimSpace(value) == "" {
		errs = append(errs, FieldError{field, field + " is required."})
	}
	return errs
}

func validateRegister(username, email, password string) []FieldError {
	var errs []FieldError
	errs = validateUsername(errs, username)
	errs = validateEmail(errs, email)
	errs = validatePassword(errs, password)
	return errs
}

func validateLogin(email, password string) []FieldError {
	var errs []FieldError
	errs = validateEmail(errs, email)
	errs = requireField(errs, "password", password)
	return errs
}
