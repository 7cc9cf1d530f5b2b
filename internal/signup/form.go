// Package signup validates the account forms and runs the OTP-gated
// sign-up and the sign-in flows.
package signup

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// Field names a form input.
type Field string

const (
	FieldFullName        Field = "fullName"
	FieldUsername        Field = "username"
	FieldEmail           Field = "email"
	FieldMobile          Field = "mobile"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	FieldGeneral         Field = "general"
)

// Login messages.
const (
	MsgFillAllFields   = "Please fill in all fields"
	MsgInvalidLogin    = "Invalid username or password"
	MsgSignupFailed    = "Signup failed. Username might already exist."
	MsgOTPFailed       = "OTP verification failed"
	minPasswordLength  = 6
	mobileDigitsLength = 10
)

var (
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// FieldErrors maps each invalid field to its message.
type FieldErrors map[Field]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[Field(k)])
	}
	return strings.Join(parts, "; ")
}

func (e FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// AsFieldErrors extracts FieldErrors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Form is the sign-up form.
type Form struct {
	FullName        string
	Username        string
	Email           string
	Mobile          string
	Password        string
	ConfirmPassword string
}

// Validate checks every field. It returns nil when the form is valid.
func (f Form) Validate() error {
	errs := FieldErrors{}

	if strings.TrimSpace(f.FullName) == "" {
		errs[FieldFullName] = "Full name is required"
	}
	if strings.TrimSpace(f.Username) == "" {
		errs[FieldUsername] = "Username is required"
	}

	switch {
	case strings.TrimSpace(f.Email) == "":
		errs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(f.Email):
		errs[FieldEmail] = "Email is invalid"
	}

	switch {
	case strings.TrimSpace(f.Mobile) == "":
		errs[FieldMobile] = "Mobile number is required"
	case len(NormalizeMobile(f.Mobile)) != mobileDigitsLength:
		errs[FieldMobile] = "Mobile number must be 10 digits"
	}

	switch {
	case f.Password == "":
		errs[FieldPassword] = "Password is required"
	case len(f.Password) < minPasswordLength:
		errs[FieldPassword] = "Password must be at least 6 characters"
	}

	switch {
	case f.ConfirmPassword == "":
		errs[FieldConfirmPassword] = "Please confirm your password"
	case f.Password != f.ConfirmPassword:
		errs[FieldConfirmPassword] = "Passwords do not match"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// NormalizeMobile strips everything but digits.
func NormalizeMobile(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// ValidateLogin checks the sign-in form.
func ValidateLogin(username, password string) error {
	if username == "" || password == "" {
		return errors.New(MsgFillAllFields)
	}
	return nil
}
