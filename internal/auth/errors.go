package auth

import (
	"errors"
	"regexp"
	"strings"
)

// Identity provider error codes.
const (
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserDisabled      = "auth/user-disabled"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeSignedOut         = "auth/signed-out"
)

// ErrSignedOut is returned when an operation needs an identity.
var ErrSignedOut = &Error{Code: CodeSignedOut}

// Error is an identity failure with a provider code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message + " (" + e.Code + ")"
	}
	return e.Code
}

var friendly = map[string]string{
	CodeInvalidEmail:      "The email address is invalid.",
	CodeUserDisabled:      "This account has been disabled. Please contact support.",
	CodeUserNotFound:      "No account found with this email.",
	CodeWrongPassword:     "Incorrect password. Please try again.",
	CodeEmailInUse:        "This email address is already in use.",
	CodeWeakPassword:      "Password should be at least 6 characters.",
	CodeInvalidCredential: "Invalid login credentials.",
	CodeTooManyRequests:   "Too many attempts. Please wait and try again later.",
	CodeSignedOut:         "Please sign in to continue.",
}

var providerNoise = regexp.MustCompile(`^Provider: |\(auth/.*\)\.?$`)

// FriendlyError turns an identity failure into a message for end users.
func FriendlyError(err error) string {
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Code == "" {
		return "Something went wrong. Please try again."
	}
	if msg, ok := friendly[aerr.Code]; ok {
		return msg
	}
	if msg := strings.TrimSpace(providerNoise.ReplaceAllString(aerr.Message, "")); msg != "" {
		return msg
	}
	return "An unknown error occurred. Please try again."
}
