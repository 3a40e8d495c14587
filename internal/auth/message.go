package auth

import (
	"errors"

	"campusdash/internal/api"
)

// UserMessage turns an auth failure into the short inline text shown next to
// the login and signup forms.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordRequired):
		return "Please fill in all fields."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 6 characters."
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, ErrServerUnreachable):
		return "Cannot connect to server. Please check your connection."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrNoAccountForRole):
		return "No account found for this role. Check the dasher toggle or sign up."
	case errors.Is(err, ErrAccountExists):
		return "An account with this email already exists."
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrPersistSession):
		return "Could not save your session on this device."
	}

	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	return "Something went wrong. Please try again."
}
