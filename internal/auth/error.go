package auth

import "errors"

var (
	// -- Validation & Input --
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("email is not valid")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNoRefreshToken   = errors.New("no refresh token stored")

	// -- Authentication/Authorization --
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoAccountForRole   = errors.New("no account found for this role")
	ErrAccountExists      = errors.New("account already exists")
	ErrSessionExpired     = errors.New("session expired")

	// -- Transport & Backend --
	ErrServerUnreachable = errors.New("cannot reach server")
	ErrServerError       = errors.New("server error")

	// -- Storage --
	ErrPersistSession = errors.New("failed to persist session")
)
