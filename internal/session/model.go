package session

import "strconv"

// Keys persisted in device storage.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIsDasher     = "is_dasher"
	KeyUserEmail    = "user_email"
	KeyUserID       = "user_id"
)

// AllKeys lists every key owned by a session, in the order they are written.
var AllKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyIsDasher,
	KeyUserEmail,
	KeyUserID,
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
)

func (r Role) IsCourier() bool {
	return r == RoleCourier
}

// RoleFromFlag maps the stored is_dasher flag back to a role.
func RoleFromFlag(isDasher string) Role {
	if b, err := strconv.ParseBool(isDasher); err == nil && b {
		return RoleCourier
	}
	return RoleCustomer
}

// Session is the in-memory view of an authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         Role
	UserID       string
	UserEmail    string
	Loading      bool
}

func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Pairs renders the session as the key/value set written to a Store.
func (s Session) Pairs() map[string]string {
	return map[string]string{
		KeyAccessToken:  s.AccessToken,
		KeyRefreshToken: s.RefreshToken,
		KeyIsDasher:     strconv.FormatBool(s.Role.IsCourier()),
		KeyUserEmail:    s.UserEmail,
		KeyUserID:       s.UserID,
	}
}

// FromPairs rebuilds a session from stored values.
func FromPairs(values map[string]string) Session {
	return Session{
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
		Role:         RoleFromFlag(values[KeyIsDasher]),
		UserEmail:    values[KeyUserEmail],
		UserID:       values[KeyUserID],
	}
}
