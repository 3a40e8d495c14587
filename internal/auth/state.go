package auth

import "campusdash/internal/session"

type State int

const (
	// StateUnknown holds until Restore has read device storage.
	StateUnknown State = iota
	StateUnauthenticated
	StateCustomer
	StateCourier
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCustomer:
		return "customer"
	case StateCourier:
		return "courier"
	default:
		return "unknown"
	}
}

func (s State) Authenticated() bool {
	return s == StateCustomer || s == StateCourier
}

func stateFor(sess session.Session) State {
	switch {
	case !sess.Authenticated():
		return StateUnauthenticated
	case sess.Role.IsCourier():
		return StateCourier
	default:
		return StateCustomer
	}
}
