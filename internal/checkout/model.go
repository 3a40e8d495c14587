package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseAwaitingPayment
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingPayment:
		return "awaiting_payment"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Status is what the checkout screen renders: the phase plus the inline
// message for the last failure.
type Status struct {
	Phase   Phase
	Message string
	OrderID string
}

type Receipt struct {
	Reference       string
	OrderID         string
	PaymentIntentID string
	Total           decimal.Decimal
	Lines           int
	PlacedAt        time.Time
}

// draft is an order created on the server whose payment has not succeeded.
type draft struct {
	orderID      string
	clientSecret string
	cartVersion  uint64
	userID       string
}
