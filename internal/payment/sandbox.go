package payment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"campusdash/internal/api"
	"campusdash/internal/logger"

	"go.uber.org/zap"
)

// Well-known test card numbers and their outcomes in the sandbox.
var sandboxDeclines = map[string]string{
	"4000000000000002": DeclineGeneric,
	"4000000000009995": DeclineInsufficientFunds,
	"4000000000000069": DeclineExpiredCard,
	"4000000000000127": DeclineIncorrectCVC,
	"4000000000000119": DeclineProcessingError,
	"4000002500003155": DeclineAuthRequired,
}

var sandboxMethodDeclines = map[string]string{
	"pm_card_chargeDeclined":                  DeclineGeneric,
	"pm_card_chargeDeclinedInsufficientFunds": DeclineInsufficientFunds,
	"pm_card_chargeDeclinedExpiredCard":       DeclineExpiredCard,
}

type sandboxConfirmer struct {
	latency time.Duration
}

// NewSandboxConfirmer returns a Confirmer that never leaves the process.
// Any card or pm_ id not listed as a decline is approved.
func NewSandboxConfirmer(latency time.Duration) Confirmer {
	return &sandboxConfirmer{latency: latency}
}

func (s *sandboxConfirmer) Name() string {
	return "sandbox"
}

func (s *sandboxConfirmer) Confirm(ctx context.Context, clientSecret string, method Method) (*Result, error) {
	const op = "payment.Confirm"

	intentID := intentIDFromSecret(clientSecret)
	if intentID == "" {
		return nil, api.NewError(op, api.KindValidationFailed, ErrMissingClientSecret)
	}
	if method.IsZero() {
		return nil, api.NewError(op, api.KindValidationFailed, ErrMissingMethod)
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, api.NewError(op, api.KindNetworkUnreachable, ctx.Err())
		}
	}

	log := logger.FromCtx(ctx).With(zap.String("payment_intent", intentID), zap.Stringer("method", method))

	var code string
	var found bool
	if method.Card != nil {
		code, found = sandboxDeclines[strings.ReplaceAll(method.Card.Number, " ", "")]
	} else {
		code, found = sandboxMethodDeclines[method.PaymentMethodID]
	}
	if found {
		log.Info("Sandbox payment declined", zap.String("decline_code", code))
		return nil, declined(op, http.StatusPaymentRequired, code, "")
	}

	log.Info("Sandbox payment approved")
	return &Result{PaymentIntentID: intentID, Status: "succeeded"}, nil
}
