package payment

// Decline codes returned by the processor and the text shown at checkout.
const (
	DeclineGeneric           = "generic_decline"
	DeclineInsufficientFunds = "insufficient_funds"
	DeclineExpiredCard       = "expired_card"
	DeclineIncorrectCVC      = "incorrect_cvc"
	DeclineProcessingError   = "processing_error"
	DeclineAuthRequired      = "authentication_required"
)

var declineMessages = map[string]string{
	DeclineGeneric:           "Your card was declined.",
	DeclineInsufficientFunds: "Your card has insufficient funds.",
	DeclineExpiredCard:       "Your card has expired.",
	DeclineIncorrectCVC:      "Your card's security code is incorrect.",
	DeclineProcessingError:   "An error occurred while processing your card. Try again.",
	DeclineAuthRequired:      "This card requires additional authentication.",
}

// DeclineMessage returns the user-facing text for a decline code, falling
// back to the generic decline text.
func DeclineMessage(code string) string {
	if msg, ok := declineMessages[code]; ok {
		return msg
	}
	return declineMessages[DeclineGeneric]
}
