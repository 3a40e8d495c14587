package payment

import (
	"strconv"
	"strings"

	"campusdash/internal/utils"
)

type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Method is either raw card details (native) or a tokenized payment method
// id such as "pm_card_visa" (web).
type Method struct {
	Card            *Card
	PaymentMethodID string
}

func (m Method) IsZero() bool {
	return m.Card == nil && m.PaymentMethodID == ""
}

// String never exposes more than the last four card digits.
func (m Method) String() string {
	switch {
	case m.PaymentMethodID != "":
		return m.PaymentMethodID
	case m.Card != nil:
		return "card " + utils.MaskCard(m.Card.Number)
	default:
		return "none"
	}
}

// ParseMethod reads a shell argument: "pm_..." or
// "<number>[/<mm>/<yy>/<cvc>]". Missing card fields get test-mode defaults.
func ParseMethod(arg string) (Method, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Method{}, ErrMissingMethod
	}
	if strings.HasPrefix(arg, "pm_") {
		return Method{PaymentMethodID: arg}, nil
	}

	parts := strings.Split(arg, "/")
	card := &Card{Number: parts[0], ExpMonth: 12, ExpYear: 2034, CVC: "123"}

	if len(parts) > 1 {
		if len(parts) != 4 {
			return Method{}, ErrInvalidCard
		}
		month, err := strconv.Atoi(parts[1])
		if err != nil || month < 1 || month > 12 {
			return Method{}, ErrInvalidCard
		}
		year, err := strconv.Atoi(parts[2])
		if err != nil {
			return Method{}, ErrInvalidCard
		}
		if year < 100 {
			year += 2000
		}
		card.ExpMonth, card.ExpYear, card.CVC = month, year, parts[3]
	}

	if !validCardNumber(card.Number) {
		return Method{}, ErrInvalidCard
	}
	return Method{Card: card}, nil
}

func validCardNumber(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type Result struct {
	PaymentIntentID string
	Status          string
}

// intentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func intentIDFromSecret(clientSecret string) string {
	id, _, found := strings.Cut(clientSecret, "_secret_")
	if !found {
		return ""
	}
	return id
}
