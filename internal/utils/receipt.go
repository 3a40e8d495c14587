package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"
)

const receiptTagLen = 6

// GenerateReceiptNumber builds the reference shown after a paid checkout,
// e.g. RCPT-EINSTE-20261018-000042-4567. The restaurant and order tags let
// support staff match a receipt to an order without a lookup.
func GenerateReceiptNumber(restaurantID, orderID string, placedAt time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(placedAt.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"RCPT-%s-%s-%s-%04d",
		receiptTag(restaurantID, false),
		placedAt.UTC().Format("20060102"),
		receiptTag(orderID, true),
		n.Int64(),
	)
}

// receiptTag keeps the alphanumerics of id, upper-cased and padded or cut to
// receiptTagLen. Order ids keep their tail, restaurant ids their head.
func receiptTag(id string, tail bool) string {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	tag := b.String()

	if len(tag) > receiptTagLen {
		if tail {
			return tag[len(tag)-receiptTagLen:]
		}
		return tag[:receiptTagLen]
	}
	return tag + strings.Repeat("0", receiptTagLen-len(tag))
}
