package checkout

import "errors"

var (
	// -- Guards --
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNotAuthenticated     = errors.New("not signed in")
	ErrMissingPaymentMethod = errors.New("payment method is required")
	ErrInProgress           = errors.New("checkout already in progress")

	// -- Backend --
	ErrMissingClientSecret = errors.New("order response did not include a payment client secret")
)
