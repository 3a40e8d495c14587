package payment

import "errors"

var (
	// -- Validation & Input --
	ErrMissingClientSecret = errors.New("missing payment client secret")
	ErrMissingMethod       = errors.New("missing payment method")
	ErrInvalidCard         = errors.New("invalid card details")
	ErrMethodNotSupported  = errors.New("payment method not supported on this platform")

	// -- Configuration --
	ErrUnknownMode = errors.New("unknown payment mode")
)
