package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidItem  = errors.New("invalid cart item")
	ErrInvalidPrice = errors.New("cart item price must not be negative")

	// -- Resource State --
	ErrRestaurantMismatch = errors.New("cart already holds items from another restaurant")
)
