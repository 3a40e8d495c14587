package payment

import "context"

// Confirmer completes the payment phase of checkout for an order whose
// payment intent was created by the backend.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret string, method Method) (*Result, error)
	Name() string
}
